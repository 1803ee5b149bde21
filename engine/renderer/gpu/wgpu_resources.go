package gpu

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer wraps a *wgpu.Buffer with the metadata the Backend contract exposes.
type wgpuBuffer struct {
	label    string
	usage    BufferUsage
	size     uint64
	buffer   *wgpu.Buffer
	released bool
}

var _ Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string      { return b.label }
func (b *wgpuBuffer) Usage() BufferUsage { return b.usage }
func (b *wgpuBuffer) Size() uint64       { return b.size }

func (b *wgpuBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.buffer.Release()
}

// cachedBindGroup is a bind group along with the buffers it was built from.
type cachedBindGroup struct {
	buffers   []*wgpuBuffer
	bindGroup *wgpu.BindGroup
}

// wgpuProgram is a render pipeline plus its bind group layouts and the bind groups built against them.
type wgpuProgram struct {
	label            string
	module           *wgpu.ShaderModule
	pipelineLayout   *wgpu.PipelineLayout
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipeline         *wgpu.RenderPipeline
	bindGroups       map[int]*cachedBindGroup
	released         bool
}

var _ Program = &wgpuProgram{}

func (p *wgpuProgram) Label() string { return p.label }

func (p *wgpuProgram) Release() {
	if p.released {
		return
	}
	p.released = true
	for _, bg := range p.bindGroups {
		bg.bindGroup.Release()
	}
	p.bindGroups = nil
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
	}
	for _, l := range p.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	if p.module != nil {
		p.module.Release()
	}
}

// sameBuffers reports whether a cached bind group was built from exactly these buffers.
func (c *cachedBindGroup) sameBuffers(buffers []*wgpuBuffer) bool {
	if len(c.buffers) != len(buffers) {
		return false
	}
	for i := range buffers {
		if c.buffers[i] != buffers[i] {
			return false
		}
	}
	return true
}

// groupUniforms buckets uniform bindings by group, sorted by binding index within each group.
func groupUniforms(uniforms []UniformBinding) map[int][]UniformBinding {
	groups := make(map[int][]UniformBinding)
	for _, u := range uniforms {
		groups[u.Group] = append(groups[u.Group], u)
	}
	for g := range groups {
		entries := groups[g]
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
	}
	return groups
}
