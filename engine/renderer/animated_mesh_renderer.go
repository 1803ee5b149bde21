package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/core"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/mesh_buffer"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/google/uuid"
)

// PoseSource supplies the per-frame matrices of an animated mesh. animation.Controller satisfies it.
type PoseSource interface {
	ViewProjection() [16]float32
	SkinningMatrices() [][16]float32
}

// program groups everything built from one shader: the GPU pipeline, its uniform buffers, and
// the resolved parameter slots. ReloadFragment swaps it as a unit.
type program struct {
	shader       shader.Shader
	gpuProgram   gpu.Program
	uniforms     []gpu.UniformBinding
	viewProjSlot shader.Parameter
	boneSlots    []shader.Parameter
}

func (p *program) release() {
	for _, u := range p.uniforms {
		u.Buffer.Release()
	}
	p.uniforms = nil
	if p.gpuProgram != nil {
		p.gpuProgram.Release()
		p.gpuProgram = nil
	}
}

// uniformBuffer returns the buffer bound at (group, binding).
func (p *program) uniformBuffer(group, binding int) gpu.Buffer {
	for _, u := range p.uniforms {
		if u.Group == group && u.Binding == binding {
			return u.Buffer
		}
	}
	return nil
}

// animatedMeshRenderer is the implementation of the AnimatedMeshRenderer interface.
type animatedMeshRenderer struct {
	label          string
	backend        gpu.Backend
	mesh           model.AnimatedMesh
	maxBones       int
	customFragment string
	shaderOptions  []shader.ShaderBuilderOption

	program    *program
	meshBuffer mesh_buffer.IndexedVertexBuffer
	released   bool

	mu *sync.Mutex
}

// AnimatedMeshRenderer draws one animated mesh with a skinning shader. Each Render uploads the
// view-projection matrix and one matrix per bone from a PoseSource, then issues a single indexed draw.
type AnimatedMeshRenderer interface {
	// Render uploads the pose's matrices into the shader's slots along with any other staged
	// parameters and issues exactly one indexed draw of the mesh.
	//
	// Parameters:
	//   - pose: the source of the view-projection and skinning matrices
	//
	// Returns:
	//   - error: ErrReleased, ErrPoseMismatch, or a backend error
	Render(pose PoseSource) error

	// Shader returns the active shader. Extra parameters set on it are uploaded on the next Render.
	//
	// Returns:
	//   - shader.Shader: the active shader
	Shader() shader.Shader

	// Mesh returns the mesh definition this renderer draws.
	//
	// Returns:
	//   - model.AnimatedMesh: the shared mesh
	Mesh() model.AnimatedMesh

	// MeshBuffer returns the GPU vertex and index buffers owned by this renderer.
	//
	// Returns:
	//   - mesh_buffer.IndexedVertexBuffer: the mesh buffer
	MeshBuffer() mesh_buffer.IndexedVertexBuffer

	// ViewProjectionSlot returns the shader parameter receiving the view-projection matrix.
	//
	// Returns:
	//   - shader.Parameter: the view-projection slot
	ViewProjectionSlot() shader.Parameter

	// BoneSlots returns the shader parameters receiving bone matrices, one per configured bone.
	//
	// Returns:
	//   - []shader.Parameter: a copy of the bone slots
	BoneSlots() []shader.Parameter

	// MaxBones returns the number of bone slots.
	//
	// Returns:
	//   - int: the bone slot count
	MaxBones() int

	// ReloadFragment rebuilds the shader and GPU program with new fragment source. On failure
	// the current shader stays active.
	//
	// Parameters:
	//   - source: WGSL defining fp_animatedmesh, or empty for the default fragment
	//
	// Returns:
	//   - error: ErrReleased, a *shader.ShaderCompilationError, or a backend error
	ReloadFragment(source string) error

	// Release frees the GPU program, uniform buffers, and mesh buffers. Calling it more than once is a no-op.
	Release()
}

var _ AnimatedMeshRenderer = &animatedMeshRenderer{}

// NewAnimatedMeshRenderer validates the mesh, compiles the skinning shader, and creates every GPU
// resource the renderer owns. When any step fails, the resources already created are released.
//
// Parameters:
//   - backend: the GPU backend that owns programs and buffers
//   - mesh: the animated mesh to draw; it is shared, not copied
//   - options: AnimatedMeshRendererBuilderOption functions to customize the renderer
//
// Returns:
//   - AnimatedMeshRenderer: the ready renderer
//   - error: ErrNilMesh, ErrInvalidMesh, ErrInvalidMaxBones, ErrTooManyBones, a
//     *shader.ShaderCompilationError, or a backend error
func NewAnimatedMeshRenderer(backend gpu.Backend, mesh model.AnimatedMesh, options ...AnimatedMeshRendererBuilderOption) (AnimatedMeshRenderer, error) {
	if mesh == nil {
		return nil, ErrNilMesh
	}
	if backend == nil {
		return nil, ErrNilBackend
	}

	r := &animatedMeshRenderer{
		backend:  backend,
		mesh:     mesh,
		maxBones: config.DefaultMaxBones,
		mu:       &sync.Mutex{},
	}
	for _, opt := range options {
		opt(r)
	}
	if r.label == "" {
		r.label = fmt.Sprintf("%s-%s", mesh.Name(), uuid.New().String())
	}

	if err := mesh.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMesh, mesh.Name(), err)
	}
	if r.maxBones < 1 || r.maxBones > config.MaxSupportedBones {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidMaxBones, r.maxBones, config.MaxSupportedBones)
	}
	if mesh.BoneCount() > r.maxBones {
		return nil, fmt.Errorf("%w: %s has %d bones, limit %d", ErrTooManyBones, mesh.Name(), mesh.BoneCount(), r.maxBones)
	}

	p, err := r.buildProgram(r.customFragment)
	if err != nil {
		return nil, err
	}

	mb, err := mesh_buffer.NewIndexedVertexBuffer(backend, r.label, mesh.Vertices(), mesh.Indices())
	if err != nil {
		p.release()
		return nil, fmt.Errorf("%s: %w", r.label, err)
	}

	r.program = p
	r.meshBuffer = mb
	core.LogDebug("animated mesh renderer %s ready: %d bones, %d slots, %d indices", r.label, mesh.BoneCount(), r.maxBones, mb.IndexCount())
	return r, nil
}

// buildProgram compiles a skinning shader with the given fragment, resolves its slots, and
// creates the GPU program and uniform buffers. Nothing is left allocated on failure.
func (r *animatedMeshRenderer) buildProgram(fragment string) (*program, error) {
	s, err := shader.NewSkinningShader(r.label, r.maxBones, fragment, r.shaderOptions...)
	if err != nil {
		return nil, err
	}

	p := &program{shader: s}
	var ok bool
	if p.viewProjSlot, ok = s.Parameter(shader.ViewProjectionParameter); !ok {
		return nil, &shader.ShaderCompilationError{Key: r.label, Reason: "missing " + shader.ViewProjectionParameter}
	}
	p.boneSlots = make([]shader.Parameter, r.maxBones)
	for i := range p.boneSlots {
		if p.boneSlots[i], ok = s.Parameter(shader.BoneParameter(i)); !ok {
			return nil, &shader.ShaderCompilationError{Key: r.label, Reason: "missing " + shader.BoneParameter(i)}
		}
	}

	if p.gpuProgram, err = r.backend.CreateProgram(r.label, s); err != nil {
		return nil, fmt.Errorf("create program %s: %w", r.label, err)
	}

	for _, block := range s.UniformBlocks() {
		data, _ := s.BlockData(block.Group, block.Binding)
		buf, err := r.backend.CreateBuffer(fmt.Sprintf("%s %s", r.label, block.VarName), gpu.BufferUsageUniform, data)
		if err != nil {
			p.release()
			return nil, fmt.Errorf("create uniform buffer %s: %w", block.VarName, err)
		}
		p.uniforms = append(p.uniforms, gpu.UniformBinding{Group: block.Group, Binding: block.Binding, Buffer: buf})
	}

	// the buffers were created from the current block contents
	s.StagedWrites()
	return p, nil
}

func (r *animatedMeshRenderer) Render(pose PoseSource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}
	if pose == nil {
		return fmt.Errorf("%w: nil pose source", ErrPoseMismatch)
	}

	matrices := pose.SkinningMatrices()
	if len(matrices) != r.mesh.BoneCount() {
		return fmt.Errorf("%w: got %d, mesh %s has %d", ErrPoseMismatch, len(matrices), r.mesh.Name(), r.mesh.BoneCount())
	}

	p := r.program
	if err := p.shader.SetMatrix(p.viewProjSlot.Name, pose.ViewProjection()); err != nil {
		return err
	}
	for i, m := range matrices {
		if err := p.shader.SetMatrix(p.boneSlots[i].Name, m); err != nil {
			return err
		}
	}

	writes := p.shader.StagedWrites()
	for i, w := range writes {
		buf := p.uniformBuffer(w.Group, w.Binding)
		if buf == nil {
			continue
		}
		if err := r.backend.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			// unsent ranges stay dirty for the next frame
			p.shader.RestageWrites(writes[i:])
			return fmt.Errorf("upload uniforms %d/%d: %w", w.Group, w.Binding, err)
		}
	}

	return r.backend.DrawIndexed(gpu.DrawCommand{
		Program:      p.gpuProgram,
		Uniforms:     p.uniforms,
		VertexBuffer: r.meshBuffer.VertexBuffer(),
		IndexBuffer:  r.meshBuffer.IndexBuffer(),
		IndexFormat:  r.meshBuffer.IndexFormat(),
		IndexCount:   uint32(r.meshBuffer.IndexCount()),
	})
}

func (r *animatedMeshRenderer) Shader() shader.Shader {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.program.shader
}

func (r *animatedMeshRenderer) Mesh() model.AnimatedMesh {
	return r.mesh
}

func (r *animatedMeshRenderer) MeshBuffer() mesh_buffer.IndexedVertexBuffer {
	return r.meshBuffer
}

func (r *animatedMeshRenderer) ViewProjectionSlot() shader.Parameter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.program.viewProjSlot
}

func (r *animatedMeshRenderer) BoneSlots() []shader.Parameter {
	r.mu.Lock()
	defer r.mu.Unlock()
	slots := make([]shader.Parameter, len(r.program.boneSlots))
	copy(slots, r.program.boneSlots)
	return slots
}

func (r *animatedMeshRenderer) MaxBones() int {
	return r.maxBones
}

func (r *animatedMeshRenderer) ReloadFragment(source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return ErrReleased
	}
	p, err := r.buildProgram(source)
	if err != nil {
		core.LogWarn("fragment reload for %s rejected, keeping current shader: %v", r.label, err)
		return err
	}

	r.program.release()
	r.program = p
	r.customFragment = source
	core.LogInfo("fragment reloaded for %s", r.label)
	return nil
}

func (r *animatedMeshRenderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return
	}
	r.released = true
	r.program.release()
	r.meshBuffer.Release()
}
