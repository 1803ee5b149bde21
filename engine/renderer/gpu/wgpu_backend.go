package gpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/core"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        wgpu.TextureFormat
	configured           bool
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	sampleCount          MSAASampleCount
	clearColor           wgpu.Color

	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

// WGPUBackend is the WebGPU implementation of Backend. On top of the draw contract it owns the
// surface and the per-frame command encoding.
type WGPUBackend interface {
	Backend

	// ConfigureSurface (re)configures the swapchain and rebuilds the depth and MSAA targets.
	// Must be called before the first frame and whenever the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: an error if a render target could not be created
	ConfigureSurface(width, height int) error

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// BeginFrame acquires the next swapchain texture, creates a command encoder, and begins
	// the main render pass. Must be paired with EndFrame after all DrawIndexed calls.
	//
	// Returns:
	//   - error: core.ErrSurfaceLost if the swapchain texture could not be acquired
	BeginFrame() error

	// EndFrame ends the current render pass and submits the command buffer to the GPU.
	//
	// Returns:
	//   - error: an error if no frame is in progress or the encoder could not be finished
	EndFrame() error

	// Present presents the acquired surface image. It is a no-op when no frame is held.
	Present()

	// Release frees the device, surface, and every render target owned by the backend.
	Release()
}

var _ WGPUBackend = &wgpuBackendImpl{}

// NewWGPUBackend creates the WebGPU instance, surface, adapter, device, and queue. The calling
// goroutine is locked to its OS thread, as the surface belongs to the window's thread.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor obtained from the window
//   - options: WGPUBackendBuilderOption functions to customize the backend
//
// Returns:
//   - WGPUBackend: the created backend
//   - error: an error if no adapter or device is available
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendBuilderOption) (WGPUBackend, error) {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		mu:          &sync.Mutex{},
		presentMode: wgpu.PresentModeFifo,
		sampleCount: MSAA4x,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
	for _, opt := range options {
		opt(b)
	}

	b.instance = wgpu.CreateInstance(nil)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	// The skinning uniform block is view_proj plus up to 1023 bone matrices, 64 KiB in total.
	limits := wgpu.DefaultLimits()
	limits.MaxUniformBufferBindingSize = 64 * 1024

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	core.LogDebug("wgpu backend ready (msaa=%d)", b.sampleCount)
	return b, nil
}

func (b *wgpuBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		return fmt.Errorf("%w: surface reports no formats", core.ErrSurfaceLost)
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseTargets()

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1
	size := wgpu.Extent3D{
		Width:              uint32(width),
		Height:             uint32(height),
		DepthOrArrayLayers: 1,
	}

	if msaaEnabled {
		// the render pass draws into this texture and resolves into the swapchain view
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "MSAA Texture",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			return fmt.Errorf("create msaa texture: %w", err)
		}
		b.msaaTexture = msaaTexture
		if b.msaaTextureView, err = msaaTexture.CreateView(nil); err != nil {
			return fmt.Errorf("create msaa view: %w", err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Depth Texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("create depth texture: %w", err)
	}
	b.depthTexture = depthTexture
	if b.depthTextureView, err = depthTexture.CreateView(nil); err != nil {
		return fmt.Errorf("create depth view: %w", err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView, // nil without MSAA; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    storeOp,
				ClearValue: b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}

	b.configured = true
	core.LogDebug("surface configured %dx%d", width, height)
	return nil
}

// releaseTargets frees the render targets built by ConfigureSurface. The caller holds b.mu.
func (b *wgpuBackendImpl) releaseTargets() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeVSync:
		b.presentMode = wgpu.PresentModeFifo
	default:
		b.presentMode = wgpu.PresentModeImmediate
	}
}

func (b *wgpuBackendImpl) CreateProgram(label string, s shader.Shader) (Program, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, errors.New("surface must be configured before creating programs")
	}

	p := &wgpuProgram{label: label, bindGroups: make(map[int]*cachedBindGroup)}

	module, err := b.device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", s.Key(), err)
	}
	p.module = module

	descriptors := s.BindGroupLayoutDescriptors()
	maxGroup := -1
	for g := range descriptors {
		maxGroup = max(maxGroup, g)
	}
	p.bindGroupLayouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		// gaps in the group numbering still need a layout, so they get an empty one
		desc := descriptors[g]
		desc.Label = fmt.Sprintf("%s group %d", label, g)
		layout, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			p.Release()
			return nil, fmt.Errorf("create bind group layout for group %d: %w", g, err)
		}
		p.bindGroupLayouts[g] = layout
	}

	p.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: p.bindGroupLayouts,
	})
	if err != nil {
		p.Release()
		return nil, err
	}

	p.pipeline, err = b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  label + " Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: s.VertexEntryPoint(),
			Buffers:    s.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: s.FragmentEntryPoint(),
			Targets: []wgpu.ColorTargetState{
				{
					Format:    b.surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeBack,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("create render pipeline %s: %w", label, err)
	}

	return p, nil
}

// wgpuUsage maps a BufferUsage to the wgpu usage flags of a host-writable buffer.
func wgpuUsage(usage BufferUsage) wgpu.BufferUsage {
	switch usage {
	case BufferUsageVertex:
		return wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	case BufferUsageIndex:
		return wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
}

func (b *wgpuBackendImpl) CreateBuffer(label string, usage BufferUsage, data []byte) (Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyBuffer, label)
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             uint64(len(data)),
		Usage:            wgpuUsage(usage),
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s buffer %s: %w", usage, label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)

	return &wgpuBuffer{label: label, usage: usage, size: uint64(len(data)), buffer: buf}, nil
}

// unwrapBuffer checks that buf was created by this backend and is still alive.
func unwrapBuffer(buf Buffer) (*wgpuBuffer, error) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb == nil {
		return nil, ErrForeignResource
	}
	if wb.released {
		return nil, fmt.Errorf("%w: %s", ErrReleased, wb.label)
	}
	return wb, nil
}

func (b *wgpuBackendImpl) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	wb, err := unwrapBuffer(buf)
	if err != nil {
		return err
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("write of %d bytes at %d overflows %s (%d bytes)", len(data), offset, wb.label, wb.size)
	}
	b.queue.WriteBuffer(wb.buffer, offset, data)
	return nil
}

// bindGroup returns the cached bind group for group g of p built from buffers, rebuilding it when
// the buffer set changed. The caller holds b.mu.
func (b *wgpuBackendImpl) bindGroup(p *wgpuProgram, g int, uniforms []UniformBinding) (*wgpu.BindGroup, error) {
	buffers := make([]*wgpuBuffer, len(uniforms))
	entries := make([]wgpu.BindGroupEntry, len(uniforms))
	for i, u := range uniforms {
		wb, err := unwrapBuffer(u.Buffer)
		if err != nil {
			return nil, err
		}
		buffers[i] = wb
		entries[i] = wgpu.BindGroupEntry{
			Binding: uint32(u.Binding),
			Buffer:  wb.buffer,
			Offset:  0,
			Size:    wgpu.WholeSize,
		}
	}

	if cached, ok := p.bindGroups[g]; ok {
		if cached.sameBuffers(buffers) {
			return cached.bindGroup, nil
		}
		cached.bindGroup.Release()
		delete(p.bindGroups, g)
	}

	if g >= len(p.bindGroupLayouts) {
		return nil, fmt.Errorf("program %s has no bind group %d", p.label, g)
	}
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   fmt.Sprintf("%s bind group %d", p.label, g),
		Layout:  p.bindGroupLayouts[g],
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	p.bindGroups[g] = &cachedBindGroup{buffers: buffers, bindGroup: bg}
	return bg, nil
}

func (b *wgpuBackendImpl) DrawIndexed(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	p, ok := cmd.Program.(*wgpuProgram)
	if !ok || p == nil {
		return ErrForeignResource
	}
	if p.released {
		return fmt.Errorf("%w: %s", ErrReleased, p.label)
	}
	vb, err := unwrapBuffer(cmd.VertexBuffer)
	if err != nil {
		return err
	}
	ib, err := unwrapBuffer(cmd.IndexBuffer)
	if err != nil {
		return err
	}

	b.framePass.SetPipeline(p.pipeline)
	for g, uniforms := range groupUniforms(cmd.Uniforms) {
		bg, err := b.bindGroup(p, g, uniforms)
		if err != nil {
			return err
		}
		b.framePass.SetBindGroup(uint32(g), bg, nil)
	}

	indexFormat := wgpu.IndexFormatUint16
	if cmd.IndexFormat == IndexFormatUint32 {
		indexFormat = wgpu.IndexFormatUint32
	}
	b.framePass.SetVertexBuffer(0, vb.buffer, 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(ib.buffer, indexFormat, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(cmd.IndexCount, 1, 0, 0, 0)
	return nil
}

func (b *wgpuBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// acquiring a second image before presenting the first is a wgpu validation error
	if b.frameSurface != nil {
		return ErrFrameInProgress
	}
	if b.renderPassDescriptor == nil {
		return errors.New("surface not configured")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSurfaceLost, err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(b.renderPassDescriptor)
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return ErrNoFrame
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrame()
		return fmt.Errorf("finish command encoder: %w", err)
	}

	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// releaseFrame drops the acquired surface image. The caller holds b.mu.
func (b *wgpuBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

func (b *wgpuBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	b.releaseTargets()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
