package gpu

import "github.com/cogentcore/webgpu/wgpu"

// WGPUBackendBuilderOption is a functional option for configuring the WebGPU backend.
type WGPUBackendBuilderOption func(*wgpuBackendImpl)

// WithSampleCount sets the MSAA sample count of the main render pass.
//
// Parameters:
//   - count: the sample count
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the sample count option
func WithSampleCount(count MSAASampleCount) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		b.sampleCount = count
	}
}

// WithPresentMode sets the initial present mode.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the present mode option
func WithPresentMode(mode PresentMode) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		if mode == PresentModeVSync {
			b.presentMode = wgpu.PresentModeFifo
		} else {
			b.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
//
// Parameters:
//   - force: whether to force the fallback adapter
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the fallback option
func WithForceFallbackAdapter(force bool) WGPUBackendBuilderOption {
	return func(b *wgpuBackendImpl) {
		b.forceFallbackAdapter = force
	}
}

// WithClearColor sets the color the main render pass clears to.
//
// Parameters:
//   - r, g, b, a: the clear color components in [0, 1]
//
// Returns:
//   - WGPUBackendBuilderOption: a function that applies the clear color option
func WithClearColor(r, g, b, a float64) WGPUBackendBuilderOption {
	return func(w *wgpuBackendImpl) {
		w.clearColor = wgpu.Color{R: r, G: g, B: b, A: a}
	}
}
