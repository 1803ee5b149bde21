package renderer

import "github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"

// AnimatedMeshRendererBuilderOption is a functional option for configuring an AnimatedMeshRenderer.
type AnimatedMeshRendererBuilderOption func(*animatedMeshRenderer)

// WithCustomFragment replaces the default fragment stage. The source must define fp_animatedmesh
// taking a VertexOutput and may declare its own uniform blocks.
//
// Parameters:
//   - source: the WGSL fragment source
//
// Returns:
//   - AnimatedMeshRendererBuilderOption: a function that applies the custom fragment option
func WithCustomFragment(source string) AnimatedMeshRendererBuilderOption {
	return func(r *animatedMeshRenderer) {
		r.customFragment = source
	}
}

// WithMaxBones sets the number of bone matrix slots.
//
// Parameters:
//   - n: the bone slot count, 1 to config.MaxSupportedBones
//
// Returns:
//   - AnimatedMeshRendererBuilderOption: a function that applies the max bones option
func WithMaxBones(n int) AnimatedMeshRendererBuilderOption {
	return func(r *animatedMeshRenderer) {
		r.maxBones = n
	}
}

// WithCompiler replaces the WGSL validator used for every shader this renderer builds.
//
// Parameters:
//   - compiler: the validator, or nil to skip validation
//
// Returns:
//   - AnimatedMeshRendererBuilderOption: a function that applies the compiler option
func WithCompiler(compiler shader.Compiler) AnimatedMeshRendererBuilderOption {
	return func(r *animatedMeshRenderer) {
		r.shaderOptions = append(r.shaderOptions, shader.WithCompiler(compiler))
	}
}

// WithLabel sets the debug label used for the shader key and every GPU resource.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - AnimatedMeshRendererBuilderOption: a function that applies the label option
func WithLabel(label string) AnimatedMeshRendererBuilderOption {
	return func(r *animatedMeshRenderer) {
		r.label = label
	}
}
