package shader

import "github.com/gogpu/naga"

// Compiler validates WGSL source before a shader is reflected. A non-nil error rejects the source.
type Compiler func(source string) error

// NagaCompiler runs the source through the naga WGSL front end and SPIR-V back end.
// The generated SPIR-V is discarded; the WebGPU device compiles the WGSL itself.
//
// Parameters:
//   - source: the complete WGSL source
//
// Returns:
//   - error: the naga diagnostic if the source is invalid
func NagaCompiler(source string) error {
	_, err := naga.Compile(source)
	return err
}
