package shader

// ShaderBuilderOption is a functional option for configuring a Shader at construction time.
type ShaderBuilderOption func(*shader)

// WithCompiler replaces the WGSL validator run before reflection. A nil compiler skips full
// validation; the source is still parsed and lowered for reflection.
//
// Parameters:
//   - compiler: the validator to use
//
// Returns:
//   - ShaderBuilderOption: a function that applies the compiler option to a shader
func WithCompiler(compiler Compiler) ShaderBuilderOption {
	return func(s *shader) {
		s.compiler = compiler
	}
}

// WithEntryPoints overrides the vertex and fragment function names the shader must declare.
//
// Parameters:
//   - vertex: the vertex entry point
//   - fragment: the fragment entry point
//
// Returns:
//   - ShaderBuilderOption: a function that applies the entry point option to a shader
func WithEntryPoints(vertex, fragment string) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexEntryPoint = vertex
		s.fragmentEntryPoint = fragment
	}
}
