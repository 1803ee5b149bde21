package shader

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

const (
	// VertexEntryPoint is the name every animated mesh program uses for its vertex stage.
	VertexEntryPoint = "vp_animatedmesh"

	// FragmentEntryPoint is the name a custom fragment source must give its fragment stage.
	FragmentEntryPoint = "fp_animatedmesh"
)

// shader is the implementation of the Shader interface.
// It holds the WGSL source, everything reflected from it, and the CPU-side uniform shadows.
type shader struct {
	key                        string
	source                     string
	vertexEntryPoint           string
	fragmentEntryPoint         string
	compiler                   Compiler
	visibility                 wgpu.ShaderStage
	module                     *wgpu.ShaderModuleDescriptor
	vertexLayouts              []wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor

	blocks     []*uniformBlock
	blockIndex map[[2]int]int
	params     []Parameter
	paramIndex map[string]int

	mu *sync.Mutex
}

// Shader is a compiled and reflected WGSL program. It exposes what the GPU backend needs to build a
// render pipeline, and a named parameter table whose values are staged into uniform buffers.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for labels and logging.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the complete WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// Module retrieves the shader module descriptor ready to hand to the device.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor
	Module() *wgpu.ShaderModuleDescriptor

	// VertexEntryPoint retrieves the vertex stage function name.
	//
	// Returns:
	//   - string: the vertex entry point
	VertexEntryPoint() string

	// FragmentEntryPoint retrieves the fragment stage function name.
	//
	// Returns:
	//   - string: the fragment entry point
	FragmentEntryPoint() string

	// VertexLayouts retrieves the vertex buffer layouts reflected from the vertex entry point's inputs.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: one layout per vertex buffer slot
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptors retrieves the bind group layouts reflected from @group/@binding declarations.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Parameters retrieves every settable parameter in declaration order.
	//
	// Returns:
	//   - []Parameter: a copy of the parameter table
	Parameters() []Parameter

	// Parameter looks up a parameter by name.
	//
	// Parameters:
	//   - name: the parameter name, e.g. "skin.view_proj" or "skin.bones[3]"
	//
	// Returns:
	//   - Parameter: the parameter
	//   - bool: false if no parameter has that name
	Parameter(name string) (Parameter, bool)

	// SetMatrix stages a column-major 4x4 matrix into a mat4x4<f32> parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//   - m: the matrix
	//
	// Returns:
	//   - error: ErrParameterNotFound or ErrParameterType
	SetMatrix(name string, m [16]float32) error

	// SetFloat stages a scalar into an f32 parameter.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the value
	//
	// Returns:
	//   - error: ErrParameterNotFound or ErrParameterType
	SetFloat(name string, v float32) error

	// SetVector stages a vector into a vecN<f32> parameter. The component count must match N.
	//
	// Parameters:
	//   - name: the parameter name
	//   - v: the components
	//
	// Returns:
	//   - error: ErrParameterNotFound or ErrParameterType
	SetVector(name string, v ...float32) error

	// StagedWrites returns the byte ranges changed since the previous call and clears them.
	//
	// Returns:
	//   - []UniformWrite: one write per dirty uniform block
	StagedWrites() []UniformWrite

	// RestageWrites marks the ranges of writes dirty again so the next StagedWrites call returns
	// them. Use it for writes taken from StagedWrites that never reached the GPU.
	//
	// Parameters:
	//   - writes: the writes to restage
	RestageWrites(writes []UniformWrite)

	// UniformBlocks retrieves the uniform buffer bindings declared by the shader.
	//
	// Returns:
	//   - []UniformBlock: the blocks in declaration order
	UniformBlocks() []UniformBlock

	// BlockData retrieves a copy of the current contents of a uniform block.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index
	//
	// Returns:
	//   - []byte: the block contents
	//   - bool: false if no such block exists
	BlockData(group, binding int) ([]byte, bool)
}

var _ Shader = &shader{}

// NewShader validates, compiles, and reflects WGSL source.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: the complete WGSL source
//   - options: ShaderBuilderOption functions to customize the shader
//
// Returns:
//   - Shader: the reflected shader
//   - error: a *ShaderCompilationError if the source is rejected
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:                key,
		source:             source,
		vertexEntryPoint:   VertexEntryPoint,
		fragmentEntryPoint: FragmentEntryPoint,
		compiler:           NagaCompiler,
		visibility:         wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		mu:                 &sync.Mutex{},
	}
	for _, opt := range options {
		opt(s)
	}

	if err := s.parseSource(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

// fail builds a compilation error for this shader.
func (s *shader) fail(reason string, err error) error {
	return &ShaderCompilationError{Key: s.key, Reason: reason, Err: err}
}

// parseSource lowers the source with naga, checks the entry points, runs the compiler, and
// reflects layouts and parameters from the lowered module.
func (s *shader) parseSource() error {
	module, err := parseModule(s.source)
	if err != nil {
		return s.fail("wgsl rejected", err)
	}
	if !slices.Contains(parseEntryPoints(module, ir.StageVertex), s.vertexEntryPoint) {
		return s.fail(fmt.Sprintf("missing @vertex entry point %s", s.vertexEntryPoint), nil)
	}
	if !slices.Contains(parseEntryPoints(module, ir.StageFragment), s.fragmentEntryPoint) {
		return s.fail(fmt.Sprintf("missing @fragment entry point %s", s.fragmentEntryPoint), nil)
	}
	if s.compiler != nil {
		if err := s.compiler(s.source); err != nil {
			return s.fail("wgsl rejected", err)
		}
	}

	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	s.vertexLayouts = parseVertexLayouts(module, s.vertexEntryPoint)
	if len(s.vertexLayouts) == 0 {
		return s.fail(fmt.Sprintf("%s takes no vertex input struct", s.vertexEntryPoint), nil)
	}

	bindings := parseBindings(module)
	s.bindGroupLayoutDescriptors = buildBindGroupLayouts(module, bindings, s.visibility)

	blocks, params, err := reflectUniforms(module, bindings)
	if err != nil {
		return s.fail("unsupported binding", err)
	}
	s.blocks = blocks
	s.blockIndex = make(map[[2]int]int, len(blocks))
	for i, b := range blocks {
		s.blockIndex[blockKey(b.Group, b.Binding)] = i
	}
	s.params = params
	s.paramIndex = make(map[string]int, len(params))
	for i, p := range params {
		s.paramIndex[p.Name] = i
	}
	return nil
}
