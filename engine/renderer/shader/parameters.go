package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/gogpu/naga/ir"
)

// Parameter is a single settable value inside a uniform block. Struct members are named
// "var.field", array elements "var.field[i]", and a bare uniform variable by its own name.
type Parameter struct {
	Name     string
	TypeName string
	Group    int
	Binding  int
	Offset   uint64
	Size     uint64
}

// UniformBlock describes one uniform buffer binding declared by the shader.
type UniformBlock struct {
	Group    int
	Binding  int
	VarName  string
	TypeName string
	Size     uint64
}

// UniformWrite is a contiguous range of a uniform block that changed since the last StagedWrites call.
type UniformWrite struct {
	Group   int
	Binding int
	Offset  uint64
	Data    []byte
}

// uniformBlock is the CPU-side shadow of a uniform buffer along with its dirty byte range.
type uniformBlock struct {
	UniformBlock
	data    []byte
	dirtyLo uint64
	dirtyHi uint64
}

func (b *uniformBlock) markDirty(lo, hi uint64) {
	if b.dirtyHi == b.dirtyLo {
		b.dirtyLo, b.dirtyHi = lo, hi
		return
	}
	b.dirtyLo = min(b.dirtyLo, lo)
	b.dirtyHi = max(b.dirtyHi, hi)
}

// vectorComponents maps vector type names to their f32 component count.
var vectorComponents = map[string]int{
	"vec2<f32>": 2,
	"vec3<f32>": 3,
	"vec4<f32>": 4,
}

func isMatrix4(typeName string) bool {
	return typeName == "mat4x4<f32>"
}

// reflectUniforms flattens every uniform binding into parameters and allocates the block shadows.
// Offsets and sizes come from the layout naga computed while lowering the module.
//
// Parameters:
//   - module: the lowered WGSL module
//   - bindings: the resource declarations
//
// Returns:
//   - []*uniformBlock: one shadow per uniform binding, in declaration order
//   - []Parameter: the flattened parameters in declaration order
//   - error: if a binding is not a uniform buffer or has no fixed size
func reflectUniforms(module *ir.Module, bindings []parsedBinding) ([]*uniformBlock, []Parameter, error) {
	var blocks []*uniformBlock
	var params []Parameter
	for _, b := range bindings {
		if b.space != ir.SpaceUniform {
			return nil, nil, fmt.Errorf("binding %s at group %d binding %d is not a uniform buffer", b.varName, b.group, b.binding)
		}
		size := uint64(ir.TypeSize(module, b.typ))
		if size == 0 {
			return nil, nil, fmt.Errorf("cannot lay out uniform %s of type %s", b.varName, b.typeName)
		}
		blocks = append(blocks, &uniformBlock{
			UniformBlock: UniformBlock{
				Group:    b.group,
				Binding:  b.binding,
				VarName:  b.varName,
				TypeName: b.typeName,
				Size:     size,
			},
			data: make([]byte, size),
		})
		params = flattenParameters(params, module, b, b.varName, b.typ, 0)
	}
	return blocks, params, nil
}

// flattenParameters walks a uniform type recursively, appending one parameter per leaf value.
func flattenParameters(params []Parameter, module *ir.Module, b parsedBinding, name string, handle ir.TypeHandle, base uint64) []Parameter {
	if int(handle) >= len(module.Types) {
		return params
	}
	switch t := module.Types[handle].Inner.(type) {
	case ir.ScalarType, ir.VectorType, ir.MatrixType:
		return append(params, Parameter{
			Name:     name,
			TypeName: wgslTypeName(module, handle),
			Group:    b.group,
			Binding:  b.binding,
			Offset:   base,
			Size:     uint64(ir.TypeSize(module, handle)),
		})
	case ir.StructType:
		for _, m := range t.Members {
			params = flattenParameters(params, module, b, name+"."+m.Name, m.Type, base+uint64(m.Offset))
		}
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return params
		}
		for i := range uint64(*t.Size.Constant) {
			params = flattenParameters(params, module, b, fmt.Sprintf("%s[%d]", name, i), t.Base, base+i*uint64(t.Stride))
		}
	}
	return params
}

// write copies values into the block backing the parameter and extends its dirty range.
func (s *shader) write(p Parameter, values []float32) {
	block := s.blocks[s.blockIndex[blockKey(p.Group, p.Binding)]]
	end := common.PutFloat32s(block.data, int(p.Offset), values...)
	block.markDirty(p.Offset, uint64(end))
}

// lookup returns the named parameter or a wrapped ErrParameterNotFound.
func (s *shader) lookup(name string) (Parameter, error) {
	idx, ok := s.paramIndex[name]
	if !ok {
		return Parameter{}, fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return s.params[idx], nil
}

func (s *shader) SetMatrix(name string, m [16]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if !isMatrix4(p.TypeName) {
		return fmt.Errorf("%w: %s is %s, not mat4x4<f32>", ErrParameterType, name, p.TypeName)
	}
	s.write(p, m[:])
	return nil
}

func (s *shader) SetFloat(name string, v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	if p.TypeName != "f32" {
		return fmt.Errorf("%w: %s is %s, not f32", ErrParameterType, name, p.TypeName)
	}
	s.write(p, []float32{v})
	return nil
}

func (s *shader) SetVector(name string, v ...float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.lookup(name)
	if err != nil {
		return err
	}
	n, ok := vectorComponents[p.TypeName]
	if !ok || n != len(v) {
		return fmt.Errorf("%w: %s is %s, got %d components", ErrParameterType, name, p.TypeName, len(v))
	}
	s.write(p, v)
	return nil
}

func (s *shader) StagedWrites() []UniformWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	var writes []UniformWrite
	for _, b := range s.blocks {
		if b.dirtyHi == b.dirtyLo {
			continue
		}
		data := make([]byte, b.dirtyHi-b.dirtyLo)
		copy(data, b.data[b.dirtyLo:b.dirtyHi])
		writes = append(writes, UniformWrite{
			Group:   b.Group,
			Binding: b.Binding,
			Offset:  b.dirtyLo,
			Data:    data,
		})
		b.dirtyLo, b.dirtyHi = 0, 0
	}
	return writes
}

func (s *shader) RestageWrites(writes []UniformWrite) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		idx, ok := s.blockIndex[blockKey(w.Group, w.Binding)]
		if !ok || len(w.Data) == 0 {
			continue
		}
		s.blocks[idx].markDirty(w.Offset, w.Offset+uint64(len(w.Data)))
	}
}

func (s *shader) UniformBlocks() []UniformBlock {
	blocks := make([]UniformBlock, len(s.blocks))
	for i, b := range s.blocks {
		blocks[i] = b.UniformBlock
	}
	return blocks
}

func (s *shader) BlockData(group, binding int) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.blockIndex[blockKey(group, binding)]
	if !ok {
		return nil, false
	}
	data := make([]byte, len(s.blocks[idx].data))
	copy(data, s.blocks[idx].data)
	return data, true
}

func (s *shader) Parameters() []Parameter {
	params := make([]Parameter, len(s.params))
	copy(params, s.params)
	return params
}

func (s *shader) Parameter(name string) (Parameter, bool) {
	idx, ok := s.paramIndex[name]
	if !ok {
		return Parameter{}, false
	}
	return s.params[idx], true
}

func blockKey(group, binding int) [2]int {
	return [2]int{group, binding}
}
