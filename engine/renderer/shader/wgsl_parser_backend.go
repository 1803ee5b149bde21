package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

// vertexFormats maps a 32-bit scalar kind and component count to the wgpu vertex format.
var vertexFormats = map[ir.ScalarKind][5]wgpu.VertexFormat{
	ir.ScalarFloat: {1: wgpu.VertexFormatFloat32, 2: wgpu.VertexFormatFloat32x2, 3: wgpu.VertexFormatFloat32x3, 4: wgpu.VertexFormatFloat32x4},
	ir.ScalarSint:  {1: wgpu.VertexFormatSint32, 2: wgpu.VertexFormatSint32x2, 3: wgpu.VertexFormatSint32x3, 4: wgpu.VertexFormatSint32x4},
	ir.ScalarUint:  {1: wgpu.VertexFormatUint32, 2: wgpu.VertexFormatUint32x2, 3: wgpu.VertexFormatUint32x3, 4: wgpu.VertexFormatUint32x4},
}

// scalarName returns the WGSL spelling of a scalar type.
func scalarName(s ir.ScalarType) string {
	switch s.Kind {
	case ir.ScalarFloat:
		if s.Width == 2 {
			return "f16"
		}
		return "f32"
	case ir.ScalarSint:
		return "i32"
	case ir.ScalarUint:
		return "u32"
	case ir.ScalarBool:
		return "bool"
	}
	return "?"
}

// wgslTypeName renders a lowered type back to its canonical WGSL spelling, e.g. "vec3<f32>",
// "mat4x4<f32>" or "array<mat4x4<f32>, 64>". Named structs keep their declared name.
//
// Parameters:
//   - module: the lowered WGSL module
//   - handle: the type to render
//
// Returns:
//   - string: the WGSL type name
func wgslTypeName(module *ir.Module, handle ir.TypeHandle) string {
	if int(handle) >= len(module.Types) {
		return "?"
	}
	typ := module.Types[handle]
	switch t := typ.Inner.(type) {
	case ir.ScalarType:
		return scalarName(t)
	case ir.VectorType:
		return fmt.Sprintf("vec%d<%s>", t.Size, scalarName(t.Scalar))
	case ir.MatrixType:
		return fmt.Sprintf("mat%dx%d<%s>", t.Columns, t.Rows, scalarName(t.Scalar))
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return fmt.Sprintf("array<%s>", wgslTypeName(module, t.Base))
		}
		return fmt.Sprintf("array<%s, %d>", wgslTypeName(module, t.Base), *t.Size.Constant)
	case ir.StructType:
		return typ.Name
	case ir.ImageType:
		return "texture"
	case ir.SamplerType:
		return "sampler"
	}
	if typ.Name != "" {
		return typ.Name
	}
	return "?"
}

// classifyResource creates a wgpu.BindGroupLayoutEntry from a resource declaration.
// Only buffer resources are classified; handle types such as textures and samplers leave the
// entry's buffer type undefined.
//
// Parameters:
//   - b: the resource declaration
//   - visibility: the shader stage visibility flag
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: a layout entry for the resource
func classifyResource(b parsedBinding, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.binding),
		Visibility: visibility,
	}

	switch b.space {
	case ir.SpaceUniform:
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case ir.SpaceStorage:
		if b.access == ir.StorageReadWrite {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		} else {
			entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		}
	}
	return entry
}

// memberLocation reports the @location of a struct member and whether it is a @builtin.
func memberLocation(m ir.StructMember) (location int, builtin bool) {
	if m.Binding == nil {
		return -1, false
	}
	switch b := (*m.Binding).(type) {
	case ir.LocationBinding:
		return int(b.Location), false
	case *ir.LocationBinding:
		return int(b.Location), false
	case ir.BuiltinBinding, *ir.BuiltinBinding:
		return -1, true
	}
	return -1, false
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location member and zero @builtin members.
func isVertexInputStruct(st ir.StructType) bool {
	hasLocation := false
	for _, m := range st.Members {
		loc, builtin := memberLocation(m)
		if builtin {
			return false
		}
		if loc >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// vertexFormatOf maps a scalar or vector member type to its vertex format.
func vertexFormatOf(module *ir.Module, handle ir.TypeHandle) (vertexFormatInfo, bool) {
	if int(handle) >= len(module.Types) {
		return vertexFormatInfo{}, false
	}
	var scalar ir.ScalarType
	components := 1
	switch t := module.Types[handle].Inner.(type) {
	case ir.ScalarType:
		scalar = t
	case ir.VectorType:
		scalar = t.Scalar
		components = int(t.Size)
	default:
		return vertexFormatInfo{}, false
	}
	formats, ok := vertexFormats[scalar.Kind]
	if !ok || scalar.Width != 4 || components < 1 || components > 4 {
		return vertexFormatInfo{}, false
	}
	return vertexFormatInfo{formats[components], uint64(4 * components)}, true
}

// buildVertexBufferLayout converts a vertex input struct into a wgpu.VertexBufferLayout.
// Members are packed tightly in declaration order. Returns false if any member has a
// type that cannot be fed from a vertex buffer.
//
// Parameters:
//   - module: the lowered WGSL module
//   - st: the struct containing vertex input members
//
// Returns:
//   - wgpu.VertexBufferLayout: the constructed vertex buffer layout
//   - bool: false if a member type could not be mapped to a vertex format
func buildVertexBufferLayout(module *ir.Module, st ir.StructType) (wgpu.VertexBufferLayout, bool) {
	attrs := make([]wgpu.VertexAttribute, 0, len(st.Members))
	var offset uint64

	for _, m := range st.Members {
		info, ok := vertexFormatOf(module, m.Type)
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		loc, _ := memberLocation(m)

		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(loc),
		})
		offset += info.size
	}

	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}
