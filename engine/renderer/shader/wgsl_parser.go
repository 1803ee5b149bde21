package shader

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// parseModule runs the naga WGSL front end and lowers the source to IR. Attribute order, comments,
// aliases and nested types are resolved by naga, so reflection only walks the lowered module.
//
// Parameters:
//   - source: the raw WGSL source code string
//
// Returns:
//   - *ir.Module: the lowered module
//   - error: the parse or lowering diagnostic
func parseModule(source string) (*ir.Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, err
	}
	return naga.LowerWithSource(ast, source)
}

// parseEntryPoints extracts every entry point function name declared for the given stage.
//
// Parameters:
//   - module: the lowered WGSL module
//   - stage: ir.StageVertex or ir.StageFragment
//
// Returns:
//   - []string: the entry point names in declaration order
func parseEntryPoints(module *ir.Module, stage ir.ShaderStage) []string {
	var names []string
	for _, ep := range module.EntryPoints {
		if ep.Stage == stage {
			names = append(names, ep.Name)
		}
	}
	return names
}

// parseVertexLayouts extracts the vertex buffer layouts consumed by the given vertex entry point.
// Only struct arguments of that function which are pure vertex inputs (@location members and no
// @builtin members) contribute a layout, one buffer slot per struct in argument order.
//
// Parameters:
//   - module: the lowered WGSL module
//   - entryPoint: the vertex entry point whose inputs should be reflected
//
// Returns:
//   - []wgpu.VertexBufferLayout: one layout per vertex input struct, in buffer slot order
func parseVertexLayouts(module *ir.Module, entryPoint string) []wgpu.VertexBufferLayout {
	var fn *ir.Function
	for i := range module.EntryPoints {
		ep := &module.EntryPoints[i]
		if ep.Stage == ir.StageVertex && ep.Name == entryPoint {
			fn = &ep.Function
			break
		}
	}
	if fn == nil {
		return nil
	}

	var layouts []wgpu.VertexBufferLayout
	for _, arg := range fn.Arguments {
		if int(arg.Type) >= len(module.Types) {
			continue
		}
		st, ok := module.Types[arg.Type].Inner.(ir.StructType)
		if !ok || !isVertexInputStruct(st) {
			continue
		}
		layout, ok := buildVertexBufferLayout(module, st)
		if !ok {
			continue
		}
		layouts = append(layouts, layout)
	}
	return layouts
}

// parseBindings extracts every @group/@binding resource declaration from the module in
// declaration order. Attribute order in the source does not matter.
//
// Parameters:
//   - module: the lowered WGSL module
//
// Returns:
//   - []parsedBinding: the declarations found in the module
func parseBindings(module *ir.Module) []parsedBinding {
	var bindings []parsedBinding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		bindings = append(bindings, parsedBinding{
			group:    int(gv.Binding.Group),
			binding:  int(gv.Binding.Binding),
			space:    gv.Space,
			access:   gv.Access,
			varName:  gv.Name,
			typeName: wgslTypeName(module, gv.Type),
			typ:      gv.Type,
		})
	}
	return bindings
}

// buildBindGroupLayouts converts resource declarations into wgpu.BindGroupLayoutDescriptor
// values grouped by group index. Entries within a group are sorted by binding index and buffer
// entries carry the MinBindingSize of the bound type.
//
// Parameters:
//   - module: the lowered WGSL module
//   - bindings: the resource declarations
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
func buildBindGroupLayouts(module *ir.Module, bindings []parsedBinding, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	for _, b := range bindings {
		entry := classifyResource(b, visibility)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			entry.Buffer.MinBindingSize = uint64(ir.TypeSize(module, b.typ))
		}
		groups[b.group] = append(groups[b.group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: entries,
		}
	}
	return result
}
