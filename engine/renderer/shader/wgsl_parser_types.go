package shader

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga/ir"
)

// vertexFormatInfo holds the wgpu vertex format and its byte size for offset calculation
type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

// parsedBinding is a single @group/@binding resource declaration lowered by naga.
type parsedBinding struct {
	group    int
	binding  int
	space    ir.AddressSpace
	access   ir.StorageAccessMode
	varName  string
	typeName string
	typ      ir.TypeHandle
}
