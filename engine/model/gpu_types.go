package model

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-skin/common"
)

// GPUSkinnedVertexSource is the canonical WGSL definition of the VertexInput struct for the skinning pipeline.
// Matches GPUSkinnedVertex layout exactly (60 bytes, tightly packed vertex attributes).
//
//go:embed assets/skinned_vertex.wgsl
var GPUSkinnedVertexSource string

// GPUSkinnedVertexSize is the byte size of one packed GPUSkinnedVertex.
const GPUSkinnedVertexSize = 60

// MaxVertexCount is the largest vertex count addressable by the 16-bit index buffer.
const MaxVertexCount = math.MaxUint16 + 1

// GPUSkinnedVertex is the GPU representation of a single skinned vertex.
// Skinning data rides in two extra texture coordinate channels: the first three bone weights
// (the fourth is implied as one minus their sum) and four bone indices stored as floats.
// Size: 60 bytes.
type GPUSkinnedVertex struct {
	Position    [3]float32 // offset  0: model space position (12 bytes)
	Normal      [3]float32 // offset 12: model space normal (12 bytes)
	TexCoord    [2]float32 // offset 24: UV texture coordinate (8 bytes)
	BoneWeights [3]float32 // offset 32: weights of the first three influences (12 bytes)
	BoneIndices [4]float32 // offset 44: indices of up to four influencing bones (16 bytes)
}

// NewSkinnedVertex packs a vertex with four joint influences.
// Weights are normalised to sum to one; a vertex with no weight at all is bound fully to bone 0.
//
// Parameters:
//   - position: model space position
//   - normal: model space normal
//   - uv: texture coordinate
//   - joints: indices of the four influencing bones
//   - weights: raw blend weights for each joint
//
// Returns:
//   - GPUSkinnedVertex: the packed vertex
func NewSkinnedVertex(position, normal [3]float32, uv [2]float32, joints [4]uint32, weights [4]float32) GPUSkinnedVertex {
	sum := weights[0] + weights[1] + weights[2] + weights[3]
	if sum <= 0 {
		weights = [4]float32{1, 0, 0, 0}
		joints = [4]uint32{}
		sum = 1
	}
	inv := 1 / sum

	return GPUSkinnedVertex{
		Position:    position,
		Normal:      normal,
		TexCoord:    uv,
		BoneWeights: [3]float32{weights[0] * inv, weights[1] * inv, weights[2] * inv},
		BoneIndices: [4]float32{float32(joints[0]), float32(joints[1]), float32(joints[2]), float32(joints[3])},
	}
}

// Weights returns all four blend weights including the implied fourth one.
//
// Returns:
//   - [4]float32: the blend weights
func (g *GPUSkinnedVertex) Weights() [4]float32 {
	w3 := 1 - g.BoneWeights[0] - g.BoneWeights[1] - g.BoneWeights[2]
	if w3 < 0 {
		w3 = 0
	}
	return [4]float32{g.BoneWeights[0], g.BoneWeights[1], g.BoneWeights[2], w3}
}

// Size returns the size of the GPUSkinnedVertex in bytes once packed.
//
// Returns:
//   - int: the size of the packed vertex in bytes.
func (g *GPUSkinnedVertex) Size() int {
	return GPUSkinnedVertexSize
}

// Marshal serializes the GPUSkinnedVertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 60-byte buffer ready for GPU upload.
func (g *GPUSkinnedVertex) Marshal() []byte {
	buf := make([]byte, GPUSkinnedVertexSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPUSkinnedVertex) marshalInto(buf []byte) {
	off := common.PutFloat32s(buf, 0, g.Position[:]...)
	off = common.PutFloat32s(buf, off, g.Normal[:]...)
	off = common.PutFloat32s(buf, off, g.TexCoord[:]...)
	off = common.PutFloat32s(buf, off, g.BoneWeights[:]...)
	common.PutFloat32s(buf, off, g.BoneIndices[:]...)
}

// MarshalVertices packs a vertex slice into one contiguous buffer.
//
// Parameters:
//   - vertices: the vertices to pack
//
// Returns:
//   - []byte: len(vertices) * 60 bytes
func MarshalVertices(vertices []GPUSkinnedVertex) []byte {
	buf := make([]byte, len(vertices)*GPUSkinnedVertexSize)
	for i := range vertices {
		vertices[i].marshalInto(buf[i*GPUSkinnedVertexSize:])
	}
	return buf
}

// MarshalIndices packs 16-bit indices little-endian. The result is zero padded to a multiple of four bytes
// because WebGPU buffer writes must be 4-byte aligned; the padding is never drawn.
//
// Parameters:
//   - indices: the triangle indices
//
// Returns:
//   - []byte: the packed index data
func MarshalIndices(indices []uint16) []byte {
	size := len(indices) * 2
	if size%4 != 0 {
		size += 2
	}
	buf := make([]byte, size)
	for i, idx := range indices {
		binary.LittleEndian.PutUint16(buf[i*2:], idx)
	}
	return buf
}

// ComputeBoundingRadius calculates the bounding sphere radius from a slice of
// GPUSkinnedVertex positions. The radius is the maximum distance from the origin
// across all vertices in the slice.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUSkinnedVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return float32(math.Sqrt(float64(maxDistSq)))
}
