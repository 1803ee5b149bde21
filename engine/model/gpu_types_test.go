package model

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestNewSkinnedVertexNormalisesWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights [4]float32
		want    [4]float32
	}{
		{name: "already normalised", weights: [4]float32{0.5, 0.25, 0.25, 0}, want: [4]float32{0.5, 0.25, 0.25, 0}},
		{name: "scaled", weights: [4]float32{2, 1, 1, 0}, want: [4]float32{0.5, 0.25, 0.25, 0}},
		{name: "fourth weight implied", weights: [4]float32{1, 1, 1, 1}, want: [4]float32{0.25, 0.25, 0.25, 0.25}},
		{name: "no weight", weights: [4]float32{}, want: [4]float32{1, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSkinnedVertex([3]float32{}, [3]float32{}, [2]float32{}, [4]uint32{0, 1, 2, 3}, tt.weights)
			got := v.Weights()
			for i := range got {
				if math.Abs(float64(got[i]-tt.want[i])) > 1e-6 {
					t.Fatalf("weights = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNewSkinnedVertexZeroWeightsBindToBoneZero(t *testing.T) {
	tests := []struct {
		name   string
		joints [4]uint32
	}{
		{name: "distinct joints", joints: [4]uint32{5, 6, 7, 8}},
		{name: "repeated joint", joints: [4]uint32{3, 3, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewSkinnedVertex([3]float32{}, [3]float32{}, [2]float32{}, tt.joints, [4]float32{})
			if v.BoneIndices != [4]float32{} {
				t.Fatalf("bone indices = %v, want all zero", v.BoneIndices)
			}
			if w := v.Weights(); w[0] != 1 {
				t.Fatalf("weights = %v, want full weight on the first slot", w)
			}
		})
	}
}

func TestGPUSkinnedVertexMarshalLayout(t *testing.T) {
	v := NewSkinnedVertex(
		[3]float32{1, 2, 3},
		[3]float32{0, 1, 0},
		[2]float32{0.25, 0.75},
		[4]uint32{7, 3, 0, 0},
		[4]float32{0.5, 0.5, 0, 0},
	)

	buf := v.Marshal()
	if len(buf) != GPUSkinnedVertexSize || v.Size() != GPUSkinnedVertexSize {
		t.Fatalf("marshaled size = %d, want %d", len(buf), GPUSkinnedVertexSize)
	}

	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
	}
	checks := []struct {
		offset int
		want   float32
	}{
		{0, 1}, {8, 3}, // position
		{16, 1},          // normal.y
		{24, 0.25},       // uv.x
		{32, 0.5},        // weight 0
		{36, 0.5},        // weight 1
		{44, 7}, {48, 3}, // bone indices
	}
	for _, c := range checks {
		if got := at(c.offset); got != c.want {
			t.Fatalf("float at offset %d = %f, want %f", c.offset, got, c.want)
		}
	}
}

func TestMarshalVertices(t *testing.T) {
	verts := []GPUSkinnedVertex{{Position: [3]float32{1, 0, 0}}, {Position: [3]float32{2, 0, 0}}}
	buf := MarshalVertices(verts)
	if len(buf) != 2*GPUSkinnedVertexSize {
		t.Fatalf("len = %d, want %d", len(buf), 2*GPUSkinnedVertexSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[GPUSkinnedVertexSize:])); got != 2 {
		t.Fatalf("second vertex x = %f, want 2", got)
	}
}

func TestMarshalIndicesPadding(t *testing.T) {
	tests := []struct {
		indices []uint16
		wantLen int
	}{
		{indices: []uint16{0, 1, 2}, wantLen: 8},
		{indices: []uint16{0, 1, 2, 2, 1, 3}, wantLen: 12},
		{indices: nil, wantLen: 0},
	}
	for _, tt := range tests {
		buf := MarshalIndices(tt.indices)
		if len(buf) != tt.wantLen {
			t.Fatalf("MarshalIndices(%v) length = %d, want %d", tt.indices, len(buf), tt.wantLen)
		}
		for i, idx := range tt.indices {
			if got := binary.LittleEndian.Uint16(buf[i*2:]); got != idx {
				t.Fatalf("index %d = %d, want %d", i, got, idx)
			}
		}
	}
}
