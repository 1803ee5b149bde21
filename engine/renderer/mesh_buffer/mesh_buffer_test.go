package mesh_buffer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-skin/engine/model/modeltest"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu/gputest"
)

func TestNewIndexedVertexBuffer(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(3)

	b, err := NewIndexedVertexBuffer(rec, "chain", mesh.Vertices(), mesh.Indices())
	if err != nil {
		t.Fatalf("NewIndexedVertexBuffer: %v", err)
	}
	if b.VertexCount() != 9 || b.IndexCount() != 9 {
		t.Fatalf("counts = %d vertices, %d indices; want 9, 9", b.VertexCount(), b.IndexCount())
	}
	if b.IndexFormat() != gpu.IndexFormatUint16 {
		t.Fatalf("IndexFormat = %v, want Uint16", b.IndexFormat())
	}
	if got := b.VertexBuffer().Size(); got != 9*60 {
		t.Fatalf("vertex buffer size = %d, want %d", got, 9*60)
	}
	// 9 indices are 18 bytes, padded to 20 for upload
	if got := b.IndexBuffer().Size(); got != 20 {
		t.Fatalf("index buffer size = %d, want 20", got)
	}
	if b.VertexBuffer().Usage() != gpu.BufferUsageVertex || b.IndexBuffer().Usage() != gpu.BufferUsageIndex {
		t.Fatalf("unexpected buffer usages")
	}
	if rec.LiveBuffers() != 2 {
		t.Fatalf("LiveBuffers = %d, want 2", rec.LiveBuffers())
	}
}

func TestNewIndexedVertexBufferFailures(t *testing.T) {
	mesh := modeltest.ChainMesh(2)

	tests := []struct {
		name   string
		failAt int
	}{
		{"vertex buffer fails", 1},
		{"index buffer fails", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := gputest.NewRecorder()
			rec.FailBufferAt(tt.failAt)

			_, err := NewIndexedVertexBuffer(rec, "chain", mesh.Vertices(), mesh.Indices())
			if !errors.Is(err, gputest.ErrInjected) {
				t.Fatalf("error = %v, want ErrInjected", err)
			}
			if rec.LiveBuffers() != 0 {
				t.Fatalf("LiveBuffers = %d after failure, want 0", rec.LiveBuffers())
			}
		})
	}
}

func TestNewIndexedVertexBufferRejectsInput(t *testing.T) {
	mesh := modeltest.ChainMesh(1)

	if _, err := NewIndexedVertexBuffer(nil, "x", mesh.Vertices(), mesh.Indices()); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("nil backend error = %v", err)
	}
	if _, err := NewIndexedVertexBuffer(gputest.NewRecorder(), "x", nil, mesh.Indices()); !errors.Is(err, ErrEmptyMesh) {
		t.Fatalf("empty vertices error = %v", err)
	}
	if _, err := NewIndexedVertexBuffer(gputest.NewRecorder(), "x", mesh.Vertices(), nil); !errors.Is(err, ErrEmptyMesh) {
		t.Fatalf("empty indices error = %v", err)
	}
}

func TestIndexedVertexBufferRelease(t *testing.T) {
	rec := gputest.NewRecorder()
	mesh := modeltest.ChainMesh(1)

	b, err := NewIndexedVertexBuffer(rec, "chain", mesh.Vertices(), mesh.Indices())
	if err != nil {
		t.Fatalf("NewIndexedVertexBuffer: %v", err)
	}
	b.Release()
	b.Release()

	if !b.Released() {
		t.Fatalf("Released = false after Release")
	}
	if b.VertexBuffer() != nil || b.IndexBuffer() != nil {
		t.Fatalf("buffers still reachable after Release")
	}
	if rec.LiveBuffers() != 0 {
		t.Fatalf("LiveBuffers = %d, want 0", rec.LiveBuffers())
	}
}
