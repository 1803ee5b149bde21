package mesh_buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
)

var (
	ErrNoBackend    = errors.New("mesh buffer requires a backend")
	ErrEmptyMesh    = errors.New("mesh buffer requires vertices and indices")
	ErrTooManyVerts = errors.New("too many vertices for 16-bit indices")
)

// indexedVertexBuffer is the implementation of IndexedVertexBuffer.
type indexedVertexBuffer struct {
	label        string
	vertexBuffer gpu.Buffer
	indexBuffer  gpu.Buffer
	vertexCount  int
	indexCount   int
	released     bool

	mu *sync.Mutex
}

// IndexedVertexBuffer owns the GPU copies of a skinned mesh's vertices and 16-bit indices.
type IndexedVertexBuffer interface {
	// Label returns the debug label for this buffer pair.
	Label() string

	// VertexBuffer returns the vertex stream, or nil once released.
	VertexBuffer() gpu.Buffer

	// IndexBuffer returns the index stream, or nil once released.
	IndexBuffer() gpu.Buffer

	// IndexCount returns the number of indices to draw. Upload padding is not counted.
	IndexCount() int

	// VertexCount returns the number of vertices uploaded.
	VertexCount() int

	// IndexFormat returns the element type of the index stream, always gpu.IndexFormatUint16.
	IndexFormat() gpu.IndexFormat

	// Release frees both GPU buffers. Calling it more than once is a no-op.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

var _ IndexedVertexBuffer = &indexedVertexBuffer{}

// NewIndexedVertexBuffer uploads vertices and indices as a vertex buffer and an index buffer.
// If the index buffer cannot be created the vertex buffer is released before returning.
//
// Parameters:
//   - backend: the backend that allocates the buffers
//   - label: a debug label used as the prefix for both buffer labels
//   - vertices: the skinned vertices to upload
//   - indices: the triangle list indices to upload
//
// Returns:
//   - IndexedVertexBuffer: the created buffer pair
//   - error: an error if either buffer could not be created
func NewIndexedVertexBuffer(backend gpu.Backend, label string, vertices []model.GPUSkinnedVertex, indices []uint16) (IndexedVertexBuffer, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, ErrEmptyMesh
	}
	if len(vertices) > model.MaxVertexCount {
		return nil, fmt.Errorf("%w: %d", ErrTooManyVerts, len(vertices))
	}

	vb, err := backend.CreateBuffer(label+" Vertex Buffer", gpu.BufferUsageVertex, model.MarshalVertices(vertices))
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}
	ib, err := backend.CreateBuffer(label+" Index Buffer", gpu.BufferUsageIndex, model.MarshalIndices(indices))
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("create index buffer: %w", err)
	}

	return &indexedVertexBuffer{
		label:        label,
		vertexBuffer: vb,
		indexBuffer:  ib,
		vertexCount:  len(vertices),
		indexCount:   len(indices),
		mu:           &sync.Mutex{},
	}, nil
}

func (b *indexedVertexBuffer) Label() string {
	return b.label
}

func (b *indexedVertexBuffer) VertexBuffer() gpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vertexBuffer
}

func (b *indexedVertexBuffer) IndexBuffer() gpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.indexBuffer
}

func (b *indexedVertexBuffer) IndexCount() int {
	return b.indexCount
}

func (b *indexedVertexBuffer) VertexCount() int {
	return b.vertexCount
}

func (b *indexedVertexBuffer) IndexFormat() gpu.IndexFormat {
	return gpu.IndexFormatUint16
}

func (b *indexedVertexBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.released = true
	if b.vertexBuffer != nil {
		b.vertexBuffer.Release()
		b.vertexBuffer = nil
	}
	if b.indexBuffer != nil {
		b.indexBuffer.Release()
		b.indexBuffer = nil
	}
}

func (b *indexedVertexBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}
