package gpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
)

var (
	ErrNoFrame         = errors.New("no frame in progress")
	ErrFrameInProgress = errors.New("previous frame surface not yet presented")
	ErrReleased        = errors.New("gpu resource already released")
	ErrForeignResource = errors.New("gpu resource created by a different backend")
	ErrEmptyBuffer     = errors.New("buffer data is empty")
)

// BufferUsage identifies how a buffer is bound during a draw.
type BufferUsage int

const (
	// BufferUsageVertex marks a buffer bound as a vertex stream.
	BufferUsageVertex BufferUsage = iota

	// BufferUsageIndex marks a buffer bound as the index stream.
	BufferUsageIndex

	// BufferUsageUniform marks a buffer bound to a uniform block.
	BufferUsageUniform
)

func (u BufferUsage) String() string {
	switch u {
	case BufferUsageVertex:
		return "vertex"
	case BufferUsageIndex:
		return "index"
	case BufferUsageUniform:
		return "uniform"
	default:
		return "unknown"
	}
}

// IndexFormat is the element type of an index buffer.
type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

// Buffer is a GPU-resident byte buffer owned by whoever created it.
type Buffer interface {
	Label() string
	Usage() BufferUsage
	Size() uint64

	// Release frees the GPU memory. Calling it more than once is a no-op.
	Release()
}

// Program is a render pipeline built from a shader.
type Program interface {
	Label() string

	// Release frees the pipeline and every bind group cached for it. Calling it more than once is a no-op.
	Release()
}

// UniformBinding attaches a uniform buffer to a (group, binding) slot of a program.
type UniformBinding struct {
	Group   int
	Binding int
	Buffer  Buffer
}

// DrawCommand is everything needed for one indexed draw.
type DrawCommand struct {
	Program      Program
	Uniforms     []UniformBinding
	VertexBuffer Buffer
	IndexBuffer  Buffer
	IndexFormat  IndexFormat
	IndexCount   uint32
}

// Backend is the subset of GPU functionality the renderer needs: program and buffer creation,
// buffer updates, and indexed draws into the current frame.
type Backend interface {
	// CreateProgram builds a render pipeline from a reflected shader.
	//
	// Parameters:
	//   - label: a debug label for the pipeline
	//   - s: the shader providing source, entry points, and layouts
	//
	// Returns:
	//   - Program: the created program
	//   - error: an error if the pipeline could not be created
	CreateProgram(label string, s shader.Shader) (Program, error)

	// CreateBuffer allocates a buffer sized to data and uploads data into it.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - usage: how the buffer will be bound
	//   - data: the initial contents; must not be empty
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the buffer could not be created
	CreateBuffer(label string, usage BufferUsage, data []byte) (Buffer, error)

	// WriteBuffer uploads data into an existing buffer at offset.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the byte offset to write at
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the buffer is released or the write is out of range
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// DrawIndexed encodes one indexed draw.
	//
	// Parameters:
	//   - cmd: the draw to encode
	//
	// Returns:
	//   - error: an error if the draw could not be encoded
	DrawIndexed(cmd DrawCommand) error
}
