// Package gputest provides an in-memory gpu.Backend that records every call, for tests that
// exercise rendering code without a device.
package gputest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-skin/engine/renderer/shader"
)

// ErrInjected is returned by a Recorder when a failure was requested through FailBufferAt or FailWriteAt.
var ErrInjected = errors.New("injected gpu failure")

// Buffer is the Recorder's gpu.Buffer. Its contents mirror every write made through the Recorder.
type Buffer struct {
	label    string
	usage    gpu.BufferUsage
	data     []byte
	released bool
}

var _ gpu.Buffer = &Buffer{}

func (b *Buffer) Label() string          { return b.label }
func (b *Buffer) Usage() gpu.BufferUsage { return b.usage }
func (b *Buffer) Size() uint64           { return uint64(len(b.data)) }
func (b *Buffer) Released() bool         { return b.released }

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *Buffer) Release() {
	b.released = true
}

// Program is the Recorder's gpu.Program.
type Program struct {
	label    string
	shader   shader.Shader
	released bool
}

var _ gpu.Program = &Program{}

func (p *Program) Label() string         { return p.label }
func (p *Program) Shader() shader.Shader { return p.shader }
func (p *Program) Released() bool        { return p.released }
func (p *Program) Release()              { p.released = true }

// Write is one recorded WriteBuffer call.
type Write struct {
	Buffer *Buffer
	Offset uint64
	Data   []byte
}

// Recorder implements gpu.Backend in memory.
type Recorder struct {
	mu *sync.Mutex

	buffers  []*Buffer
	programs []*Program
	writes   []Write
	draws    []gpu.DrawCommand

	bufferCalls  int
	failBufferAt int
	failProgram  error
	writeCalls   int
	failWriteAt  int
}

var _ gpu.Backend = &Recorder{}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}}
}

// FailBufferAt makes the n-th CreateBuffer call (1-based, counted from creation of the Recorder)
// fail with ErrInjected. Zero disables the failure.
func (r *Recorder) FailBufferAt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failBufferAt = n
}

// FailWriteAt makes the n-th WriteBuffer call (1-based, counted from creation of the Recorder)
// fail with ErrInjected. Zero disables the failure.
func (r *Recorder) FailWriteAt(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWriteAt = n
}

// FailPrograms makes every CreateProgram call fail with err. Nil restores normal behavior.
func (r *Recorder) FailPrograms(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failProgram = err
}

func (r *Recorder) CreateProgram(label string, s shader.Shader) (gpu.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failProgram != nil {
		return nil, r.failProgram
	}
	p := &Program{label: label, shader: s}
	r.programs = append(r.programs, p)
	return p, nil
}

func (r *Recorder) CreateBuffer(label string, usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bufferCalls++
	if r.failBufferAt > 0 && r.bufferCalls == r.failBufferAt {
		return nil, fmt.Errorf("%w: buffer %s", ErrInjected, label)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", gpu.ErrEmptyBuffer, label)
	}
	b := &Buffer{label: label, usage: usage, data: append([]byte(nil), data...)}
	r.buffers = append(r.buffers, b)
	return b, nil
}

func (r *Recorder) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		return gpu.ErrForeignResource
	}
	if b.released {
		return fmt.Errorf("%w: %s", gpu.ErrReleased, b.label)
	}
	r.writeCalls++
	if r.failWriteAt > 0 && r.writeCalls == r.failWriteAt {
		return fmt.Errorf("%w: write to %s", ErrInjected, b.label)
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at %d overflows %s", len(data), offset, b.label)
	}
	copy(b.data[offset:], data)
	r.writes = append(r.writes, Write{Buffer: b, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (r *Recorder) DrawIndexed(cmd gpu.DrawCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := cmd.Program.(*Program)
	if !ok || p == nil {
		return gpu.ErrForeignResource
	}
	if p.released {
		return fmt.Errorf("%w: %s", gpu.ErrReleased, p.label)
	}
	for _, buf := range []gpu.Buffer{cmd.VertexBuffer, cmd.IndexBuffer} {
		b, ok := buf.(*Buffer)
		if !ok || b == nil {
			return gpu.ErrForeignResource
		}
		if b.released {
			return fmt.Errorf("%w: %s", gpu.ErrReleased, b.label)
		}
	}
	for _, u := range cmd.Uniforms {
		if b, ok := u.Buffer.(*Buffer); !ok || b.released {
			return fmt.Errorf("%w: uniform %d/%d", gpu.ErrReleased, u.Group, u.Binding)
		}
	}
	r.draws = append(r.draws, cmd)
	return nil
}

// Draws returns every recorded draw command.
func (r *Recorder) Draws() []gpu.DrawCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gpu.DrawCommand(nil), r.draws...)
}

// Writes returns every recorded buffer write.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write(nil), r.writes...)
}

// Buffers returns every buffer ever created, released or not.
func (r *Recorder) Buffers() []*Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Buffer(nil), r.buffers...)
}

// Programs returns every program ever created, released or not.
func (r *Recorder) Programs() []*Program {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Program(nil), r.programs...)
}

// LiveBuffers counts buffers that have not been released.
func (r *Recorder) LiveBuffers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.buffers {
		if !b.released {
			n++
		}
	}
	return n
}

// LivePrograms counts programs that have not been released.
func (r *Recorder) LivePrograms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.programs {
		if !p.released {
			n++
		}
	}
	return n
}

// Reset forgets recorded writes and draws but keeps resources and failure settings.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = nil
	r.draws = nil
}
