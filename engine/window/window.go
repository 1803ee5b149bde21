package window

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Key is a platform key code as reported by GLFW.
type Key int

// Keys the viewer binds. Values match glfw.Key.
const (
	KeySpace Key = 32
	KeyB     Key = 66
	KeyP     Key = 80
	KeyR     Key = 82
	KeyRight Key = 262
	KeyLeft  Key = 263
	KeyDown  Key = 264
	KeyUp    Key = 265
)

// Window provides a native window, its WebGPU surface descriptor and the input the viewer needs.
type Window interface {
	// SetResizeCallback sets the function called with the new framebuffer size in pixels.
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets the callback for vertical scroll (positive = away from the user).
	SetScrollCallback(callback func(delta float32))

	// SetDragCallback sets the callback for cursor motion while the left button is held.
	//
	// Parameters:
	//   - callback: function receiving the cursor delta in pixels
	SetDragCallback(callback func(dx, dy float32))

	// SetKeyCallback sets the callback for key presses (including repeats).
	SetKeyCallback(callback func(key Key))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil after Close
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Run polls events and calls frame with the elapsed seconds since the previous frame,
	// until the window is closed or frame returns false.
	Run(frame func(deltaTime float32) bool)

	// IsRunning returns true until the window is asked to close.
	IsRunning() bool

	// Close destroys the window and terminates GLFW. Safe to call more than once.
	Close() error

	// Width returns the current framebuffer width in pixels.
	Width() int

	// Height returns the current framebuffer height in pixels.
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title     string
	minWidth  int
	minHeight int
	width     int
	height    int

	platform *glfwWindow

	onResize func(width, height int)
	onScroll func(delta float32)
	onDrag   func(dx, dy float32)
	onKey    func(key Key)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window with the specified options.
// Must be called from the main goroutine; the calling OS thread is locked to it.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the visible window
//   - error: error if GLFW cannot be initialized or the window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "oxy-skin",
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetDragCallback(callback func(dx, dy float32)) {
	w.onDrag = callback
}

func (w *engineWindow) SetKeyCallback(callback func(key Key)) {
	w.onKey = callback
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
