package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-skin/engine/core"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last write before re-reading the file.
const DefaultDebounce = 100 * time.Millisecond

var ErrWatcherClosed = errors.New("shader watcher closed")

// shaderWatcher is the implementation of the ShaderWatcher interface.
type shaderWatcher struct {
	mu *sync.Mutex

	path     string
	onChange func(source string)
	debounce time.Duration

	fs      *fsnotify.Watcher
	done    chan struct{}
	started bool
	closed  bool
}

// ShaderWatcher reloads a shader source file whenever it changes on disk.
// The parent directory is watched so editors that save by rename are still observed.
type ShaderWatcher interface {
	// Path returns the absolute path of the watched file.
	Path() string

	// Start delivers debounced changes to the callback until ctx is cancelled or Close is called.
	// The callback runs on the Start goroutine.
	//
	// Parameters:
	//   - ctx: cancellation for the watch loop
	//
	// Returns:
	//   - error: ErrWatcherClosed if the watcher was closed or already started, nil once stopped
	Start(ctx context.Context) error

	// Close stops the watch loop and releases the fsnotify watcher. It is safe to call more than once.
	//
	// Returns:
	//   - error: error from closing the underlying watcher
	Close() error
}

var _ ShaderWatcher = &shaderWatcher{}

// NewShaderWatcher creates a watcher for a single shader file.
//
// Parameters:
//   - path: the file to watch; its directory must exist
//   - onChange: receives the full file contents after each debounced change
//   - options: a variadic list of ShaderWatcherBuilderOption functions
//
// Returns:
//   - ShaderWatcher: the watcher, not yet started
//   - error: error if the directory cannot be watched
func NewShaderWatcher(path string, onChange func(source string), options ...ShaderWatcherBuilderOption) (ShaderWatcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("shader watcher for %s: nil callback", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(abs)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	w := &shaderWatcher{
		mu:       &sync.Mutex{},
		path:     abs,
		onChange: onChange,
		debounce: DefaultDebounce,
		fs:       fs,
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(w)
	}
	return w, nil
}

func (w *shaderWatcher) Path() string {
	return w.path
}

func (w *shaderWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.closed || w.started {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.started = true
	w.mu.Unlock()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	core.LogDebug("watching shader %s (debounce %v)", w.path, w.debounce)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil
		case e, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != w.path || !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			core.LogWarn("shader watcher error on %s: %v", w.path, err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *shaderWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		core.LogWarn("failed to re-read shader %s: %v", w.path, err)
		return
	}
	core.LogInfo("shader %s changed (%d bytes)", w.path, len(data))
	w.onChange(string(data))
}

func (w *shaderWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	return w.fs.Close()
}
