package watcher

import "time"

// ShaderWatcherBuilderOption is a function that configures a ShaderWatcher instance.
type ShaderWatcherBuilderOption func(*shaderWatcher)

// WithDebounce overrides DefaultDebounce. Non-positive values are ignored.
//
// Parameters:
//   - d: quiet period after the last write event
//
// Returns:
//   - ShaderWatcherBuilderOption: a function that applies the debounce to the watcher
func WithDebounce(d time.Duration) ShaderWatcherBuilderOption {
	return func(w *shaderWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}
