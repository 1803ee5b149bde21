package loader

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// LoaderBuilderOption is a function that configures a Loader instance.
type LoaderBuilderOption func(*loader)

// WithMesh pre-populates the cache, for procedurally built meshes that should be served by key.
//
// Parameters:
//   - key: the cache key
//   - mesh: the mesh to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the mesh to the cache
func WithMesh(key string, mesh model.AnimatedMesh) LoaderBuilderOption {
	return func(l *loader) {
		l.meshCache[key] = mesh
	}
}
