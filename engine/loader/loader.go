package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-skin/engine/core"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	meshCache map[string]model.AnimatedMesh

	backend loaderBackend
}

// Loader imports skinned models from disk or memory and caches the resulting AnimatedMesh values.
// The cached meshes are shared; renderers built from the same mesh reference the same data.
type Loader interface {
	// Load imports a model file, or returns the cached mesh when the path was loaded before.
	//
	// Parameters:
	//   - path: the file path (.gltf or .glb)
	//
	// Returns:
	//   - model.AnimatedMesh: the validated mesh
	//   - error: error if the format is unsupported or the file cannot be imported
	Load(path string) (model.AnimatedMesh, error)

	// LoadBytes imports an in-memory model and caches it under name.
	// glTF JSON must embed its buffers as data URIs; GLB is detected automatically.
	//
	// Parameters:
	//   - name: cache key and fallback mesh name
	//   - data: the encoded model
	//
	// Returns:
	//   - model.AnimatedMesh: the validated mesh
	//   - error: error if import fails
	LoadBytes(name string, data []byte) (model.AnimatedMesh, error)

	// LoadReader reads r fully and behaves like LoadBytes.
	//
	// Parameters:
	//   - name: cache key and fallback mesh name
	//   - r: the reader providing model data
	//
	// Returns:
	//   - model.AnimatedMesh: the validated mesh
	//   - error: error if reading or import fails
	LoadReader(name string, r io.Reader) (model.AnimatedMesh, error)

	// Get retrieves a cached mesh by key. Returns nil if not found.
	Get(name string) model.AnimatedMesh

	// Meshes returns a copy of the cache keyed by path or name.
	Meshes() map[string]model.AnimatedMesh

	// Evict drops a cached mesh. Renderers already holding it are unaffected.
	Evict(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		meshCache: make(map[string]model.AnimatedMesh),
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFImporter()
	}

	for _, option := range options {
		option(l)
	}
	return l
}

// LoadAnimatedMesh imports a single model file without caching.
//
// Parameters:
//   - path: the file path (.gltf or .glb)
//
// Returns:
//   - model.AnimatedMesh: the validated mesh
//   - error: error if import fails
func LoadAnimatedMesh(path string) (model.AnimatedMesh, error) {
	return NewLoader(BackendTypeGLTF).Load(path)
}

// LoadAnimatedMeshBytes imports a single in-memory model without caching.
//
// Parameters:
//   - name: fallback mesh name
//   - data: glTF JSON with data URIs or GLB bytes
//
// Returns:
//   - model.AnimatedMesh: the validated mesh
//   - error: error if import fails
func LoadAnimatedMeshBytes(name string, data []byte) (model.AnimatedMesh, error) {
	return NewLoader(BackendTypeGLTF).LoadBytes(name, data)
}

func (l *loader) Load(path string) (model.AnimatedMesh, error) {
	if cached := l.Get(path); cached != nil {
		return cached, nil
	}

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	imported, err := backend.Import(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	return l.store(path, imported)
}

func (l *loader) LoadBytes(name string, data []byte) (model.AnimatedMesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, ErrUnsupportedFormat
	}

	imported, err := l.backend.ImportBytes(data, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", name, err)
	}

	return l.store(name, imported)
}

func (l *loader) LoadReader(name string, r io.Reader) (model.AnimatedMesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", name, err)
	}
	return l.LoadBytes(name, data)
}

func (l *loader) Get(name string) model.AnimatedMesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.meshCache[name]
}

func (l *loader) Meshes() map[string]model.AnimatedMesh {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]model.AnimatedMesh, len(l.meshCache))
	for k, v := range l.meshCache {
		result[k] = v
	}
	return result
}

func (l *loader) Evict(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.meshCache, name)
}

// resolveBackend selects the backend that handles the file extension.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if l.backend == nil || !slices.Contains(l.backend.Extensions(), ext) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return l.backend, nil
}

// store packs an import into a mesh and caches it. A concurrent load of the same key keeps the first result.
func (l *loader) store(key string, imported *model.ImportedModel) (model.AnimatedMesh, error) {
	mesh, err := BuildAnimatedMesh(imported)
	if err != nil {
		return nil, fmt.Errorf("failed to build %q: %w", key, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.meshCache[key]; ok {
		return existing, nil
	}
	l.meshCache[key] = mesh

	core.LogInfo("loaded animated mesh %s: %d bones, %d vertices, %d triangles, %d clips",
		key, mesh.BoneCount(), len(mesh.Vertices()), len(mesh.Indices())/3, len(mesh.Animations()))
	return mesh, nil
}

// BuildAnimatedMesh merges the imported primitives into one vertex stream with 16-bit indices
// and validates the result against the skeleton.
//
// Parameters:
//   - imported: the format-neutral import result
//
// Returns:
//   - model.AnimatedMesh: the validated mesh
//   - error: model.ErrTooManyVertices when the merged stream exceeds the 16-bit index range,
//     or the mesh validation error
func BuildAnimatedMesh(imported *model.ImportedModel) (model.AnimatedMesh, error) {
	if imported == nil || imported.Skeleton == nil {
		return nil, ErrNoSkin
	}

	total := 0
	indexCount := 0
	for _, m := range imported.Meshes {
		total += len(m.Vertices)
		indexCount += len(m.Indices)
	}
	if total > model.MaxVertexCount {
		return nil, fmt.Errorf("%w: %d vertices across %d primitives", model.ErrTooManyVertices, total, len(imported.Meshes))
	}

	vertices := make([]model.GPUSkinnedVertex, 0, total)
	indices := make([]uint16, 0, indexCount)
	for _, m := range imported.Meshes {
		base := len(vertices)
		vertices = append(vertices, m.Vertices...)
		for _, idx := range m.Indices {
			indices = append(indices, uint16(base+int(idx)))
		}
	}

	return model.NewAnimatedMesh(
		model.WithName(imported.Name),
		model.WithSkeleton(imported.Skeleton),
		model.WithAnimations(imported.Animations),
		model.WithTopology(vertices, indices),
	)
}
