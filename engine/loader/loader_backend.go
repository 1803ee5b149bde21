package loader

import (
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// loaderBackend is implemented by each supported file format.
// It produces the format-neutral ImportedModel which the Loader then packs into an AnimatedMesh.
type loaderBackend interface {
	// Extensions lists the lower-case file extensions (with dot) this backend handles.
	Extensions() []string

	// Import loads a model from disk.
	//
	// Parameters:
	//   - path: the file path
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if the file cannot be imported
	Import(path string) (*model.ImportedModel, error)

	// ImportBytes loads a model from memory. External file references cannot be resolved.
	//
	// Parameters:
	//   - data: the encoded model
	//   - name: fallback model name
	//
	// Returns:
	//   - *model.ImportedModel: the imported model
	//   - error: error if the data cannot be imported
	ImportBytes(data []byte, name string) (*model.ImportedModel, error)
}
