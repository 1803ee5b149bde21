package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/qmuntal/gltf"
)

// gltfImporter is the glTF 2.0 loaderBackend. It reads the first skin, its skinned primitives and
// every animation that drives its joints.
type gltfImporter struct{}

var _ loaderBackend = &gltfImporter{}

// newGLTFImporter creates the glTF backend.
func newGLTFImporter() loaderBackend {
	return &gltfImporter{}
}

func (imp *gltfImporter) Extensions() []string {
	return []string{".gltf", ".glb"}
}

func (imp *gltfImporter) Import(path string) (*model.ImportedModel, error) {
	doc, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	return imp.importDocument(doc, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func (imp *gltfImporter) ImportBytes(data []byte, name string) (*model.ImportedModel, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return imp.importDocument(doc, name)
}

func (imp *gltfImporter) importDocument(doc *gltf.Document, fallbackName string) (*model.ImportedModel, error) {
	if len(doc.Skins) == 0 {
		return nil, ErrNoSkin
	}

	binding, err := extractSkin(doc, selectSkin(doc))
	if err != nil {
		return nil, fmt.Errorf("skeleton extraction failed: %w", err)
	}
	meshes, err := extractSkinnedMeshes(doc, binding)
	if err != nil {
		return nil, fmt.Errorf("mesh extraction failed: %w", err)
	}
	clips, err := extractAnimations(doc, binding)
	if err != nil {
		return nil, fmt.Errorf("animation extraction failed: %w", err)
	}

	return &model.ImportedModel{
		Name:       modelName(doc, fallbackName),
		Meshes:     meshes,
		Skeleton:   binding.skeleton,
		Animations: clips,
	}, nil
}

// modelName prefers the default scene's name over the fallback.
func modelName(doc *gltf.Document, fallback string) string {
	if scene, ok := index(doc.Scene); ok && scene >= 0 && scene < len(doc.Scenes) && doc.Scenes[scene].Name != "" {
		return doc.Scenes[scene].Name
	}
	if fallback != "" {
		return fallback
	}
	return "unnamed_model"
}
