package loader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// openDocument decodes a .gltf or .glb file. External buffers resolve relative to the file.
func openDocument(path string) (*gltf.Document, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc, checkDocument(doc)
}

// decodeDocument decodes an in-memory asset. glTF JSON must embed its buffers as data URIs.
func decodeDocument(data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc, checkDocument(doc)
}

// checkDocument rejects assets that are not glTF 2.x or that need an extension to be read.
func checkDocument(doc *gltf.Document) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("%w: asset version %q", ErrInvalidDocument, doc.Asset.Version)
	}
	if len(doc.ExtensionsRequired) > 0 {
		return fmt.Errorf("%w: %s", ErrUnsupportedExtension, strings.Join(doc.ExtensionsRequired, ", "))
	}
	return nil
}

// index dereferences an optional glTF index.
func index[T int | *int](v T) (int, bool) {
	switch x := any(v).(type) {
	case *int:
		if x == nil {
			return 0, false
		}
		return *x, true
	case int:
		return x, true
	}
	return 0, false
}

// accessor returns the accessor at i after checking its element type.
func accessor(doc *gltf.Document, i int, want gltf.AccessorType) (*gltf.Accessor, error) {
	if i < 0 || i >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidAccessor, i)
	}
	acr := doc.Accessors[i]
	if acr.Type != want {
		return nil, fmt.Errorf("%w: accessor %d is %v, want %v", ErrInvalidAccessor, i, acr.Type, want)
	}
	return acr, nil
}

// readScalars reads a float SCALAR accessor such as keyframe times.
func readScalars(doc *gltf.Document, i int) ([]float32, error) {
	acr, err := accessor(doc, i, gltf.AccessorScalar)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessor, err)
	}
	values, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("%w: accessor %d is not float", ErrInvalidAccessor, i)
	}
	return values, nil
}

// readVec3s reads a float VEC3 accessor such as translation or scale keys.
func readVec3s(doc *gltf.Document, i int) ([][3]float32, error) {
	acr, err := accessor(doc, i, gltf.AccessorVec3)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessor, err)
	}
	values, ok := data.([][3]float32)
	if !ok {
		return nil, fmt.Errorf("%w: accessor %d is not float", ErrInvalidAccessor, i)
	}
	return values, nil
}

// readVec4s reads a VEC4 accessor such as rotation keys. Normalized integer components are
// mapped back to [-1, 1] or [0, 1].
func readVec4s(doc *gltf.Document, i int) ([][4]float32, error) {
	acr, err := accessor(doc, i, gltf.AccessorVec4)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessor, err)
	}

	switch v := data.(type) {
	case [][4]float32:
		return v, nil
	case [][4]int8:
		return denormalize(v, func(c int8) float32 { return max(float32(c)/127, -1) }), nil
	case [][4]uint8:
		return denormalize(v, func(c uint8) float32 { return float32(c) / 255 }), nil
	case [][4]int16:
		return denormalize(v, func(c int16) float32 { return max(float32(c)/32767, -1) }), nil
	case [][4]uint16:
		return denormalize(v, func(c uint16) float32 { return float32(c) / 65535 }), nil
	}
	return nil, fmt.Errorf("%w: accessor %d has component type %v", ErrInvalidAccessor, i, acr.ComponentType)
}

func denormalize[T int8 | uint8 | int16 | uint16](in [][4]T, conv func(T) float32) [][4]float32 {
	out := make([][4]float32, len(in))
	for i, v := range in {
		out[i] = [4]float32{conv(v[0]), conv(v[1]), conv(v[2]), conv(v[3])}
	}
	return out
}

// readMat4s reads a float MAT4 accessor into column-major matrices.
func readMat4s(doc *gltf.Document, i int) ([][16]float32, error) {
	acr, err := accessor(doc, i, gltf.AccessorMat4)
	if err != nil {
		return nil, err
	}
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAccessor, err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("%w: accessor %d is not float", ErrInvalidAccessor, i)
	}

	out := make([][16]float32, len(mats))
	for m, cols := range mats {
		for c := range cols {
			copy(out[m][c*4:], cols[c][:])
		}
	}
	return out, nil
}
