package loader

import "errors"

var (
	ErrUnsupportedFormat    = errors.New("unsupported model format")
	ErrInvalidDocument      = errors.New("invalid glTF document")
	ErrInvalidAccessor      = errors.New("invalid glTF accessor")
	ErrUnsupportedExtension = errors.New("required glTF extension not supported")
	ErrNoSkin               = errors.New("model has no skin")
	ErrNoSkinnedPrimitives  = errors.New("model has no skinned triangle primitives")
)
