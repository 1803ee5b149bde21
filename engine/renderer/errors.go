package renderer

import "errors"

var (
	ErrNilMesh         = errors.New("animated mesh renderer requires a mesh")
	ErrNilBackend      = errors.New("animated mesh renderer requires a backend")
	ErrInvalidMesh     = errors.New("animated mesh failed validation")
	ErrTooManyBones    = errors.New("mesh has more bones than the renderer has bone slots")
	ErrInvalidMaxBones = errors.New("max bones out of range")
	ErrPoseMismatch    = errors.New("skinning matrix count does not match the mesh bone count")
	ErrReleased        = errors.New("animated mesh renderer already released")
)
