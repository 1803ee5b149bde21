package animation

import "errors"

var (
	ErrNilMesh         = errors.New("controller requires an animated mesh")
	ErrClipOutOfRange  = errors.New("animation clip index out of range")
	ErrClipNotFound    = errors.New("animation clip not found")
	ErrInvalidDuration = errors.New("blend duration must not be negative")
)
