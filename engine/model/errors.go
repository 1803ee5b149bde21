package model

import "errors"

var (
	ErrNoSkeleton           = errors.New("animated mesh has no skeleton")
	ErrInvalidBoneHierarchy = errors.New("bone parent must precede the bone")
	ErrBoneIndexOutOfRange  = errors.New("bone index out of range")
	ErrEmptyTopology        = errors.New("animated mesh has no triangles")
	ErrIndexOutOfRange      = errors.New("vertex index out of range")
	ErrTooManyVertices      = errors.New("vertex count exceeds 16-bit index range")
	ErrInvalidClip          = errors.New("invalid animation clip")
)
