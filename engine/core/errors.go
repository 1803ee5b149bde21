package core

import (
	"errors"
)

var (
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrSurfaceLost     = errors.New("surface lost or outdated")
)
