package shader

import (
	"errors"
	"fmt"
)

var (
	// ErrShaderCompilation matches every *ShaderCompilationError under errors.Is.
	ErrShaderCompilation = errors.New("shader compilation failed")
	ErrParameterNotFound = errors.New("shader parameter not found")
	ErrParameterType     = errors.New("shader parameter type mismatch")
	ErrInvalidMaxBones   = errors.New("max bones out of range")
)

// ShaderCompilationError reports WGSL source that could not be turned into a usable program,
// either because the front end rejected it or because a required entry point or binding is missing.
type ShaderCompilationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ShaderCompilationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shader %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("shader %q: %s", e.Key, e.Reason)
}

func (e *ShaderCompilationError) Unwrap() error {
	return e.Err
}

func (e *ShaderCompilationError) Is(target error) bool {
	return target == ErrShaderCompilation
}
