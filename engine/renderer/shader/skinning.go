package shader

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/config"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

//go:embed assets/skinning.wgsl
var skinningSource string

//go:embed assets/default_fragment.wgsl
var defaultFragmentSource string

const (
	// ViewProjectionParameter names the view-projection slot of a skinning shader.
	ViewProjectionParameter = "skin.view_proj"

	// BoneParameterPrefix is the array parameter holding bone matrices; element i is "skin.bones[i]".
	BoneParameterPrefix = "skin.bones"
)

// BoneParameter returns the name of the i-th bone matrix slot.
func BoneParameter(i int) string {
	return BoneParameterPrefix + "[" + strconv.Itoa(i) + "]"
}

// ComposeSkinningSource assembles the skinning vertex stage for maxBones bones followed by the
// fragment stage. An empty fragment selects the built-in Lambert fragment.
//
// Parameters:
//   - maxBones: the bone matrix array length
//   - fragment: custom fragment source defining fp_animatedmesh, or empty
//
// Returns:
//   - string: the complete WGSL source
func ComposeSkinningSource(maxBones int, fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		fragment = defaultFragmentSource
	}
	header := strings.NewReplacer(
		"{{MAX_BONES}}", strconv.Itoa(maxBones),
		"{{VERTEX_INPUT}}", strings.TrimSpace(model.GPUSkinnedVertexSource),
	).Replace(skinningSource)
	return header + "\n" + fragment
}

// NewSkinningShader builds the animated mesh program: a view-projection matrix and maxBones bone
// matrices at @group(0) @binding(0), the four-bone skinning vertex stage, and either the default
// fragment stage or customFragment. Every bone slot starts as identity.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - maxBones: the number of bone slots, 1 to config.MaxSupportedBones
//   - customFragment: custom fragment source defining fp_animatedmesh, or empty for the default
//   - options: ShaderBuilderOption functions to customize the shader
//
// Returns:
//   - Shader: the reflected shader
//   - error: ErrInvalidMaxBones, or a *ShaderCompilationError
func NewSkinningShader(key string, maxBones int, customFragment string, options ...ShaderBuilderOption) (Shader, error) {
	if maxBones < 1 || maxBones > config.MaxSupportedBones {
		return nil, fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidMaxBones, maxBones, config.MaxSupportedBones)
	}

	s, err := NewShader(key, ComposeSkinningSource(maxBones, customFragment), options...)
	if err != nil {
		return nil, err
	}

	if _, ok := s.Parameter(ViewProjectionParameter); !ok {
		return nil, &ShaderCompilationError{Key: key, Reason: "missing " + ViewProjectionParameter}
	}
	identity := common.Identity4()
	if err := s.SetMatrix(ViewProjectionParameter, identity); err != nil {
		return nil, err
	}
	for i := range maxBones {
		if err := s.SetMatrix(BoneParameter(i), identity); err != nil {
			return nil, &ShaderCompilationError{Key: key, Reason: "bone slot unavailable", Err: err}
		}
	}
	return s, nil
}
