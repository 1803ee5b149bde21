package loader

import (
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/qmuntal/gltf"
)

// extractAnimations converts every animation that targets a joint of the binding into a clip.
// Morph target weight channels and channels on non-joint nodes are skipped.
func extractAnimations(doc *gltf.Document, binding *gltfSkinBinding) ([]*model.AnimationClip, error) {
	var clips []*model.AnimationClip

	for ai := range doc.Animations {
		clip, err := extractAnimation(doc, ai, binding.nodeToBone)
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", ai, err)
		}
		if clip != nil {
			clips = append(clips, clip)
		}
	}
	return clips, nil
}

func extractAnimation(doc *gltf.Document, animIndex int, nodeToBone map[int]int32) (*model.AnimationClip, error) {
	anim := doc.Animations[animIndex]
	channels := make(map[int32]*model.AnimationChannel)
	var duration float32

	for ci, ch := range anim.Channels {
		if ch.Target.Node == nil || ch.Target.Path == gltf.TRSWeights {
			continue
		}
		bone, ok := nodeToBone[*ch.Target.Node]
		if !ok {
			continue
		}
		si, ok := index(ch.Sampler)
		if !ok || si < 0 || si >= len(anim.Samplers) {
			return nil, fmt.Errorf("%w: channel %d sampler %d", ErrInvalidDocument, ci, si)
		}
		sampler := anim.Samplers[si]
		input, _ := index(sampler.Input)
		output, _ := index(sampler.Output)
		cubic := sampler.Interpolation == gltf.InterpolationCubicSpline

		times, err := readScalars(doc, input)
		if err != nil {
			return nil, fmt.Errorf("channel %d times: %w", ci, err)
		}
		if len(times) == 0 {
			continue
		}
		duration = max(duration, times[len(times)-1])

		target := channels[bone]
		if target == nil {
			target = &model.AnimationChannel{BoneIndex: bone}
			channels[bone] = target
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, err := readVec3s(doc, output)
			if err != nil {
				return nil, fmt.Errorf("channel %d %v: %w", ci, ch.Target.Path, err)
			}
			if values, err = keyValues(values, len(times), cubic); err != nil {
				return nil, fmt.Errorf("channel %d %v: %w", ci, ch.Target.Path, err)
			}
			keys := make([]model.VectorKeyframe, len(times))
			for k := range keys {
				keys[k] = model.VectorKeyframe{Time: times[k], Value: values[k]}
			}
			if ch.Target.Path == gltf.TRSTranslation {
				target.PositionKeys = keys
			} else {
				target.ScaleKeys = keys
			}
		case gltf.TRSRotation:
			values, err := readVec4s(doc, output)
			if err != nil {
				return nil, fmt.Errorf("channel %d rotation: %w", ci, err)
			}
			if values, err = keyValues(values, len(times), cubic); err != nil {
				return nil, fmt.Errorf("channel %d rotation: %w", ci, err)
			}
			keys := make([]model.QuaternionKeyframe, len(times))
			for k := range keys {
				keys[k] = model.QuaternionKeyframe{Time: times[k], Value: values[k]}
			}
			target.RotationKeys = keys
		}
	}

	if len(channels) == 0 {
		return nil, nil
	}

	clip := &model.AnimationClip{
		Name:           anim.Name,
		Duration:       duration,
		TicksPerSecond: 1,
		Channels:       make([]model.AnimationChannel, 0, len(channels)),
	}
	if clip.Name == "" {
		clip.Name = fmt.Sprintf("animation_%d", animIndex)
	}
	for _, ch := range channels {
		clip.Channels = append(clip.Channels, *ch)
	}
	slices.SortFunc(clip.Channels, func(a, b model.AnimationChannel) int {
		return int(a.BoneIndex - b.BoneIndex)
	})
	return clip, nil
}

// keyValues checks a sampler's output against its key count, one element per key.
// Cubic spline outputs carry in-tangent, value and out-tangent per key; only the value is kept.
func keyValues[T any](values []T, keys int, cubic bool) ([]T, error) {
	if !cubic {
		if len(values) != keys {
			return nil, fmt.Errorf("%w: %d values for %d keys", ErrInvalidAccessor, len(values), keys)
		}
		return values, nil
	}

	if len(values) != keys*3 {
		return nil, fmt.Errorf("%w: %d cubic spline values for %d keys", ErrInvalidAccessor, len(values), keys)
	}
	out := make([]T, keys)
	for k := range out {
		out[k] = values[k*3+1]
	}
	return out, nil
}
