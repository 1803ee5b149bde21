package animation

import (
	"sort"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// sampleVector returns the interpolated value of a vector track at time t.
// Times before the first key hold the first value; times after the last key hold the last value.
func sampleVector(keys []model.VectorKeyframe, t float32, fallback [3]float32) [3]float32 {
	switch len(keys) {
	case 0:
		return fallback
	case 1:
		return keys[0].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	if i == 0 {
		return keys[0].Value
	}
	if i == len(keys) {
		return keys[len(keys)-1].Value
	}
	a, b := keys[i-1], keys[i]
	return common.Lerp3(a.Value, b.Value, segmentFactor(a.Time, b.Time, t))
}

// sampleRotation is sampleVector for quaternion tracks, using spherical interpolation.
func sampleRotation(keys []model.QuaternionKeyframe, t float32, fallback [4]float32) [4]float32 {
	switch len(keys) {
	case 0:
		return fallback
	case 1:
		return keys[0].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Time > t })
	if i == 0 {
		return keys[0].Value
	}
	if i == len(keys) {
		return keys[len(keys)-1].Value
	}
	a, b := keys[i-1], keys[i]
	return common.QuatSlerp(a.Value, b.Value, segmentFactor(a.Time, b.Time, t))
}

func segmentFactor(t0, t1, t float32) float32 {
	span := t1 - t0
	if span <= 0 {
		return 0
	}
	f := (t - t0) / span
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// sampleClip writes the local transform of every bone at time t into out.
// Bones without a channel keep their bind pose. out must have one entry per bone.
func sampleClip(clip *model.AnimationClip, bindPose []model.Transform, t float32, out []model.Transform) {
	copy(out, bindPose)
	if clip == nil {
		return
	}
	for _, ch := range clip.Channels {
		bone := int(ch.BoneIndex)
		if bone < 0 || bone >= len(out) {
			continue
		}
		rest := bindPose[bone]
		out[bone] = model.Transform{
			Translation: sampleVector(ch.PositionKeys, t, rest.Translation),
			Rotation:    common.QuatNormalize(sampleRotation(ch.RotationKeys, t, rest.Rotation)),
			Scale:       sampleVector(ch.ScaleKeys, t, rest.Scale),
		}
	}
}

// blendPoses mixes b into a by weight w in place.
func blendPoses(a, b []model.Transform, w float32) {
	for i := range a {
		a[i] = model.Transform{
			Translation: common.Lerp3(a[i].Translation, b[i].Translation, w),
			Rotation:    common.QuatSlerp(a[i].Rotation, b[i].Rotation, w),
			Scale:       common.Lerp3(a[i].Scale, b[i].Scale, w),
		}
	}
}

// computeSkinning composes local transforms into world matrices parent-before-child and
// writes world * inverseBind for every bone into skinning. world is scratch space of the same length.
func computeSkinning(skeleton *model.Skeleton, local []model.Transform, world, skinning [][16]float32) {
	for i, bone := range skeleton.Bones {
		m := mgl32.Mat4(local[i].Matrix())
		if bone.ParentIndex >= 0 {
			m = mgl32.Mat4(world[bone.ParentIndex]).Mul4(m)
		}
		world[i] = m
		skinning[i] = m.Mul4(bone.InverseBindMatrix)
	}
}
