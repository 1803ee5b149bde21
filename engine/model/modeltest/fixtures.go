// Package modeltest provides small, hand-built animated meshes for tests.
package modeltest

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
)

// ChainSkeleton builds a straight chain of bones along +Y, one unit apart.
// Each bone's inverse bind matrix inverts its bind-pose world matrix.
//
// Parameters:
//   - boneCount: number of bones in the chain
//
// Returns:
//   - *model.Skeleton: the skeleton
func ChainSkeleton(boneCount int) *model.Skeleton {
	s := &model.Skeleton{}
	for i := 0; i < boneCount; i++ {
		local := model.IdentityTransform()
		if i > 0 {
			local.Translation = [3]float32{0, 1, 0}
		}
		inv := model.IdentityTransform()
		inv.Translation = [3]float32{0, -float32(i), 0}
		s.Bones = append(s.Bones, model.Bone{
			Name:              fmt.Sprintf("bone_%d", i),
			ParentIndex:       int32(i - 1),
			InverseBindMatrix: inv.Matrix(),
			LocalTransform:    local,
		})
	}
	return s
}

// ChainMesh builds an AnimatedMesh over ChainSkeleton(boneCount): one triangle per bone,
// each fully weighted to its bone, plus two clips.
// "Bend" rotates bone 1 (when present) by 90 degrees about Z over one second.
// "Lift" translates the root from the origin to (0, 2, 0) over two seconds.
//
// Parameters:
//   - boneCount: number of bones, at least 1
//
// Returns:
//   - model.AnimatedMesh: the mesh
func ChainMesh(boneCount int) model.AnimatedMesh {
	vertices := make([]model.GPUSkinnedVertex, 0, boneCount*3)
	indices := make([]uint16, 0, boneCount*3)
	for i := 0; i < boneCount; i++ {
		y := float32(i)
		joints := [4]uint32{uint32(i), 0, 0, 0}
		weights := [4]float32{1, 0, 0, 0}
		n := [3]float32{0, 0, 1}
		base := uint16(len(vertices))
		vertices = append(vertices,
			model.NewSkinnedVertex([3]float32{0, y, 0}, n, [2]float32{0, 0}, joints, weights),
			model.NewSkinnedVertex([3]float32{1, y, 0}, n, [2]float32{1, 0}, joints, weights),
			model.NewSkinnedVertex([3]float32{0, y + 1, 0}, n, [2]float32{0, 1}, joints, weights),
		)
		indices = append(indices, base, base+1, base+2)
	}

	half := float32(math.Sqrt(0.5))
	clips := []*model.AnimationClip{
		{
			Name:     "Lift",
			Duration: 2,
			Channels: []model.AnimationChannel{{
				BoneIndex: 0,
				PositionKeys: []model.VectorKeyframe{
					{Time: 0, Value: [3]float32{0, 0, 0}},
					{Time: 2, Value: [3]float32{0, 2, 0}},
				},
			}},
		},
	}
	if boneCount > 1 {
		clips = append(clips, &model.AnimationClip{
			Name:     "Bend",
			Duration: 1,
			Channels: []model.AnimationChannel{{
				BoneIndex: 1,
				RotationKeys: []model.QuaternionKeyframe{
					{Time: 0, Value: [4]float32{0, 0, 0, 1}},
					{Time: 1, Value: [4]float32{0, 0, half, half}},
				},
			}},
		})
	}

	mesh, err := model.NewAnimatedMesh(
		model.WithName(fmt.Sprintf("chain_%d", boneCount)),
		model.WithSkeleton(ChainSkeleton(boneCount)),
		model.WithAnimations(clips),
		model.WithTopology(vertices, indices),
	)
	if err != nil {
		panic(err)
	}
	return mesh
}
