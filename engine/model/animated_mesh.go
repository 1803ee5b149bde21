package model

import (
	"fmt"
)

// animatedMesh is the implementation of the AnimatedMesh interface.
// It is immutable after construction, which lets any number of renderers and controllers share one value.
type animatedMesh struct {
	name           string
	skeleton       *Skeleton
	animations     []*AnimationClip
	vertices       []GPUSkinnedVertex
	indices        []uint16
	boundingRadius float32
}

// AnimatedMesh is the static definition of a skinned mesh: its topology, bind pose and bone hierarchy,
// along with the animation clips authored for it.
// Values are shared read-only; callers must not mutate the slices returned by its accessors.
type AnimatedMesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Skeleton retrieves the bone hierarchy in parent-before-child order.
	//
	// Returns:
	//   - *Skeleton: the skeleton
	Skeleton() *Skeleton

	// BoneCount returns the number of bones in the skeleton.
	//
	// Returns:
	//   - int: the bone count, 0 when the skeleton is missing
	BoneCount() int

	// BindPose returns the local bind-pose transform of every bone.
	//
	// Returns:
	//   - []Transform: one transform per bone
	BindPose() []Transform

	// Animations retrieves all animation clips bundled with this mesh.
	//
	// Returns:
	//   - []*AnimationClip: the animation clips
	Animations() []*AnimationClip

	// AnimationIndex finds a clip by name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - int: the clip index, or -1 if no clip has that name
	AnimationIndex(name string) int

	// Vertices retrieves the packed skinned vertices.
	//
	// Returns:
	//   - []GPUSkinnedVertex: the vertex data
	Vertices() []GPUSkinnedVertex

	// Indices retrieves the 16-bit triangle indices.
	//
	// Returns:
	//   - []uint16: the index data
	Indices() []uint16

	// BoundingRadius returns the radius of the bind-pose bounding sphere centred on the origin.
	//
	// Returns:
	//   - float32: the radius
	BoundingRadius() float32

	// Validate checks the skeleton, topology and animation data for consistency.
	//
	// Returns:
	//   - error: the first inconsistency found, or nil
	Validate() error
}

var _ AnimatedMesh = &animatedMesh{}

// NewAnimatedMesh creates an AnimatedMesh from the given options and validates it.
//
// Parameters:
//   - options: functional options to configure the mesh
//
// Returns:
//   - AnimatedMesh: the validated mesh
//   - error: a validation error if the data is inconsistent
func NewAnimatedMesh(options ...AnimatedMeshBuilderOption) (AnimatedMesh, error) {
	m := &animatedMesh{}
	for _, opt := range options {
		opt(m)
	}
	if m.skeleton != nil && m.skeleton.BoneNameToIndex == nil {
		m.skeleton.BoneNameToIndex = make(map[string]int32, len(m.skeleton.Bones))
		for i, b := range m.skeleton.Bones {
			m.skeleton.BoneNameToIndex[b.Name] = int32(i)
		}
	}
	if m.skeleton != nil && len(m.skeleton.RootBoneIndices) == 0 {
		for i, b := range m.skeleton.Bones {
			if b.ParentIndex < 0 {
				m.skeleton.RootBoneIndices = append(m.skeleton.RootBoneIndices, int32(i))
			}
		}
	}
	m.boundingRadius = ComputeBoundingRadius(m.vertices)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *animatedMesh) Name() string {
	return m.name
}

func (m *animatedMesh) Skeleton() *Skeleton {
	return m.skeleton
}

func (m *animatedMesh) BoneCount() int {
	if m.skeleton == nil {
		return 0
	}
	return len(m.skeleton.Bones)
}

func (m *animatedMesh) BindPose() []Transform {
	if m.skeleton == nil {
		return nil
	}
	pose := make([]Transform, len(m.skeleton.Bones))
	for i, b := range m.skeleton.Bones {
		pose[i] = b.LocalTransform
	}
	return pose
}

func (m *animatedMesh) Animations() []*AnimationClip {
	return m.animations
}

func (m *animatedMesh) AnimationIndex(name string) int {
	for i, clip := range m.animations {
		if clip != nil && clip.Name == name {
			return i
		}
	}
	return -1
}

func (m *animatedMesh) Vertices() []GPUSkinnedVertex {
	return m.vertices
}

func (m *animatedMesh) Indices() []uint16 {
	return m.indices
}

func (m *animatedMesh) BoundingRadius() float32 {
	return m.boundingRadius
}

func (m *animatedMesh) Validate() error {
	if m.skeleton == nil || len(m.skeleton.Bones) == 0 {
		return ErrNoSkeleton
	}
	boneCount := len(m.skeleton.Bones)
	for i, b := range m.skeleton.Bones {
		if b.ParentIndex >= int32(i) || b.ParentIndex < -1 {
			return fmt.Errorf("%w: bone %d (%s) has parent %d", ErrInvalidBoneHierarchy, i, b.Name, b.ParentIndex)
		}
	}

	if len(m.vertices) > MaxVertexCount {
		return fmt.Errorf("%w: %d vertices", ErrTooManyVertices, len(m.vertices))
	}
	if len(m.vertices) == 0 || len(m.indices) == 0 || len(m.indices)%3 != 0 {
		return fmt.Errorf("%w: %d vertices, %d indices", ErrEmptyTopology, len(m.vertices), len(m.indices))
	}
	for i, idx := range m.indices {
		if int(idx) >= len(m.vertices) {
			return fmt.Errorf("%w: index %d references vertex %d of %d", ErrIndexOutOfRange, i, idx, len(m.vertices))
		}
	}

	for i := range m.vertices {
		weights := m.vertices[i].Weights()
		for k, bone := range m.vertices[i].BoneIndices {
			if weights[k] == 0 {
				continue
			}
			if bone < 0 || int(bone) >= boneCount {
				return fmt.Errorf("%w: vertex %d references bone %v of %d", ErrBoneIndexOutOfRange, i, bone, boneCount)
			}
		}
	}

	for ci, clip := range m.animations {
		if clip == nil || clip.Duration < 0 {
			return fmt.Errorf("%w: clip %d", ErrInvalidClip, ci)
		}
		for _, ch := range clip.Channels {
			if ch.BoneIndex < 0 || int(ch.BoneIndex) >= boneCount {
				return fmt.Errorf("%w: clip %q channel targets bone %d of %d", ErrBoneIndexOutOfRange, clip.Name, ch.BoneIndex, boneCount)
			}
		}
	}
	return nil
}
