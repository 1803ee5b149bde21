package model

// AnimatedMeshBuilderOption is a functional option for configuring an AnimatedMesh via NewAnimatedMesh.
type AnimatedMeshBuilderOption func(*animatedMesh)

// WithName is an option builder that sets the name of the AnimatedMesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - AnimatedMeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) AnimatedMeshBuilderOption {
	return func(m *animatedMesh) {
		m.name = name
	}
}

// WithSkeleton is an option builder that sets the bone hierarchy of the AnimatedMesh.
// Bones must already be ordered parent-before-child.
//
// Parameters:
//   - skeleton: the skeleton to set
//
// Returns:
//   - AnimatedMeshBuilderOption: a function that applies the skeleton option to a mesh
func WithSkeleton(skeleton *Skeleton) AnimatedMeshBuilderOption {
	return func(m *animatedMesh) {
		m.skeleton = skeleton
	}
}

// WithAnimations is an option builder that sets the animation clips of the AnimatedMesh.
//
// Parameters:
//   - animations: the animation clips to set
//
// Returns:
//   - AnimatedMeshBuilderOption: a function that applies the animations option to a mesh
func WithAnimations(animations []*AnimationClip) AnimatedMeshBuilderOption {
	return func(m *animatedMesh) {
		m.animations = animations
	}
}

// WithTopology is an option builder that sets the static vertex and index data of the AnimatedMesh.
//
// Parameters:
//   - vertices: the packed skinned vertices
//   - indices: the 16-bit triangle indices
//
// Returns:
//   - AnimatedMeshBuilderOption: a function that applies the topology option to a mesh
func WithTopology(vertices []GPUSkinnedVertex, indices []uint16) AnimatedMeshBuilderOption {
	return func(m *animatedMesh) {
		m.vertices = vertices
		m.indices = indices
	}
}
