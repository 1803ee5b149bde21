package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/common"
	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/qmuntal/gltf"
)

// gltfSkinBinding is a skeleton extracted from a glTF skin plus the index maps needed to
// retarget vertex joints and animation channels onto the sorted bone order.
type gltfSkinBinding struct {
	skinIndex int
	skeleton  *model.Skeleton

	// jointToBone maps a skin joint slot (the JOINTS_0 value) to a sorted bone index.
	jointToBone []int32

	// nodeToBone maps a glTF node index to a sorted bone index.
	nodeToBone map[int]int32
}

// selectSkin picks the skin bound to the first skinned mesh node, falling back to skin 0.
func selectSkin(doc *gltf.Document) int {
	for _, node := range doc.Nodes {
		if node.Mesh != nil && node.Skin != nil && *node.Skin >= 0 && *node.Skin < len(doc.Skins) {
			return *node.Skin
		}
	}
	return 0
}

// extractSkin builds a parent-before-child skeleton from the given skin.
func extractSkin(doc *gltf.Document, skinIndex int) (*gltfSkinBinding, error) {
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("%w: skin %d of %d", ErrNoSkin, skinIndex, len(doc.Skins))
	}
	skin := doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, fmt.Errorf("%w: skin %d has no joints", ErrNoSkin, skinIndex)
	}

	var ibms [][16]float32
	if skin.InverseBindMatrices != nil {
		var err error
		ibms, err = readMat4s(doc, *skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("inverse bind matrices: %w", err)
		}
		if len(ibms) < len(skin.Joints) {
			return nil, fmt.Errorf("%w: %d inverse bind matrices for %d joints", ErrInvalidAccessor, len(ibms), len(skin.Joints))
		}
	}

	nodeParent := make([]int, len(doc.Nodes))
	for i := range nodeParent {
		nodeParent[i] = -1
	}
	for parent, node := range doc.Nodes {
		for _, child := range node.Children {
			if child >= 0 && child < len(nodeParent) {
				nodeParent[child] = parent
			}
		}
	}

	jointSlot := make(map[int]int, len(skin.Joints))
	for slot, node := range skin.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, fmt.Errorf("%w: joint %d references node %d", ErrInvalidDocument, slot, node)
		}
		jointSlot[node] = slot
	}

	// Nearest ancestor that is itself a joint of this skin.
	parentSlot := make([]int, len(skin.Joints))
	for slot, node := range skin.Joints {
		parentSlot[slot] = -1
		for n, steps := nodeParent[node], 0; n >= 0 && steps < len(doc.Nodes); n, steps = nodeParent[n], steps+1 {
			if ps, ok := jointSlot[n]; ok {
				parentSlot[slot] = ps
				break
			}
		}
	}

	order := sortJoints(parentSlot)
	if len(order) != len(parentSlot) {
		return nil, fmt.Errorf("%w: skin %d joint hierarchy has a cycle", ErrInvalidDocument, skinIndex)
	}
	jointToBone := make([]int32, len(skin.Joints))
	for bone, slot := range order {
		jointToBone[slot] = int32(bone)
	}

	skeleton := &model.Skeleton{
		Bones:           make([]model.Bone, len(order)),
		BoneNameToIndex: make(map[string]int32, len(order)),
	}
	nodeToBone := make(map[int]int32, len(order))
	for bone, slot := range order {
		node := doc.Nodes[skin.Joints[slot]]
		b := model.Bone{
			Name:              common.Coalesce(node.Name, fmt.Sprintf("bone_%d", slot)),
			ParentIndex:       -1,
			InverseBindMatrix: common.Identity4(),
			LocalTransform:    nodeTransform(node),
		}
		if ps := parentSlot[slot]; ps >= 0 {
			b.ParentIndex = jointToBone[ps]
		} else {
			skeleton.RootBoneIndices = append(skeleton.RootBoneIndices, int32(bone))
		}
		if ibms != nil {
			b.InverseBindMatrix = ibms[slot]
		}

		skeleton.Bones[bone] = b
		skeleton.BoneNameToIndex[b.Name] = int32(bone)
		nodeToBone[skin.Joints[slot]] = int32(bone)
	}

	return &gltfSkinBinding{
		skinIndex:   skinIndex,
		skeleton:    skeleton,
		jointToBone: jointToBone,
		nodeToBone:  nodeToBone,
	}, nil
}

// sortJoints orders joint slots breadth-first from the roots so every parent precedes its children.
func sortJoints(parentSlot []int) []int {
	children := make([][]int, len(parentSlot))
	queue := make([]int, 0, len(parentSlot))
	for slot, parent := range parentSlot {
		if parent < 0 {
			queue = append(queue, slot)
		} else {
			children[parent] = append(children[parent], slot)
		}
	}

	order := make([]int, 0, len(parentSlot))
	for len(queue) > 0 {
		slot := queue[0]
		queue = queue[1:]
		order = append(order, slot)
		queue = append(queue, children[slot]...)
	}
	return order
}

// nodeTransform returns the node's local transform, decomposing Matrix when it is not the identity.
func nodeTransform(node *gltf.Node) model.Transform {
	var m [16]float32
	for i, v := range node.MatrixOrDefault() {
		m[i] = float32(v)
	}
	if m != common.Identity4() {
		t, r, s := common.DecomposeTRS(m)
		return model.Transform{Translation: t, Rotation: r, Scale: s}
	}

	var tr model.Transform
	for i, v := range node.TranslationOrDefault() {
		tr.Translation[i] = float32(v)
	}
	for i, v := range node.RotationOrDefault() {
		tr.Rotation[i] = float32(v)
	}
	for i, v := range node.ScaleOrDefault() {
		tr.Scale[i] = float32(v)
	}
	tr.Rotation = common.QuatNormalize(tr.Rotation)
	return tr
}
