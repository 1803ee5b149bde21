package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-skin/engine/model"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// skinnedMeshIndices returns the meshes drawn by nodes bound to the given skin, in node order.
// When no node references the skin every mesh is considered.
func skinnedMeshIndices(doc *gltf.Document, skinIndex int) []int {
	seen := make(map[int]bool)
	var meshes []int
	for _, node := range doc.Nodes {
		if node.Mesh == nil || node.Skin == nil || *node.Skin != skinIndex || seen[*node.Mesh] {
			continue
		}
		seen[*node.Mesh] = true
		meshes = append(meshes, *node.Mesh)
	}
	if len(meshes) == 0 {
		for i := range doc.Meshes {
			meshes = append(meshes, i)
		}
	}
	return meshes
}

// extractSkinnedMeshes reads every triangle primitive carrying JOINTS_0 and WEIGHTS_0 from the
// skin's meshes. Joint slots are retargeted onto the sorted bone order.
func extractSkinnedMeshes(doc *gltf.Document, binding *gltfSkinBinding) ([]model.ImportedMesh, error) {
	var out []model.ImportedMesh

	for _, mi := range skinnedMeshIndices(doc, binding.skinIndex) {
		if mi < 0 || mi >= len(doc.Meshes) {
			return nil, fmt.Errorf("%w: mesh %d out of range", ErrInvalidDocument, mi)
		}
		mesh := doc.Meshes[mi]
		for pi, prim := range mesh.Primitives {
			if !isSkinnedTriangles(prim) {
				continue
			}
			imported, err := extractPrimitive(doc, prim, binding.jointToBone)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			imported.Name = fmt.Sprintf("%s#%d", mesh.Name, pi)
			if mesh.Name == "" {
				imported.Name = fmt.Sprintf("mesh_%d#%d", mi, pi)
			}
			out = append(out, *imported)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoSkinnedPrimitives
	}
	return out, nil
}

func isSkinnedTriangles(prim *gltf.Primitive) bool {
	if prim.Mode != gltf.PrimitiveTriangles {
		return false
	}
	_, hasPos := prim.Attributes[gltf.POSITION]
	_, hasJoints := prim.Attributes[gltf.JOINTS_0]
	_, hasWeights := prim.Attributes[gltf.WEIGHTS_0]
	return hasPos && hasJoints && hasWeights
}

func extractPrimitive(doc *gltf.Document, prim *gltf.Primitive, jointToBone []int32) (*model.ImportedMesh, error) {
	acr, err := accessor(doc, prim.Attributes[gltf.POSITION], gltf.AccessorVec3)
	if err != nil {
		return nil, fmt.Errorf("positions: %w", err)
	}
	positions, err := modeler.ReadPosition(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("positions: %w: %w", ErrInvalidAccessor, err)
	}
	count := len(positions)

	if acr, err = accessor(doc, prim.Attributes[gltf.JOINTS_0], gltf.AccessorVec4); err != nil {
		return nil, fmt.Errorf("joints: %w", err)
	}
	joints, err := modeler.ReadJoints(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("joints: %w: %w", ErrInvalidAccessor, err)
	}
	if acr, err = accessor(doc, prim.Attributes[gltf.WEIGHTS_0], gltf.AccessorVec4); err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	weights, err := modeler.ReadWeights(doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("weights: %w: %w", ErrInvalidAccessor, err)
	}
	if len(joints) != count || len(weights) != count {
		return nil, fmt.Errorf("%w: %d positions, %d joints, %d weights", ErrInvalidAccessor, count, len(joints), len(weights))
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		if acr, err = accessor(doc, idx, gltf.AccessorVec3); err != nil {
			return nil, fmt.Errorf("normals: %w", err)
		}
		if normals, err = modeler.ReadNormal(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("normals: %w: %w", ErrInvalidAccessor, err)
		}
		if len(normals) != count {
			return nil, fmt.Errorf("%w: %d normals for %d positions", ErrInvalidAccessor, len(normals), count)
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err = accessor(doc, idx, gltf.AccessorVec2); err != nil {
			return nil, fmt.Errorf("texcoords: %w", err)
		}
		if uvs, err = modeler.ReadTextureCoord(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("texcoords: %w: %w", ErrInvalidAccessor, err)
		}
		if len(uvs) != count {
			return nil, fmt.Errorf("%w: %d texcoords for %d positions", ErrInvalidAccessor, len(uvs), count)
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		if acr, err = accessor(doc, *prim.Indices, gltf.AccessorScalar); err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		if indices, err = modeler.ReadIndices(doc, acr, nil); err != nil {
			return nil, fmt.Errorf("indices: %w: %w", ErrInvalidAccessor, err)
		}
	} else {
		indices = make([]uint32, count)
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("%w: %d indices is not a triangle list", ErrInvalidAccessor, len(indices))
	}
	for _, idx := range indices {
		if int(idx) >= count {
			return nil, fmt.Errorf("%w: index %d for %d vertices", ErrInvalidAccessor, idx, count)
		}
	}
	if normals == nil {
		normals = smoothNormals(positions, indices)
	}

	mesh := &model.ImportedMesh{
		Vertices: make([]model.GPUSkinnedVertex, count),
		Indices:  indices,
	}
	for i, pos := range positions {
		var uv [2]float32
		if uvs != nil {
			uv = uvs[i]
		}
		jw := weights[i]
		var ji [4]uint32
		for k, slot := range joints[i] {
			if int(slot) >= len(jointToBone) {
				if jw[k] != 0 {
					return nil, fmt.Errorf("%w: vertex %d joint %d outside skin", ErrInvalidAccessor, i, slot)
				}
				continue
			}
			ji[k] = uint32(jointToBone[slot])
		}
		mesh.Vertices[i] = model.NewSkinnedVertex(pos, normals[i], uv, ji, jw)

		if i == 0 {
			mesh.BoundingMin, mesh.BoundingMax = pos, pos
		}
		for k := 0; k < 3; k++ {
			mesh.BoundingMin[k] = min(mesh.BoundingMin[k], pos[k])
			mesh.BoundingMax[k] = max(mesh.BoundingMax[k], pos[k])
		}
	}
	return mesh, nil
}

// smoothNormals accumulates area-weighted face normals per vertex.
func smoothNormals(positions [][3]float32, indices []uint32) [][3]float32 {
	normals := make([]mgl32.Vec3, len(positions))
	for t := 0; t+2 < len(indices); t += 3 {
		a, b, c := indices[t], indices[t+1], indices[t+2]
		pa := mgl32.Vec3(positions[a])
		n := mgl32.Vec3(positions[b]).Sub(pa).Cross(mgl32.Vec3(positions[c]).Sub(pa))
		normals[a] = normals[a].Add(n)
		normals[b] = normals[b].Add(n)
		normals[c] = normals[c].Add(n)
	}

	out := make([][3]float32, len(normals))
	for v, n := range normals {
		if n.Len() > 1e-8 {
			out[v] = n.Normalize()
		} else {
			out[v] = [3]float32{0, 1, 0}
		}
	}
	return out
}
