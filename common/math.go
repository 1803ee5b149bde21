package common

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// zeroToOneDepth remaps OpenGL clip depth [-1, 1] to the WebGPU range [0, 1]: z' = 0.5z + 0.5w.
var zeroToOneDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// PerspectiveZO creates a perspective projection matrix for WebGPU clip space, where depth
// runs from 0 at the near plane to 1 at the far plane.
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - mgl32.Mat4: the column-major projection matrix
func PerspectiveZO(fovY, aspect, near, far float32) mgl32.Mat4 {
	return zeroToOneDepth.Mul4(mgl32.Perspective(fovY, aspect, near, far))
}

// Identity4 returns a new 4x4 identity matrix.
//
// Returns:
//   - [16]float32: the identity matrix in column-major order
func Identity4() [16]float32 {
	return mgl32.Ident4()
}

// Quat converts an (x, y, z, w) rotation to an mgl32.Quat.
func Quat(q [4]float32) mgl32.Quat {
	return mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
}

// QuatXYZW converts an mgl32.Quat back to (x, y, z, w) order.
func QuatXYZW(q mgl32.Quat) [4]float32 {
	return [4]float32{q.V[0], q.V[1], q.V[2], q.W}
}

// ComposeTRS builds a column-major 4x4 matrix from a translation, a unit quaternion (x, y, z, w) and a scale.
// The result is equivalent to T * R * S.
//
// Parameters:
//   - t: translation
//   - q: rotation quaternion in (x, y, z, w) order
//   - s: per-axis scale
//
// Returns:
//   - [16]float32: the composed matrix
func ComposeTRS(t [3]float32, q [4]float32, s [3]float32) [16]float32 {
	return mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(Quat(q).Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// DecomposeTRS splits a column-major affine matrix into translation, rotation and scale.
// Shear is discarded. Axes with a near-zero scale keep an identity rotation basis.
//
// Parameters:
//   - m: source matrix
//
// Returns:
//   - [3]float32: translation
//   - [4]float32: rotation quaternion (x, y, z, w)
//   - [3]float32: scale
func DecomposeTRS(m [16]float32) ([3]float32, [4]float32, [3]float32) {
	mm := mgl32.Mat4(m)
	sx, sy, sz := mgl32.Extract3DScale(mm)
	s := [3]float32{sx, sy, sz}

	rot := mgl32.Ident4()
	for col := 0; col < 3; col++ {
		if s[col] < 1e-6 {
			continue
		}
		rot.SetCol(col, mm.Col(col).Mul(1/s[col]))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})

	t := mm.Col(3).Vec3()
	return t, QuatXYZW(mgl32.Mat4ToQuat(rot).Normalize()), s
}

// Lerp3 linearly interpolates between two 3-component vectors.
//
// Parameters:
//   - a: start value
//   - b: end value
//   - t: interpolation factor, 0 returns a and 1 returns b
//
// Returns:
//   - [3]float32: the interpolated vector
func Lerp3(a, b [3]float32, t float32) [3]float32 {
	va := mgl32.Vec3(a)
	return va.Add(mgl32.Vec3(b).Sub(va).Mul(t))
}

// QuatNormalize returns q scaled to unit length. A zero quaternion yields the identity rotation.
func QuatNormalize(q [4]float32) [4]float32 {
	return QuatXYZW(Quat(q).Normalize())
}

// QuatSlerp spherically interpolates between two rotations along the shortest arc.
//
// Parameters:
//   - a: start rotation (x, y, z, w)
//   - b: end rotation (x, y, z, w)
//   - t: interpolation factor in [0, 1]
//
// Returns:
//   - [4]float32: the interpolated unit quaternion
func QuatSlerp(a, b [4]float32, t float32) [4]float32 {
	return QuatXYZW(mgl32.QuatSlerp(Quat(a), Quat(b), t))
}

// PutFloat32s writes each value as a little-endian IEEE-754 float32 into buf starting at offset.
//
// Parameters:
//   - buf: destination byte slice (must hold offset + 4*len(values) bytes)
//   - offset: byte offset of the first value
//   - values: the floats to write
//
// Returns:
//   - int: the byte offset just past the last written value
func PutFloat32s(buf []byte, offset int, values ...float32) int {
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	return offset
}
