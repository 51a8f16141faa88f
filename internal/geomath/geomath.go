// Package geomath holds the vector and quaternion helpers shared by the
// physics packages. Quaternions follow the [w, x, y, z] Hamilton convention
// of mgl64, with the scalar part in W.
package geomath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a 3-vector in either the body or the world frame.
type Vec3 = mgl64.Vec3

// Quat is an orientation quaternion (world from body).
type Quat = mgl64.Quat

// Epsilon guards normalizations against zero-norm inputs.
const Epsilon = 1e-12

// Identity returns the identity rotation.
func Identity() Quat {
	return mgl64.QuatIdent()
}

// FromYaw returns a rotation of yaw radians about the world z axis.
func FromYaw(yaw float64) Quat {
	return Quat{W: math.Cos(yaw / 2), V: Vec3{0, 0, math.Sin(yaw / 2)}}
}

// Yaw extracts the heading angle of q about the z axis.
func Yaw(q Quat) float64 {
	x, y, z := q.V[0], q.V[1], q.V[2]
	return math.Atan2(2*(q.W*z+x*y), 1-2*(y*y+z*z))
}

// SafeNormalize returns v scaled to unit length, or the zero vector when v
// has no usable direction.
func SafeNormalize(v Vec3) Vec3 {
	l := v.Len()
	if l < Epsilon {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// NormalizeQuat returns q scaled to unit length. A degenerate quaternion
// collapses to the identity.
func NormalizeQuat(q Quat) Quat {
	l := math.Sqrt(q.W*q.W + q.V.Dot(q.V))
	if l < Epsilon {
		return Identity()
	}
	return Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// QuatNorm returns the Euclidean norm of q.
func QuatNorm(q Quat) float64 {
	return math.Sqrt(q.W*q.W + q.V.Dot(q.V))
}

// YawOnly drops the roll and pitch components of q and renormalizes the
// remaining rotation about z.
func YawOnly(q Quat) Quat {
	return NormalizeQuat(Quat{W: q.W, V: Vec3{0, 0, q.V[2]}})
}

// Derivative returns dq/dt = 0.5 * q ⊗ (0, w) for a body-frame angular
// velocity w.
func Derivative(q Quat, w Vec3) Quat {
	return q.Mul(Quat{W: 0, V: w}).Scale(0.5)
}

// Rotate applies the rotation q to v (q ⊗ v ⊗ q*).
func Rotate(q Quat, v Vec3) Vec3 {
	return q.Rotate(v)
}

// RotateInverse expresses the world-frame vector v in the body frame.
func RotateInverse(q Quat, v Vec3) Vec3 {
	return q.Conjugate().Rotate(v)
}

// Hadamard multiplies a and b element-wise.
func Hadamard(a, b Vec3) Vec3 {
	return Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// FlipNED converts a body-referenced vector to the north-east-down sign
// convention by negating the y and z axes.
func FlipNED(v Vec3) Vec3 {
	return Vec3{v[0], -v[1], -v[2]}
}

// Array returns q as [w, x, y, z].
func Array(q Quat) [4]float64 {
	return [4]float64{q.W, q.V[0], q.V[1], q.V[2]}
}
