package geomath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromYaw_RoundTrip(t *testing.T) {
	for _, yaw := range []float64{0, 0.3, -1.2, math.Pi / 2, 3} {
		q := FromYaw(yaw)
		assert.InDelta(t, 1.0, QuatNorm(q), 1e-12)
		assert.InDelta(t, yaw, Yaw(q), 1e-9)
	}
}

func TestRotate_QuarterTurn(t *testing.T) {
	q := FromYaw(math.Pi / 2)
	v := Rotate(q, Vec3{1, 0, 0})
	assert.InDelta(t, 0.0, v[0], 1e-12)
	assert.InDelta(t, 1.0, v[1], 1e-12)
	assert.InDelta(t, 0.0, v[2], 1e-12)

	back := RotateInverse(q, v)
	assert.InDelta(t, 1.0, back[0], 1e-12)
	assert.InDelta(t, 0.0, back[1], 1e-12)
}

func TestSafeNormalize_ZeroVector(t *testing.T) {
	assert.Equal(t, Vec3{}, SafeNormalize(Vec3{}))
	n := SafeNormalize(Vec3{0, 3, 4})
	assert.InDelta(t, 1.0, n.Len(), 1e-12)
}

func TestNormalizeQuat_Degenerate(t *testing.T) {
	assert.Equal(t, Identity(), NormalizeQuat(Quat{}))
}

func TestYawOnly_DropsRollPitch(t *testing.T) {
	q := NormalizeQuat(Quat{W: 0.9, V: Vec3{0.1, -0.2, 0.3}})
	y := YawOnly(q)
	assert.Zero(t, y.V[0])
	assert.Zero(t, y.V[1])
	assert.InDelta(t, 1.0, QuatNorm(y), 1e-12)
}

func TestDerivative_MatchesOmegaMatrix(t *testing.T) {
	q := NormalizeQuat(Quat{W: 0.8, V: Vec3{0.1, 0.2, 0.3}})
	w := Vec3{0.1, 0.2, 0.3}
	d := Derivative(q, w)

	// 0.5 * Omega(w) * q written out row by row.
	q0, q1, q2, q3 := q.W, q.V[0], q.V[1], q.V[2]
	assert.InDelta(t, 0.5*(-w[0]*q1-w[1]*q2-w[2]*q3), d.W, 1e-12)
	assert.InDelta(t, 0.5*(w[0]*q0+w[2]*q2-w[1]*q3), d.V[0], 1e-12)
	assert.InDelta(t, 0.5*(w[1]*q0-w[2]*q1+w[0]*q3), d.V[1], 1e-12)
	assert.InDelta(t, 0.5*(w[2]*q0+w[1]*q1-w[0]*q2), d.V[2], 1e-12)
}

func TestFlipNED(t *testing.T) {
	assert.Equal(t, Vec3{1, -2, -3}, FlipNED(Vec3{1, 2, 3}))
}
