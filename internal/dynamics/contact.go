package dynamics

import (
	"math"

	"github.com/hilsim/hilsim/internal/geomath"
)

// Landing controller gains. The vertical loop (velocity gain
// landingVelGain*landingVertBoost, spring landingPosGain) and the attitude
// loop (landingRateGain, landingAlignGain on the half-angle error) are both
// critically damped with a natural frequency of 2 rad/s.
const (
	landingVelGain   = 2.0
	landingVertBoost = 2.0
	landingPosGain   = 4.0
	landingRateGain  = 4.0
	landingAlignGain = 8.0
)

// Settling thresholds for Landing -> Landed.
const (
	settleSpeed = 0.01 // m/s and rad/s
	settleTilt  = 1e-3 // sin(tilt/2)
)

// contact runs the ground automaton and returns the body force and torque
// to integrate. grounded is true when the vehicle rests on the ground and
// the state must stay frozen.
func (m *Model) contact(fb, tb geomath.Vec3) (geomath.Vec3, geomath.Vec3, bool) {
	weight := m.mass * m.gravity

	switch m.status {
	case Landed:
		if fb.Z() <= weight {
			return geomath.Vec3{0, 0, weight}, geomath.Vec3{}, true
		}
		m.status = Flying
		m.log.Info("vehicle took off", "thrust", fb.Z(), "weight", weight)
		return fb, tb, false

	case Flying:
		if m.state.P.Z() >= m.zLand {
			return fb, tb, false
		}
		m.status = Landing
		m.qLand = geomath.YawOnly(m.state.Q)
		m.log.Info("ground contact", "z", m.state.P.Z(), "zLand", m.zLand, "vz", m.state.V.Z())
	}

	if m.settled() {
		m.settle()
		return geomath.Vec3{0, 0, weight}, geomath.Vec3{}, true
	}
	return m.brakeForce(), m.brakeTorque(), false
}

func (m *Model) settled() bool {
	s := m.state
	tilt := math.Hypot(s.Q.V.X(), s.Q.V.Y())
	return s.V.Len() < settleSpeed && s.W.Len() < settleSpeed && tilt < settleTilt
}

func (m *Model) settle() {
	m.status = Landed
	m.state.V = geomath.Vec3{}
	m.state.W = geomath.Vec3{}
	m.state.Q = geomath.YawOnly(m.state.Q)
	m.zLand = m.state.P.Z()
	m.log.Info("vehicle landed", "z", m.zLand, "yaw", geomath.Yaw(m.state.Q))
}

// brakeForce damps the velocity and holds the vehicle at the landing
// height. It is built in the world frame and returned in the body frame.
func (m *Model) brakeForce() geomath.Vec3 {
	v := m.state.V
	fw := geomath.Vec3{
		-landingVelGain * v.X(),
		-landingVelGain * v.Y(),
		-landingVelGain*landingVertBoost*v.Z() + m.gravity + landingPosGain*(m.zLand-m.state.P.Z()),
	}.Mul(m.mass)
	return geomath.RotateInverse(m.state.Q, fw)
}

// brakeTorque damps the body rate and aligns the attitude with the yaw-only
// orientation captured at contact.
func (m *Model) brakeTorque() geomath.Vec3 {
	e := m.qLand.Conjugate().Mul(m.state.Q)
	errVec := e.V
	if e.W < 0 {
		errVec = errVec.Mul(-1)
	}
	return geomath.Hadamard(m.inertia, m.state.W.Mul(landingRateGain).Add(errVec.Mul(landingAlignGain))).Mul(-1)
}
