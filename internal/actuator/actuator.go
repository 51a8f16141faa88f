// Package actuator models a single motor and rotor: PWM command to rotor
// speed through a first-order lag, then speed to thrust, torque and current.
package actuator

import (
	"math"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/polynomial"
)

// Output is the result of one actuator step.
type Output struct {
	Force   float64 // N, along the actuator direction
	Torque  float64 // N m, signed by spin
	Current float64 // A
}

// Actuator holds the curves and the dynamic state of one rotor.
type Actuator struct {
	timeConstant float64
	rotorInertia float64
	spin         float64

	volt2speed   polynomial.Polynomial
	speed2thrust polynomial.Polynomial
	speed2torque polynomial.Polynomial
	torque2amps  polynomial.Polynomial

	pwm     float64
	speed   float64
	force   float64
	torque  float64
	current float64
}

// New builds an actuator at rest.
func New(cfg config.ActuatorConfig) *Actuator {
	return &Actuator{
		timeConstant: cfg.TimeConstant,
		rotorInertia: cfg.RotorInertia,
		spin:         cfg.Spin,
		volt2speed:   polynomial.New(cfg.Volt2Speed...),
		speed2thrust: polynomial.New(cfg.Speed2Thrust...),
		speed2torque: polynomial.New(cfg.Speed2Torque...),
		torque2amps:  polynomial.New(cfg.Torque2Amps...),
	}
}

// Step applies a normalized command for dt seconds. The command scales the
// supply voltage, so a sagging battery reduces the reachable speed.
func (a *Actuator) Step(pwm, voltage, dt float64) Output {
	a.pwm = clamp01(pwm)

	target := a.volt2speed.Eval(a.pwm * voltage)
	if dt >= a.timeConstant {
		a.speed = target
	} else if dt > 0 {
		a.speed += (target - a.speed) * dt / a.timeConstant
	}
	if a.speed < 0 {
		a.speed = 0
	}

	a.force = a.speed2thrust.Eval(a.speed)
	a.torque = a.spin * a.speed2torque.Eval(a.speed)
	a.current = math.Max(0, a.torque2amps.Eval(math.Abs(a.torque)))

	return Output{Force: a.force, Torque: a.torque, Current: a.current}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PWM returns the last clamped command in [0, 1].
func (a *Actuator) PWM() float64 { return a.pwm }

// Speed returns the rotor speed after the motor lag.
func (a *Actuator) Speed() float64 { return a.speed }

// Force returns the thrust of the last step in N.
func (a *Actuator) Force() float64 { return a.force }

// Torque returns the signed reaction torque of the last step in N·m.
func (a *Actuator) Torque() float64 { return a.torque }

// Current returns the current drawn in the last step in A.
func (a *Actuator) Current() float64 { return a.current }

// Spin returns +1 or -1 for the rotation direction.
func (a *Actuator) Spin() float64 { return a.spin }

// RotorInertia returns the rotor moment of inertia in kg·m².
func (a *Actuator) RotorInertia() float64 { return a.rotorInertia }
