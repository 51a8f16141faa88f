// Package vehicle composes the per-rotor actuator outputs into the body
// force and torque of the airframe.
package vehicle

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/hilsim/hilsim/internal/actuator"
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geomath"
)

// ErrInvalidGeometry is returned when the airframe layout cannot be built.
var ErrInvalidGeometry = errors.New("invalid vehicle geometry")

// Geometry is the fixed rotor layout plus the actuators mounted on it.
// Positions and directions are in the body frame; directions are unit.
type Geometry struct {
	positions  []geomath.Vec3
	directions []geomath.Vec3
	actuators  []*actuator.Actuator
	efficiency float64

	force  geomath.Vec3
	torque geomath.Vec3
}

// New validates the layout and normalizes the thrust directions.
func New(cfg config.VehicleConfig, acts []*actuator.Actuator) (*Geometry, error) {
	n := len(acts)
	if n == 0 || n > config.MaxActuators {
		return nil, fmt.Errorf("%w: %d actuators", ErrInvalidGeometry, n)
	}
	if len(cfg.Positions) != n || len(cfg.Directions) != n {
		return nil, fmt.Errorf("%w: %d actuators, %d positions, %d directions",
			ErrInvalidGeometry, n, len(cfg.Positions), len(cfg.Directions))
	}
	if cfg.Efficiency <= 0 {
		return nil, fmt.Errorf("%w: power efficiency %v", ErrInvalidGeometry, cfg.Efficiency)
	}

	g := &Geometry{
		positions:  make([]geomath.Vec3, n),
		directions: make([]geomath.Vec3, n),
		actuators:  acts,
		efficiency: cfg.Efficiency,
	}
	for i := 0; i < n; i++ {
		g.positions[i] = geomath.Vec3(cfg.Positions[i])
		d := geomath.SafeNormalize(geomath.Vec3(cfg.Directions[i]))
		if d.Len() == 0 {
			return nil, fmt.Errorf("%w: actuator %d has a zero direction", ErrInvalidGeometry, i)
		}
		g.directions[i] = d
	}
	return g, nil
}

// FromConfig builds the actuators described by cfg and mounts them.
func FromConfig(cfg config.VehicleConfig) (*Geometry, error) {
	acts := make([]*actuator.Actuator, len(cfg.Actuators))
	for i, a := range cfg.Actuators {
		acts[i] = actuator.New(a)
	}
	return New(cfg, acts)
}

// Step drives every actuator with its command and returns the total body
// force and torque. cmds must hold at least Count() values.
func (g *Geometry) Step(cmds []float64, voltage, dt float64) (force, torque geomath.Vec3) {
	for i, a := range g.actuators {
		out := a.Step(cmds[i], voltage, dt)
		d := g.directions[i]
		f := d.Mul(out.Force)
		force = force.Add(f)
		torque = torque.Add(g.positions[i].Cross(f)).Add(d.Mul(out.Torque))
	}
	g.force, g.torque = force, torque
	return force, torque
}

// GyroscopicTorque returns the precession torque of the spinning rotors
// for body rate w.
func (g *Geometry) GyroscopicTorque(w geomath.Vec3) geomath.Vec3 {
	var t geomath.Vec3
	for i, a := range g.actuators {
		h := g.directions[i].Mul(a.Speed())
		t = t.Add(w.Cross(h).Mul(-a.Spin() * a.RotorInertia()))
	}
	return t
}

// Current returns the total draw of the actuators at the battery.
func (g *Geometry) Current() float64 {
	return g.rawCurrent() / g.efficiency
}

func (g *Geometry) rawCurrent() float64 {
	var sum float64
	for _, a := range g.actuators {
		sum += a.Current()
	}
	return sum
}

// InducedAccNoise returns the accelerometer vibration from spinning rotors.
func (g *Geometry) InducedAccNoise(rng *rand.Rand, vib geomath.Vec3) geomath.Vec3 {
	return g.induced(rng, vib)
}

// InducedGyroNoise returns the gyroscope vibration from spinning rotors.
func (g *Geometry) InducedGyroNoise(rng *rand.Rand, vib geomath.Vec3) geomath.Vec3 {
	return g.induced(rng, vib)
}

func (g *Geometry) induced(rng *rand.Rand, vib geomath.Vec3) geomath.Vec3 {
	var n geomath.Vec3
	for _, a := range g.actuators {
		s := a.Speed()
		gauss := geomath.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
		n = n.Add(geomath.Hadamard(vib, gauss).Mul(s))
	}
	return n
}

// MagInterference returns the magnetometer offset caused by motor current.
func (g *Geometry) MagInterference(intf geomath.Vec3) geomath.Vec3 {
	c := g.rawCurrent()
	return intf.Mul(c * c)
}

// Count returns the number of actuators.
func (g *Geometry) Count() int {
	return len(g.actuators)
}

// Actuator returns actuator i.
func (g *Geometry) Actuator(i int) *actuator.Actuator {
	return g.actuators[i]
}

// Position returns the mount point of actuator i.
func (g *Geometry) Position(i int) geomath.Vec3 {
	return g.positions[i]
}

// Direction returns the unit thrust axis of actuator i.
func (g *Geometry) Direction(i int) geomath.Vec3 {
	return g.directions[i]
}

// Force returns the body force of the last step.
func (g *Geometry) Force() geomath.Vec3 { return g.force }

// Torque returns the body torque of the last step.
func (g *Geometry) Torque() geomath.Vec3 { return g.torque }

// Speeds returns the rotor speeds in actuator order.
func (g *Geometry) Speeds() []float64 {
	s := make([]float64, len(g.actuators))
	for i, a := range g.actuators {
		s[i] = a.Speed()
	}
	return s
}
