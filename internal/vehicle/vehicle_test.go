package vehicle

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/actuator"
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geomath"
)

const arm = 0.18

func quadConfig() config.VehicleConfig {
	act := func(spin float64) config.ActuatorConfig {
		return config.ActuatorConfig{
			TimeConstant: 0.05,
			RotorInertia: 6e-5,
			Spin:         spin,
			Volt2Speed:   []float64{0, 60, 0},
			Speed2Thrust: []float64{0, 0, 8e-6},
			Speed2Torque: []float64{0, 0, 1.2e-7},
			Torque2Amps:  []float64{0, 80, 0},
		}
	}
	return config.VehicleConfig{
		Positions: [][3]float64{
			{arm, -arm, 0}, {-arm, arm, 0}, {arm, arm, 0}, {-arm, -arm, 0},
		},
		Directions: [][3]float64{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Actuators:  []config.ActuatorConfig{act(1), act(1), act(-1), act(-1)},
		Efficiency: 0.9,
	}
}

func TestGeometry_SymmetricHoverHasNoTorque(t *testing.T) {
	g, err := FromConfig(quadConfig())
	require.NoError(t, err)

	force, torque := g.Step([]float64{0.5, 0.5, 0.5, 0.5}, 16, 1)

	speed := 60.0 * 8
	assert.InDelta(t, 4*8e-6*speed*speed, force.Z(), 1e-9)
	assert.InDelta(t, 0, force.X(), 1e-12)
	assert.InDelta(t, 0, force.Y(), 1e-12)
	assert.InDelta(t, 0, torque.Len(), 1e-12)
	assert.Equal(t, force, g.Force())
	assert.Equal(t, torque, g.Torque())
}

func TestGeometry_DifferentialThrustRolls(t *testing.T) {
	g, err := FromConfig(quadConfig())
	require.NoError(t, err)

	// Rotors 1 and 2 sit on +y. More thrust there rolls about +x.
	_, torque := g.Step([]float64{0.4, 0.6, 0.6, 0.4}, 16, 1)
	assert.Greater(t, torque.X(), 0.0)
}

func TestGeometry_YawFromReactionTorque(t *testing.T) {
	g, err := FromConfig(quadConfig())
	require.NoError(t, err)

	_, torque := g.Step([]float64{0.6, 0.6, 0.4, 0.4}, 16, 1)
	assert.Greater(t, torque.Z(), 0.0)
}

func TestGeometry_NormalizesDirections(t *testing.T) {
	cfg := quadConfig()
	cfg.Directions[0] = [3]float64{0, 0, 5}
	g, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1, g.Direction(0).Len(), 1e-12)
}

func TestGeometry_InvalidLayouts(t *testing.T) {
	tests := []struct {
		name string
		edit func(*config.VehicleConfig)
	}{
		{"zero direction", func(c *config.VehicleConfig) { c.Directions[1] = [3]float64{} }},
		{"missing position", func(c *config.VehicleConfig) { c.Positions = c.Positions[:3] }},
		{"no actuators", func(c *config.VehicleConfig) {
			c.Actuators, c.Positions, c.Directions = nil, nil, nil
		}},
		{"zero efficiency", func(c *config.VehicleConfig) { c.Efficiency = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := quadConfig()
			tt.edit(&cfg)
			_, err := FromConfig(cfg)
			require.ErrorIs(t, err, ErrInvalidGeometry)
		})
	}
}

func TestGeometry_CurrentIncludesEfficiency(t *testing.T) {
	g, err := FromConfig(quadConfig())
	require.NoError(t, err)
	g.Step([]float64{0.5, 0.5, 0.5, 0.5}, 16, 1)

	var raw float64
	for i := 0; i < g.Count(); i++ {
		raw += g.Actuator(i).Current()
	}
	assert.InDelta(t, raw/0.9, g.Current(), 1e-9)

	intf := geomath.Vec3{1e-5, 2e-5, 0}
	mi := g.MagInterference(intf)
	assert.InDelta(t, 1e-5*raw*raw, mi.X(), 1e-12)
	assert.InDelta(t, 2e-5*raw*raw, mi.Y(), 1e-12)
	assert.Equal(t, 0.0, mi.Z())
}

func TestGeometry_GyroscopicTorque(t *testing.T) {
	cfg := quadConfig()
	for i := range cfg.Actuators {
		cfg.Actuators[i].Spin = 1
	}
	g, err := FromConfig(cfg)
	require.NoError(t, err)
	g.Step([]float64{0.5, 0.5, 0.5, 0.5}, 16, 1)

	// Rotors on +z rolling about x: w x d = (1,0,0) x (0,0,1) = (0,-1,0)
	tg := g.GyroscopicTorque(geomath.Vec3{1, 0, 0})
	speed := 60.0 * 8
	assert.InDelta(t, 4*6e-5*speed, tg.Y(), 1e-9)
	assert.InDelta(t, 0, tg.X(), 1e-12)

	// Balanced spins cancel.
	g2, err := FromConfig(quadConfig())
	require.NoError(t, err)
	g2.Step([]float64{0.5, 0.5, 0.5, 0.5}, 16, 1)
	assert.InDelta(t, 0, g2.GyroscopicTorque(geomath.Vec3{1, 2, 3}).Len(), 1e-12)
}

func TestGeometry_InducedNoise(t *testing.T) {
	g, err := FromConfig(quadConfig())
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))

	// At rest the rotors induce nothing.
	assert.Equal(t, geomath.Vec3{}, g.InducedAccNoise(rng, geomath.Vec3{1, 1, 1}))

	g.Step([]float64{0.5, 0.5, 0.5, 0.5}, 16, 1)
	assert.Equal(t, geomath.Vec3{}, g.InducedGyroNoise(rng, geomath.Vec3{}))
	n := g.InducedAccNoise(rng, geomath.Vec3{1e-3, 0, 1e-3})
	assert.Equal(t, 0.0, n.Y())
	assert.NotEqual(t, 0.0, n.X())
}

func TestGeometry_Speeds(t *testing.T) {
	acts := []*actuator.Actuator{actuator.New(quadConfig().Actuators[0])}
	cfg := config.VehicleConfig{
		Positions:  [][3]float64{{0, 0, 0}},
		Directions: [][3]float64{{0, 0, 1}},
		Efficiency: 1,
	}
	g, err := New(cfg, acts)
	require.NoError(t, err)
	g.Step([]float64{1}, 10, 1)
	assert.Equal(t, []float64{600}, g.Speeds())
	assert.Equal(t, geomath.Vec3{}, g.Position(0))
}
