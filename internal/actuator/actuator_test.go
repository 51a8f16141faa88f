package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hilsim/hilsim/internal/config"
)

func testConfig(spin float64) config.ActuatorConfig {
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

func TestActuator_SnapsWhenDtExceedsTimeConstant(t *testing.T) {
	a := New(testConfig(1))
	out := a.Step(0.5, 16, 0.1)

	speed := 60.0 * 8
	assert.InDelta(t, speed, a.Speed(), 1e-9)
	assert.InDelta(t, 8e-6*speed*speed, out.Force, 1e-9)
	assert.InDelta(t, 1.2e-7*speed*speed, out.Torque, 1e-12)
	assert.InDelta(t, 80*out.Torque, out.Current, 1e-9)
}

func TestActuator_FirstOrderLag(t *testing.T) {
	a := New(testConfig(1))
	a.Step(1, 10, 0.01)
	// 20% of the way to 600 rad/s
	assert.InDelta(t, 120, a.Speed(), 1e-9)

	prev := a.Speed()
	for i := 0; i < 50; i++ {
		a.Step(1, 10, 0.01)
		require.GreaterOrEqual(t, a.Speed(), prev)
		prev = a.Speed()
	}
	assert.InDelta(t, 600, a.Speed(), 1)
}

func TestActuator_SpinSignsTorque(t *testing.T) {
	cw := New(testConfig(-1))
	ccw := New(testConfig(1))
	a := cw.Step(0.6, 16, 1)
	b := ccw.Step(0.6, 16, 1)

	assert.InDelta(t, -b.Torque, a.Torque, 1e-12)
	assert.InDelta(t, a.Force, b.Force, 1e-12)
	assert.InDelta(t, a.Current, b.Current, 1e-12)
	assert.Greater(t, a.Current, 0.0)
}

func TestActuator_ClampsCommandAndSpeed(t *testing.T) {
	cfg := testConfig(1)
	cfg.Volt2Speed = []float64{-50, 60, 0}
	a := New(cfg)

	a.Step(-3, 16, 1)
	assert.Equal(t, 0.0, a.PWM())
	assert.Equal(t, 0.0, a.Speed())
	assert.Equal(t, 0.0, a.Current())

	a.Step(7, 10, 1)
	assert.Equal(t, 1.0, a.PWM())
	assert.InDelta(t, 550, a.Speed(), 1e-9)
}

func TestActuator_ZeroDtKeepsSpeed(t *testing.T) {
	a := New(testConfig(1))
	a.Step(1, 10, 1)
	a.Step(0, 10, 0)
	assert.InDelta(t, 600, a.Speed(), 1e-9)
}

func TestActuator_Accessors(t *testing.T) {
	a := New(testConfig(-1))
	assert.Equal(t, -1.0, a.Spin())
	assert.Equal(t, 6e-5, a.RotorInertia())
}
