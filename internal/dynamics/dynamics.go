// Package dynamics integrates the rigid body motion of the vehicle and
// handles contact with flat ground through a three-state automaton.
package dynamics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/hilsim/hilsim/internal/battery"
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geomath"
	"github.com/hilsim/hilsim/internal/timer"
	"github.com/hilsim/hilsim/internal/vehicle"
)

// Model owns the vehicle state and advances it on every Step. It is not
// safe for concurrent use; the metric callbacks only read atomics.
type Model struct {
	mass       float64
	gravity    float64
	dragV      float64
	dragW      float64
	inertia    geomath.Vec3
	invInertia geomath.Vec3
	wind       geomath.Vec3

	geo  *vehicle.Geometry
	bat  *battery.Battery
	clk  timer.Clock
	log  *slog.Logger
	opts options
	pose InitialPose

	state  State
	status Status
	zLand  float64
	qLand  geomath.Quat

	forceB  geomath.Vec3
	torqueB geomath.Vec3
	forceW  geomath.Vec3
	accW    geomath.Vec3

	lastTick       time.Duration
	dt             float64
	lastOverrunLog time.Duration
	overrunsSince  int
	overrunTotal   uint64
	depletedWarned bool

	// OTEL metrics
	steps    metric.Int64Counter
	stepDt   metric.Float64Histogram
	overruns metric.Int64Counter
	socGauge metric.Float64ObservableGauge
	altGauge metric.Float64ObservableGauge
	reg      metric.Registration

	socBits atomic.Uint64
	altBits atomic.Uint64
}

// New builds a model resting on the ground at pose. The clock is read once
// here so the first step measures from construction.
func New(
	cfg config.DynamicsConfig,
	env config.EnvironmentConfig,
	geo *vehicle.Geometry,
	bat *battery.Battery,
	clk timer.Clock,
	log *slog.Logger,
	pose InitialPose,
	opts ...Option,
) (*Model, error) {
	if cfg.Mass <= 0 {
		return nil, fmt.Errorf("%w: mass %v", config.ErrInvalidParameter, cfg.Mass)
	}
	for i, j := range cfg.Inertia {
		if j <= 0 {
			return nil, fmt.Errorf("%w: inertia[%d] %v", config.ErrInvalidParameter, i, j)
		}
	}
	if log == nil {
		log = slog.Default()
	}

	m := &Model{
		mass:       cfg.Mass,
		gravity:    env.Gravity,
		dragV:      cfg.DragV,
		dragW:      cfg.DragW,
		inertia:    geomath.Vec3(cfg.Inertia),
		invInertia: geomath.Vec3{1 / cfg.Inertia[0], 1 / cfg.Inertia[1], 1 / cfg.Inertia[2]},
		wind:       geomath.Vec3(cfg.Wind),
		geo:        geo,
		bat:        bat,
		clk:        clk,
		log:        log.With("component", "dynamics"),
		opts:       defaultOptions(),
		pose:       pose,
	}
	for _, opt := range opts {
		opt(&m.opts)
	}

	m.state = State{P: pose.Position, Q: pose.Attitude()}
	m.status = Landed
	m.zLand = pose.Position.Z()
	m.qLand = m.state.Q
	m.forceB = geomath.Vec3{0, 0, m.mass * m.gravity}
	m.forceW = m.forceB
	m.lastTick = clk.Now()
	m.publish()

	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) initMetrics() error {
	mt := meter()

	var err error
	m.steps, err = mt.Int64Counter(
		"sim.steps",
		metric.WithDescription("Total physics steps"),
	)
	if err != nil {
		return fmt.Errorf("creating step counter: %w", err)
	}

	m.stepDt, err = mt.Float64Histogram(
		"sim.step.dt",
		metric.WithDescription("Measured physics step length"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating dt histogram: %w", err)
	}

	m.overruns, err = mt.Int64Counter(
		"sim.step.overruns",
		metric.WithDescription("Steps longer than the alert interval"),
	)
	if err != nil {
		return fmt.Errorf("creating overrun counter: %w", err)
	}

	m.socGauge, err = mt.Float64ObservableGauge(
		"sim.battery.soc",
		metric.WithDescription("Battery state of charge"),
	)
	if err != nil {
		return fmt.Errorf("creating soc gauge: %w", err)
	}

	m.altGauge, err = mt.Float64ObservableGauge(
		"sim.vehicle.altitude",
		metric.WithDescription("Height above the local origin"),
		metric.WithUnit("m"),
	)
	if err != nil {
		return fmt.Errorf("creating altitude gauge: %w", err)
	}

	m.reg, err = mt.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveFloat64(m.socGauge, math.Float64frombits(m.socBits.Load()))
			o.ObserveFloat64(m.altGauge, math.Float64frombits(m.altBits.Load()))
			return nil
		},
		m.socGauge, m.altGauge,
	)
	if err != nil {
		return fmt.Errorf("registering gauge callback: %w", err)
	}
	return nil
}

// Close unregisters the metric callbacks.
func (m *Model) Close() error {
	if m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}

// Step advances the model by the wall time elapsed since the previous step
// using the given normalized actuator commands. cmds must hold at least one
// value per actuator.
func (m *Model) Step(cmds []float64) {
	now := m.clk.Now()
	elapsed := now - m.lastTick
	m.lastTick = now
	if elapsed < 0 {
		elapsed = 0
	}

	ctx := context.Background()
	m.steps.Add(ctx, 1)
	m.stepDt.Record(ctx, elapsed.Seconds())
	m.dt = elapsed.Seconds()

	if elapsed <= m.opts.maxDt {
		m.advance(cmds, elapsed.Seconds())
		m.publish()
		return
	}

	m.overruns.Add(ctx, 1)
	m.overrunTotal++
	switch m.opts.policy {
	case config.DtPolicyClamp:
		m.advance(cmds, m.opts.maxDt.Seconds())
	case config.DtPolicySubstep:
		n := int(math.Ceil(float64(elapsed) / float64(m.opts.maxDt)))
		if n > m.opts.maxSubsteps {
			n = m.opts.maxSubsteps
		}
		sub := elapsed.Seconds() / float64(n)
		for i := 0; i < n; i++ {
			m.advance(cmds, sub)
		}
	default:
		m.warnOverrun(now, elapsed)
		m.advance(cmds, elapsed.Seconds())
	}
	m.publish()
}

// warnOverrun logs at most once per second and reports how many overruns
// were folded into the message.
func (m *Model) warnOverrun(now, elapsed time.Duration) {
	m.overrunsSince++
	if m.lastOverrunLog != 0 && now-m.lastOverrunLog < time.Second {
		return
	}
	m.log.Warn("simulation step took longer than the alert interval",
		"dt", elapsed,
		"max", m.opts.maxDt,
		"count", m.overrunsSince)
	m.lastOverrunLog = now
	m.overrunsSince = 0
}

func (m *Model) advance(cmds []float64, dt float64) {
	fb, tb := m.geo.Step(cmds, m.bat.Voltage(), dt)
	m.bat.Step(m.geo.Current(), dt)
	if m.bat.Depleted() && !m.depletedWarned {
		m.log.Warn("battery depleted", "soc", m.bat.SOC(), "voltage", m.bat.Voltage())
		m.depletedWarned = true
	}

	fb, tb, grounded := m.contact(fb, tb)
	m.forceB, m.torqueB = fb, tb

	if grounded {
		m.state.V = geomath.Vec3{}
		m.state.W = geomath.Vec3{}
		m.forceW = geomath.Vec3{0, 0, m.mass * m.gravity}
		m.accW = geomath.Vec3{}
		return
	}

	s := m.state
	// Wind does not act on a vehicle in ground contact.
	airV := s.V.Sub(m.wind)
	if m.status == Landing {
		airV = s.V
	}
	fDrag := airV.Mul(-m.dragV)
	tDrag := s.W.Mul(-m.dragW)
	tGyro := m.geo.GyroscopicTorque(s.W)

	m.forceW = geomath.Rotate(s.Q, fb).Add(fDrag)
	m.accW = geomath.Vec3{0, 0, -m.gravity}.Add(m.forceW.Mul(1 / m.mass))

	qDot := geomath.Derivative(s.Q, s.W)
	jw := geomath.Hadamard(m.inertia, s.W)
	wDot := geomath.Hadamard(m.invInertia, s.W.Cross(jw).Mul(-1).Add(tb).Add(tDrag).Add(tGyro))

	m.state.P = s.P.Add(s.V.Mul(dt))
	m.state.V = s.V.Add(m.accW.Mul(dt))
	m.state.Q = geomath.NormalizeQuat(geomath.Quat{W: s.Q.W + qDot.W*dt, V: s.Q.V.Add(qDot.V.Mul(dt))})
	m.state.W = s.W.Add(wDot.Mul(dt))
}

func (m *Model) publish() {
	m.socBits.Store(math.Float64bits(m.bat.SOC()))
	m.altBits.Store(math.Float64bits(m.state.P.Z()))
}

// State returns a copy of the rigid body state.
func (m *Model) State() State { return m.state }

// Status returns the ground contact mode.
func (m *Model) Status() Status { return m.status }

// TotalForceWorld returns the world frame force of the last step,
// drag included and gravity excluded.
func (m *Model) TotalForceWorld() geomath.Vec3 { return m.forceW }

// AccelWorld returns the world frame acceleration of the last step.
func (m *Model) AccelWorld() geomath.Vec3 { return m.accW }

// BodyForce returns the body frame force applied in the last step.
func (m *Model) BodyForce() geomath.Vec3 { return m.forceB }

// BodyTorque returns the body frame torque applied in the last step.
func (m *Model) BodyTorque() geomath.Vec3 { return m.torqueB }

// Mass returns the vehicle mass in kg.
func (m *Model) Mass() float64 { return m.mass }

// Gravity returns the gravitational acceleration in m/s².
func (m *Model) Gravity() float64 { return m.gravity }

// Initial returns the pose the vehicle started from.
func (m *Model) Initial() InitialPose { return m.pose }

// Geometry returns the actuator layout driven by Step.
func (m *Model) Geometry() *vehicle.Geometry { return m.geo }

// Battery returns the pack powering the actuators.
func (m *Model) Battery() *battery.Battery { return m.bat }

// LandingHeight returns the ground height below which Flying turns into
// Landing. It moves to the resting height after each landing.
func (m *Model) LandingHeight() float64 { return m.zLand }

// Dt returns the measured length of the last step in seconds.
func (m *Model) Dt() float64 { return m.dt }

// Overruns counts steps whose interval exceeded the alert threshold.
func (m *Model) Overruns() uint64 { return m.overrunTotal }
