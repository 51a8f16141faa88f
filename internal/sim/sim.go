// Package sim owns one simulation run: the physics model, the sensor
// simulator and the autopilot bridge, stepped from a single goroutine.
// Timers decide which messages go out on each step.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/hilsim/hilsim/internal/battery"
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/dynamics"
	"github.com/hilsim/hilsim/internal/geomath"
	"github.com/hilsim/hilsim/internal/mavlink"
	"github.com/hilsim/hilsim/internal/sensors"
	"github.com/hilsim/hilsim/internal/timer"
	"github.com/hilsim/hilsim/internal/vehicle"
)

const (
	systemTimePeriod = 4 * time.Second
	heartbeatPeriod  = time.Second
	loopRateWindow   = time.Second
)

type sinkEntry struct {
	sink  Sink
	timer *timer.Timer
}

// Context is the state of one run. It is not safe for concurrent use;
// other goroutines observe it through sinks.
type Context struct {
	params *config.Parameters
	loop   config.LoopConfig
	bridge *mavlink.Bridge
	model  *dynamics.Model
	sens   *sensors.Simulator
	clk    timer.Clock
	rng    *rand.Rand
	log    *slog.Logger
	now    func() time.Time

	sysTime   *timer.Timer
	heartbeat *timer.Timer
	sensorT   *timer.Timer
	gpsT      *timer.Timer
	gtT       *timer.Timer
	rcT       *timer.Timer

	sinks  []sinkEntry
	events []EventSink

	cmds       []float64
	iter       uint64
	start      time.Duration
	lastStatus dynamics.Status
	depleted   bool

	windowStart time.Duration
	windowSteps int
	loopHz      float64

	status atomic.Int32
}

// New assembles the vehicle described by p around an already connected
// bridge. rng feeds every noise source.
func New(
	p *config.Parameters,
	loop config.LoopConfig,
	bridge *mavlink.Bridge,
	clk timer.Clock,
	log *slog.Logger,
	rng *rand.Rand,
) (*Context, error) {
	if log == nil {
		log = slog.Default()
	}

	geo, err := vehicle.FromConfig(p.Vehicle)
	if err != nil {
		return nil, err
	}
	bat := battery.New(p.Battery)
	pose := dynamics.InitialPose{
		Position: geomath.Vec3{p.Simulation.InitPosX, p.Simulation.InitPosY, 0},
		Yaw:      p.Simulation.InitYawDeg * math.Pi / 180,
	}
	model, err := dynamics.New(p.Dynamics, p.Environment, geo, bat, clk, log, pose, dynamics.WithLoopConfig(loop))
	if err != nil {
		return nil, err
	}

	c := &Context{
		params: p,
		loop:   loop,
		bridge: bridge,
		model:  model,
		sens:   sensors.New(p.Sensors, p.Environment, rng),
		clk:    clk,
		rng:    rng,
		log:    log.With("component", "sim"),
		now:    time.Now,
		cmds:   make([]float64, geo.Count()),
	}
	if err := c.initTimers(); err != nil {
		_ = model.Close()
		return nil, err
	}

	c.start = clk.Now()
	c.windowStart = c.start
	c.lastStatus = model.Status()
	c.status.Store(int32(c.lastStatus))
	return c, nil
}

func (c *Context) initTimers() error {
	var err error
	if c.sysTime, err = timer.NewPeriod(systemTimePeriod, c.clk); err != nil {
		return err
	}
	if c.heartbeat, err = timer.NewPeriod(heartbeatPeriod, c.clk); err != nil {
		return err
	}
	// SYSTEM_TIME and HEARTBEAT go out on the first iteration.
	c.sysTime.Prime()
	c.heartbeat.Prime()
	sim := c.params.Simulation
	if c.sensorT, err = timer.NewFrequency(sim.SensorHz, c.clk); err != nil {
		return fmt.Errorf("%w: SIM_SENS_HZ: %v", config.ErrInvalidParameter, err)
	}
	if c.gpsT, err = timer.NewFrequency(sim.GPSHz, c.clk); err != nil {
		return fmt.Errorf("%w: SIM_GPS_HZ: %v", config.ErrInvalidParameter, err)
	}
	if sim.GTEnabled {
		if c.gtT, err = timer.NewFrequency(sim.GTHz, c.clk); err != nil {
			return fmt.Errorf("%w: SIM_GT_HZ: %v", config.ErrInvalidParameter, err)
		}
	}
	if c.loop.RCEnabled {
		if c.rcT, err = timer.NewFrequency(c.loop.RCHz, c.clk); err != nil {
			return fmt.Errorf("%w: sim.rcHz: %v", config.ErrInvalidParameter, err)
		}
	}
	return nil
}

// AddSink registers s to receive a snapshot hz times per second.
func (c *Context) AddSink(s Sink, hz float64) error {
	t, err := timer.NewFrequency(hz, c.clk)
	if err != nil {
		return fmt.Errorf("sink rate: %w", err)
	}
	c.sinks = append(c.sinks, sinkEntry{sink: s, timer: t})
	return nil
}

// AddEventSink registers s to receive every event.
func (c *Context) AddEventSink(s EventSink) {
	c.events = append(c.events, s)
}

// Run steps the simulation as fast as the scheduler allows until ctx is
// cancelled.
func (c *Context) Run(ctx context.Context) error {
	c.log.Info("simulation running",
		"actuators", len(c.cmds),
		"sensorHz", c.params.Simulation.SensorHz,
		"gpsHz", c.params.Simulation.GPSHz,
		"dtPolicy", c.loop.DtPolicy)
	c.emit(EventConnected, "autopilot connected")

	for {
		select {
		case <-ctx.Done():
			c.emit(EventStopped, "simulation stopped")
			c.log.Info("simulation stopped", "iterations", c.iter)
			return nil
		default:
		}
		c.Step()
		runtime.Gosched()
	}
}

// Step advances the physics once and sends whatever is due.
func (c *Context) Step() {
	if fresh, ctrl := c.bridge.ActuatorControls(); fresh {
		copy(c.cmds, ctrl)
	}

	c.model.Step(c.cmds)
	c.iter++
	c.trackLoopRate()
	c.checkTransitions()

	if c.sysTime.Tick() {
		c.bridge.SendSystemTime()
	}
	if c.heartbeat.Tick() {
		c.bridge.SendHeartbeat()
	}
	if c.sensorT.Tick() {
		c.bridge.SendSensors(c.SensorFrame())
	}
	if c.gpsT.Tick() {
		st := c.model.State()
		c.bridge.SendGPS(c.sens.GPS(st.P, st.V))
		c.bridge.SendBattery(c.BatteryStatus())
	}
	if c.gtT != nil && c.gtT.Tick() {
		st := c.model.State()
		c.bridge.SendGroundTruth(c.sens.GroundTruth(st.P, st.V, st.Q, st.W))
	}
	if c.rcT != nil && c.rcT.Tick() {
		c.bridge.SendRCChannels(mavlink.RCNeutral())
	}

	var snap *Snapshot
	for _, e := range c.sinks {
		if !e.timer.Tick() {
			continue
		}
		if snap == nil {
			s := c.Snapshot()
			snap = &s
		}
		e.sink.Publish(*snap)
	}
}

// SensorFrame samples the IMU and barometer, including the noise induced
// by the spinning rotors.
func (c *Context) SensorFrame() sensors.Frame {
	st := c.model.State()
	geo := c.model.Geometry()
	cfg := c.params.Sensors
	return sensors.Frame{
		Accel: c.sens.Accel(st.Q, c.model.TotalForceWorld(), c.model.Mass(), geo.InducedAccNoise(c.rng, geomath.Vec3(cfg.AccVib))),
		Gyro:  c.sens.Gyro(st.W, geo.InducedGyroNoise(c.rng, geomath.Vec3(cfg.GyroVib))),
		Mag:   c.sens.Mag(st.Q, geo.MagInterference(geomath.Vec3(cfg.MagIntf))),
		Baro:  c.sens.Baro(st.P.Z()),
	}
}

// BatteryStatus reports the pack for BATTERY_STATUS.
func (c *Context) BatteryStatus() mavlink.BatteryStatus {
	bat := c.model.Battery()
	return mavlink.BatteryStatus{
		Voltage:   bat.Voltage(),
		Current:   bat.Current(),
		Consumed:  bat.Consumed(),
		Remaining: bat.SOC(),
	}
}

// Snapshot copies the current state.
func (c *Context) Snapshot() Snapshot {
	st := c.model.State()
	bat := c.model.Battery()
	lat, lon, alt := c.sens.Geodetic(st.P)
	cmds := make([]float64, len(c.cmds))
	copy(cmds, c.cmds)

	return Snapshot{
		Time:        c.now(),
		Elapsed:     c.clk.Now() - c.start,
		Iteration:   c.iter,
		Status:      c.model.Status().String(),
		Position:    st.P,
		Velocity:    st.V,
		Attitude:    geomath.Array(st.Q),
		AngularRate: st.W,
		Lat:         lat,
		Lon:         lon,
		Alt:         alt,
		Thrust:      c.model.BodyForce(),
		Commands:    cmds,
		RotorSpeeds: c.model.Geometry().Speeds(),
		Voltage:     bat.Voltage(),
		Current:     bat.Current(),
		SOC:         bat.SOC(),
		Dt:          c.model.Dt(),
		LoopHz:      c.loopHz,
		Overruns:    c.model.Overruns(),
	}
}

// Status is safe to call from any goroutine.
func (c *Context) Status() dynamics.Status {
	return dynamics.Status(c.status.Load())
}

// LogAttrs returns attributes describing the run for log enrichment.
// Safe to call from any goroutine.
func (c *Context) LogAttrs() []slog.Attr {
	return []slog.Attr{slog.String("vehicle", c.Status().String())}
}

// Model exposes the physics for inspection.
func (c *Context) Model() *dynamics.Model { return c.model }

// Parameters returns the parameters the run was built from.
func (c *Context) Parameters() *config.Parameters { return c.params }

// Iterations returns the number of completed steps.
func (c *Context) Iterations() uint64 { return c.iter }

// LoopHz returns the step rate over the last full window.
func (c *Context) LoopHz() float64 { return c.loopHz }

// Close releases the model's metric registration and ends the session.
func (c *Context) Close() error {
	if err := c.model.Close(); err != nil {
		c.log.Warn("failed to unregister metrics", "error", err)
	}
	return c.bridge.Close()
}

func (c *Context) trackLoopRate() {
	c.windowSteps++
	now := c.clk.Now()
	if elapsed := now - c.windowStart; elapsed >= loopRateWindow {
		c.loopHz = float64(c.windowSteps) / elapsed.Seconds()
		c.windowSteps = 0
		c.windowStart = now
	}
}

func (c *Context) checkTransitions() {
	if s := c.model.Status(); s != c.lastStatus {
		c.lastStatus = s
		c.status.Store(int32(s))
		c.emit(EventStatus, "vehicle "+s.String())
	}
	if !c.depleted && c.model.Battery().Depleted() {
		c.depleted = true
		c.emit(EventBatteryDepleted, "battery depleted")
	}
}

func (c *Context) emit(kind EventKind, msg string) {
	if len(c.events) == 0 {
		return
	}
	p := c.model.State().P
	lat, lon, alt := c.sens.Geodetic(p)
	ev := Event{
		Time:     c.now(),
		Kind:     kind,
		Status:   c.model.Status().String(),
		Message:  msg,
		Position: p,
		Lat:      lat,
		Lon:      lon,
		Alt:      alt,
	}
	for _, s := range c.events {
		s.Event(ev)
	}
}
