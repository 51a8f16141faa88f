// Package mavlink is the link to the autopilot: the startup handshake, the
// actuator command input and the HIL sensor, GPS and state outputs.
package mavlink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/message"

	"github.com/hilsim/hilsim/internal/sensors"
)

// ErrHandshake is returned when the autopilot does not open the session
// with COMMAND_LONG followed by HEARTBEAT.
var ErrHandshake = errors.New("mavlink handshake failed")

// Wire constants of the HIL messages.
const (
	// fieldsUpdated flags accel, gyro, mag, pressures, altitude and
	// temperature as fresh (bits 0-12).
	fieldsUpdated   = 7167
	sensorTempDegC  = 40
	gpsFixType3D    = 3
	gpsSatellites   = 10
	mavlinkVersion  = 3
	rcChannelCount  = 18
	bootOffset      = 30 * time.Second
	unknownVoltage  = math.MaxUint16
	controlChannels = 16
)

// BatteryStatus is the pack state reported to the autopilot.
type BatteryStatus struct {
	Voltage   float64 // V
	Current   float64 // A
	Consumed  float64 // mAh
	Remaining float64 // fraction, 0..1
}

// Bridge owns one autopilot session. Sends before the handshake or after
// Close are dropped.
type Bridge struct {
	t   Transport
	now func() time.Time
	log *slog.Logger

	connected bool
	bootUs    int64
	controls  []float64
	received  uint64
	sendErrs  uint64
}

// New wraps a transport. now defaults to time.Now.
func New(t Transport, now func() time.Time, log *slog.Logger) *Bridge {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{
		t:        t,
		now:      now,
		log:      log.With("component", "mavlink"),
		controls: make([]float64, controlChannels),
	}
}

// Handshake blocks until the autopilot sends COMMAND_LONG and then
// HEARTBEAT. Any other first or second message fails with ErrHandshake.
func (b *Bridge) Handshake(ctx context.Context) error {
	b.log.Info("waiting for autopilot connection")

	msg, err := b.t.Receive(ctx)
	if err != nil {
		return fmt.Errorf("%w: waiting for COMMAND_LONG: %v", ErrHandshake, err)
	}
	if _, ok := msg.(*common.MessageCommandLong); !ok {
		return fmt.Errorf("%w: expected COMMAND_LONG, got %T", ErrHandshake, msg)
	}

	msg, err = b.t.Receive(ctx)
	if err != nil {
		return fmt.Errorf("%w: waiting for HEARTBEAT: %v", ErrHandshake, err)
	}
	if _, ok := msg.(*common.MessageHeartbeat); !ok {
		return fmt.Errorf("%w: expected HEARTBEAT, got %T", ErrHandshake, msg)
	}

	b.bootUs = b.now().UnixMicro() - bootOffset.Microseconds()
	b.connected = true
	b.log.Info("autopilot connected", "bootUs", b.bootUs)
	return nil
}

// Connected reports whether the handshake completed and the bridge is open.
func (b *Bridge) Connected() bool {
	return b.connected
}

// BootTime returns the boot epoch in microseconds since the Unix epoch.
func (b *Bridge) BootTime() int64 {
	return b.bootUs
}

// ActuatorControls drains queued messages without blocking. It returns
// true and the newest HIL_ACTUATOR_CONTROLS values if any arrived,
// otherwise false and the previous values.
func (b *Bridge) ActuatorControls() (bool, []float64) {
	fresh := false
	if b.connected {
		for {
			msg, ok := b.t.TryReceive()
			if !ok {
				break
			}
			ctrl, isCtrl := msg.(*common.MessageHilActuatorControls)
			if !isCtrl {
				continue
			}
			for i, c := range ctrl.Controls {
				b.controls[i] = float64(c)
			}
			b.received++
			fresh = true
		}
	}
	out := make([]float64, len(b.controls))
	copy(out, b.controls)
	return fresh, out
}

// Received returns the number of actuator command messages consumed.
func (b *Bridge) Received() uint64 {
	return b.received
}

// SendSystemTime sends SYSTEM_TIME with the wall clock and time since boot.
func (b *Bridge) SendSystemTime() {
	now := b.now().UnixMicro()
	b.send(&common.MessageSystemTime{
		TimeUnixUsec: uint64(now),
		TimeBootMs:   b.bootMs(now),
	})
}

// SendHeartbeat sends an empty HEARTBEAT.
func (b *Bridge) SendHeartbeat() {
	b.send(&common.MessageHeartbeat{
		MavlinkVersion: mavlinkVersion,
	})
}

// SendSensors sends HIL_SENSOR from one IMU and barometer sample.
func (b *Bridge) SendSensors(f sensors.Frame) {
	b.send(&common.MessageHilSensor{
		TimeUsec:      uint64(b.now().UnixMicro()),
		Xacc:          float32(f.Accel.X()),
		Yacc:          float32(f.Accel.Y()),
		Zacc:          float32(f.Accel.Z()),
		Xgyro:         float32(f.Gyro.X()),
		Ygyro:         float32(f.Gyro.Y()),
		Zgyro:         float32(f.Gyro.Z()),
		Xmag:          float32(f.Mag.X()),
		Ymag:          float32(f.Mag.Y()),
		Zmag:          float32(f.Mag.Z()),
		AbsPressure:   float32(f.Baro),
		DiffPressure:  0,
		PressureAlt:   float32((1000 - f.Baro) * 10),
		Temperature:   sensorTempDegC,
		FieldsUpdated: fieldsUpdated,
	})
}

// SendGPS sends HIL_GPS.
func (b *Bridge) SendGPS(g sensors.GPS) {
	b.send(&common.MessageHilGps{
		TimeUsec:          uint64(b.now().UnixMicro()),
		FixType:           gpsFixType3D,
		Lat:               g.Lat,
		Lon:               g.Lon,
		Alt:               g.Alt,
		Eph:               g.Eph,
		Epv:               g.Epv,
		Vel:               g.Vel,
		Vn:                g.Vn,
		Ve:                g.Ve,
		Vd:                g.Vd,
		Cog:               g.Cog,
		SatellitesVisible: gpsSatellites,
	})
}

// SendGroundTruth sends HIL_STATE_QUATERNION.
func (b *Bridge) SendGroundTruth(gt sensors.GroundTruth) {
	var q [4]float32
	for i, v := range gt.Attitude {
		q[i] = float32(v)
	}
	b.send(&common.MessageHilStateQuaternion{
		TimeUsec:           uint64(b.now().UnixMicro()),
		AttitudeQuaternion: q,
		Rollspeed:          float32(gt.RollSpeed),
		Pitchspeed:         float32(gt.PitchSpeed),
		Yawspeed:           float32(gt.YawSpeed),
		Lat:                gt.Lat,
		Lon:                gt.Lon,
		Alt:                gt.Alt,
		Vx:                 gt.Vx,
		Vy:                 gt.Vy,
		Vz:                 gt.Vz,
		IndAirspeed:        gt.IndAirspeed,
		TrueAirspeed:       gt.TrueAirspeed,
		Xacc:               gt.Xacc,
		Yacc:               gt.Yacc,
		Zacc:               gt.Zacc,
	})
}

// SendRCChannels sends RC_CHANNELS with 18 raw PWM values.
func (b *Bridge) SendRCChannels(ch [rcChannelCount]uint16) {
	b.send(&common.MessageRcChannels{
		TimeBootMs: b.bootMs(b.now().UnixMicro()),
		Chancount:  rcChannelCount,
		Chan1Raw:   ch[0],
		Chan2Raw:   ch[1],
		Chan3Raw:   ch[2],
		Chan4Raw:   ch[3],
		Chan5Raw:   ch[4],
		Chan6Raw:   ch[5],
		Chan7Raw:   ch[6],
		Chan8Raw:   ch[7],
		Chan9Raw:   ch[8],
		Chan10Raw:  ch[9],
		Chan11Raw:  ch[10],
		Chan12Raw:  ch[11],
		Chan13Raw:  ch[12],
		Chan14Raw:  ch[13],
		Chan15Raw:  ch[14],
		Chan16Raw:  ch[15],
		Chan17Raw:  ch[16],
		Chan18Raw:  ch[17],
		Rssi:       math.MaxUint8,
	})
}

// SendBattery sends BATTERY_STATUS for a single-voltage pack.
func (b *Bridge) SendBattery(s BatteryStatus) {
	var cells [10]uint16
	for i := range cells {
		cells[i] = unknownVoltage
	}
	cells[0] = uint16(clamp(math.Round(s.Voltage*1000), 0, unknownVoltage-1))

	b.send(&common.MessageBatteryStatus{
		Temperature:      math.MaxInt16,
		Voltages:         cells,
		CurrentBattery:   int16(clamp(math.Round(s.Current*100), -1, math.MaxInt16)),
		CurrentConsumed:  int32(clamp(math.Round(s.Consumed), -1, math.MaxInt32)),
		EnergyConsumed:   -1,
		BatteryRemaining: int8(clamp(math.Round(s.Remaining*100), 0, 100)),
	})
}

// RCNeutral returns centered sticks with the throttle at its minimum.
func RCNeutral() [rcChannelCount]uint16 {
	var ch [rcChannelCount]uint16
	for i := range ch {
		ch[i] = 1500
	}
	ch[2] = 1000
	return ch
}

// Close ends the session and closes the transport.
func (b *Bridge) Close() error {
	b.connected = false
	if b.sendErrs > 0 {
		b.log.Warn("mavlink send errors during session", "count", b.sendErrs)
	}
	return b.t.Close()
}

func (b *Bridge) send(msg message.Message) {
	if !b.connected {
		return
	}
	if err := b.t.Send(msg); err != nil {
		if b.sendErrs == 0 {
			b.log.Warn("mavlink send failed", "error", err)
		}
		b.sendErrs++
	}
}

func (b *Bridge) bootMs(nowUs int64) uint32 {
	ms := (nowUs - b.bootUs) / 1000
	if ms < 0 {
		return 0
	}
	return uint32(ms)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
