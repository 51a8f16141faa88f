package influx

import (
	"strconv"
	"sync/atomic"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hilsim/hilsim/internal/sim"
)

// Measurement names.
const (
	MeasurementVehicle = "vehicle"
	MeasurementLoop    = "loop"
)

// VehiclePoint describes the vehicle state in s.
func VehiclePoint(flight string, s sim.Snapshot) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementVehicle,
		map[string]string{"flight": flight, "status": s.Status},
		map[string]any{
			"x":       s.Position[0],
			"y":       s.Position[1],
			"z":       s.Position[2],
			"vx":      s.Velocity[0],
			"vy":      s.Velocity[1],
			"vz":      s.Velocity[2],
			"qw":      s.Attitude[0],
			"qx":      s.Attitude[1],
			"qy":      s.Attitude[2],
			"qz":      s.Attitude[3],
			"lat":     s.Lat,
			"lon":     s.Lon,
			"alt":     s.Alt,
			"thrust":  s.Thrust[2],
			"soc":     s.SOC,
			"voltage": s.Voltage,
			"current": s.Current,
		},
		s.Time,
	)
}

// LoopPoint describes the timing of the simulation loop in s.
func LoopPoint(flight string, s sim.Snapshot) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		MeasurementLoop,
		map[string]string{"flight": flight},
		map[string]any{
			"frequency": s.LoopHz,
			"dt":        s.Dt,
			"overruns":  int64(s.Overruns),
			"iteration": int64(s.Iteration),
		},
		s.Time,
	)
}

// Telemetry writes snapshots to the flights bucket. It implements sim.Sink.
type Telemetry struct {
	m      *Manager
	flight string
	failed atomic.Bool
}

// NewTelemetry tags every point with flightID.
func NewTelemetry(m *Manager, flightID uint) *Telemetry {
	return &Telemetry{m: m, flight: strconv.FormatUint(uint64(flightID), 10)}
}

// Publish writes the vehicle and loop points for s. Only the first failure
// is logged.
func (t *Telemetry) Publish(s sim.Snapshot) {
	for _, p := range []*influxdb2_write.Point{VehiclePoint(t.flight, s), LoopPoint(t.flight, s)} {
		if err := t.m.WritePoint(BucketFlights, p); err != nil {
			if !t.failed.Swap(true) {
				t.m.Logger.Error().Err(err).Msg("telemetry write failed, further errors suppressed")
			}
			return
		}
	}
}
