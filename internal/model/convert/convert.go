// Package convert builds recorder rows from simulation snapshots and events
package convert

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/geo"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
)

// floatsToJSON converts a []float64 to datatypes.JSON for DB storage.
func floatsToJSON(values []float64) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(values)
	return datatypes.JSON(data)
}

// ParametersToJSON flattens a parameter store to a key -> value object.
func ParametersToJSON(store *config.ParamStore) datatypes.JSON {
	if store == nil {
		return datatypes.JSON("{}")
	}
	values := make(map[string]any)
	for k, p := range store.All() {
		values[k] = p.Value
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// NewFlight describes a flight about to start with parameters p.
func NewFlight(p *config.Parameters, start time.Time) model.Flight {
	vizSize, _ := json.Marshal(p.Visualization.Size)
	f := model.Flight{
		StartedAt:  start,
		Actuators:  uint8(p.Vehicle.Count()),
		Mass:       float32(p.Dynamics.Mass),
		OriginLat:  p.Sensors.LatOrigin,
		OriginLon:  p.Sensors.LonOrigin,
		OriginAlt:  float32(p.Sensors.AltOrigin),
		VizSize:    datatypes.JSON(vizSize),
		Parameters: ParametersToJSON(p.Store()),
	}
	if s := p.Store(); s != nil {
		f.ParamsFile = s.Path()
	}
	return f
}

// SnapshotToSample converts a sim.Snapshot to a GORM model.VehicleSample.
// Positions outside the mercator range are stored as an empty point.
func SnapshotToSample(flightID uint, s sim.Snapshot) model.VehicleSample {
	pt, _ := geo.Point3857(s.Lon, s.Lat, s.Alt)

	return model.VehicleSample{
		Time:        s.Time,
		FlightID:    flightID,
		Iteration:   s.Iteration,
		ElapsedMs:   s.Elapsed.Milliseconds(),
		Status:      s.Status,
		Position:    pt,
		Lat:         s.Lat,
		Lon:         s.Lon,
		Alt:         float32(s.Alt),
		X:           float32(s.Position[0]),
		Y:           float32(s.Position[1]),
		Z:           float32(s.Position[2]),
		Vx:          float32(s.Velocity[0]),
		Vy:          float32(s.Velocity[1]),
		Vz:          float32(s.Velocity[2]),
		Qw:          float32(s.Attitude[0]),
		Qx:          float32(s.Attitude[1]),
		Qy:          float32(s.Attitude[2]),
		Qz:          float32(s.Attitude[3]),
		Wx:          float32(s.AngularRate[0]),
		Wy:          float32(s.AngularRate[1]),
		Wz:          float32(s.AngularRate[2]),
		Thrust:      float32(s.Thrust[2]),
		Commands:    floatsToJSON(s.Commands),
		RotorSpeeds: floatsToJSON(s.RotorSpeeds),
		Voltage:     float32(s.Voltage),
		Current:     float32(s.Current),
		SOC:         float32(s.SOC),
		Dt:          float32(s.Dt),
		LoopHz:      float32(s.LoopHz),
	}
}

// EventToFlightEvent converts a sim.Event to a GORM model.FlightEvent.
func EventToFlightEvent(flightID uint, e sim.Event) model.FlightEvent {
	pt, _ := geo.Point3857(e.Lon, e.Lat, e.Alt)

	return model.FlightEvent{
		Time:     e.Time,
		FlightID: flightID,
		Kind:     string(e.Kind),
		Status:   e.Status,
		Message:  e.Message,
		Position: pt,
		Alt:      float32(e.Alt),
	}
}
