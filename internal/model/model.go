package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RecorderInfo{},
	&Flight{},
	&VehicleSample{},
	&FlightEvent{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderInfo describes the installation that produced the recordings
type RecorderInfo struct {
	gorm.Model
	Name        string `json:"name" gorm:"size:127"`
	Description string `json:"description" gorm:"size:255"`
	Version     string `json:"version" gorm:"size:32"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

////////////////////////
// FLIGHT MODELS
////////////////////////

// Flight is one simulation run, from handshake to shutdown
type Flight struct {
	gorm.Model
	StartedAt   time.Time       `json:"startedAt" gorm:"index:idx_flight_started_at"`
	EndedAt     sql.NullTime    `json:"endedAt"`
	ParamsFile  string          `json:"paramsFile" gorm:"size:255"`
	Actuators   uint8           `json:"actuators"`
	Mass        float32         `json:"mass"`
	OriginLat   float64         `json:"originLat"`
	OriginLon   float64         `json:"originLon"`
	OriginAlt   float32         `json:"originAlt"`
	VizSize     datatypes.JSON  `json:"vizSize"`    // [x, y, z] box of the visualization model
	Parameters  datatypes.JSON  `json:"parameters"` // full parameter file, key -> value
	FinalStatus string          `json:"finalStatus" gorm:"size:16"`
	SampleCount uint            `json:"sampleCount"`
	MaxAltitude float32         `json:"maxAltitude"`
	ConsumedMAh float32         `json:"consumedMAh"`
	Track       geom.LineString `json:"track"` // 3857 flight path, written at the end of the flight
}

func (*Flight) TableName() string {
	return "flights"
}

// VehicleSample is the vehicle state at one instant of a flight
type VehicleSample struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"index:idx_vehiclesample_time"`
	FlightID  uint      `json:"flightId" gorm:"index:idx_vehiclesample_flight_id"`
	Flight    Flight    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Iteration uint64    `json:"iteration"`
	ElapsedMs int64     `json:"elapsedMs"`
	Status    string    `json:"status" gorm:"size:16"`

	Position geom.Point `json:"position"` // 3857 with altitude AMSL as Z
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Alt      float32    `json:"alt"`

	X  float32 `json:"x"` // local east, m
	Y  float32 `json:"y"` // local north, m
	Z  float32 `json:"z"` // local up, m
	Vx float32 `json:"vx"`
	Vy float32 `json:"vy"`
	Vz float32 `json:"vz"`

	Qw float32 `json:"qw"`
	Qx float32 `json:"qx"`
	Qy float32 `json:"qy"`
	Qz float32 `json:"qz"`
	Wx float32 `json:"wx"`
	Wy float32 `json:"wy"`
	Wz float32 `json:"wz"`

	Thrust      float32        `json:"thrust"` // body z force, N
	Commands    datatypes.JSON `json:"commands"`
	RotorSpeeds datatypes.JSON `json:"rotorSpeeds"`
	Voltage     float32        `json:"voltage"`
	Current     float32        `json:"current"`
	SOC         float32        `json:"soc"`
	Dt          float32        `json:"dt"`
	LoopHz      float32        `json:"loopHz"`
}

func (*VehicleSample) TableName() string {
	return "vehicle_samples"
}

// FlightEvent records a discrete change during a flight: connection,
// ground contact transitions, battery depletion and shutdown
type FlightEvent struct {
	ID       uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time     time.Time  `json:"time" gorm:"index:idx_flightevent_time"`
	FlightID uint       `json:"flightId" gorm:"index:idx_flightevent_flight_id"`
	Flight   Flight     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:FlightID;"`
	Kind     string     `json:"kind" gorm:"size:32"`
	Status   string     `json:"status" gorm:"size:16"`
	Message  string     `json:"message" gorm:"size:255"`
	Position geom.Point `json:"position"`
	Alt      float32    `json:"alt"`
}

func (*FlightEvent) TableName() string {
	return "flight_events"
}
