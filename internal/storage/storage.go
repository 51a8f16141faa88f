package storage

import (
	"errors"
	"time"

	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
)

// ErrNoFlight is returned when samples or events arrive outside a flight.
var ErrNoFlight = errors.New("no flight in progress")

// FlightEnd closes a flight record.
type FlightEnd struct {
	EndedAt     time.Time
	FinalStatus string
	ConsumedMAh float64
}

// Backend is the interface all flight recorder implementations must satisfy.
// Record calls happen on the simulation goroutine and must not block on I/O.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Flight management (StartFlight assigns f.ID)
	StartFlight(f *model.Flight) error
	EndFlight(end FlightEnd) error

	// Recording
	RecordSample(s *sim.Snapshot) error
	RecordEvent(e *sim.Event) error
}

// Exporter is an optional interface for backends that write a file per
// flight.
type Exporter interface {
	ExportedFilePath() string
}
