// Package memory implements a storage backend that keeps a flight in memory
// and exports it to a JSON file when the flight ends.
package memory

import (
	"sync"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
)

// Backend stores flight data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	flight *model.Flight

	samples []sim.Snapshot
	events  []sim.Event

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartFlight begins recording a new flight
func (b *Backend) StartFlight(f *model.Flight) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	f.ID = b.idCounter
	b.flight = f
	b.samples = nil
	b.events = nil
	return nil
}

// EndFlight finalizes and exports the flight data
func (b *Backend) EndFlight(end storage.FlightEnd) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return storage.ErrNoFlight
	}
	err := b.exportJSON(end)
	b.flight = nil
	return err
}

// RecordSample appends a copy of s to the flight
func (b *Backend) RecordSample(s *sim.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return storage.ErrNoFlight
	}
	b.samples = append(b.samples, *s)
	return nil
}

// RecordEvent appends a copy of e to the flight
func (b *Backend) RecordEvent(e *sim.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flight == nil {
		return storage.ErrNoFlight
	}
	b.events = append(b.events, *e)
	return nil
}

// SampleCount returns the number of samples recorded in the current flight
func (b *Backend) SampleCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.samples)
}

// ExportedFilePath returns the path of the last exported file
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
