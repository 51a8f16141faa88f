package storage

import (
	"log/slog"
	"sync/atomic"

	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
)

// Recorder feeds a Backend from the simulation loop. It implements
// sim.Sink and sim.EventSink. Backend errors are counted and only the first
// one is logged so a dead backend cannot flood the log or stop the loop.
type Recorder struct {
	backend Backend
	log     *slog.Logger

	failures atomic.Uint64
}

// NewRecorder wraps b. b must already be initialized.
func NewRecorder(b Backend, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{backend: b, log: log.With("component", "recorder")}
}

// Start opens a flight on the backend.
func (r *Recorder) Start(f *model.Flight) error {
	return r.backend.StartFlight(f)
}

// Publish records a sample.
func (r *Recorder) Publish(s sim.Snapshot) {
	r.report(r.backend.RecordSample(&s))
}

// Event records an event.
func (r *Recorder) Event(e sim.Event) {
	r.report(r.backend.RecordEvent(&e))
}

// Stop closes the flight on the backend.
func (r *Recorder) Stop(end FlightEnd) error {
	if n := r.failures.Load(); n > 0 {
		r.log.Warn("recorder dropped writes", "count", n)
	}
	return r.backend.EndFlight(end)
}

// Failures returns the number of rejected samples and events.
func (r *Recorder) Failures() uint64 {
	return r.failures.Load()
}

func (r *Recorder) report(err error) {
	if err == nil {
		return
	}
	if r.failures.Add(1) == 1 {
		r.log.Error("recording failed, further errors are counted", "error", err)
	}
}
