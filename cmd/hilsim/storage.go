package main

import (
	"fmt"
	"time"

	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
	"github.com/hilsim/hilsim/internal/storage/factory"
)

// recording is one storage backend fed by the simulation loop.
type recording struct {
	name    string
	backend storage.Backend
	rec     *storage.Recorder
	flight  *model.Flight
}

// startPrimaryRecording builds the backend named by storage.type. It returns
// nil without error when recording is off.
func startPrimaryRecording(cfg config.StorageConfig, params *config.Parameters, flight model.Flight, simCtx *sim.Context) (*recording, error) {
	backend, err := factory.NewBackend(cfg, factory.Options{
		VizSize: params.Visualization.Size,
		Now:     func() time.Time { return SessionStartTime },
	}, Logger)
	if err != nil {
		return nil, err
	}
	if backend == nil {
		Logger.Info("Flight recorder off")
		return nil, nil
	}
	return startRecording(cfg.Type, backend, flight, simCtx, cfg.SampleHz)
}

// startStreamRecording feeds the visualization stream at SIM_ROS_HZ.
func startStreamRecording(cfg config.WebSocketConfig, params *config.Parameters, flight model.Flight, simCtx *sim.Context) (*recording, error) {
	backend, err := factory.NewStream(cfg, params.Visualization.Size, Logger)
	if err != nil {
		return nil, err
	}
	return startRecording("stream", backend, flight, simCtx, params.Simulation.VizHz)
}

func startRecording(name string, backend storage.Backend, flight model.Flight, simCtx *sim.Context, hz float64) (*recording, error) {
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s storage: %w", name, err)
	}

	r := &recording{
		name:    name,
		backend: backend,
		rec:     storage.NewRecorder(backend, Logger),
		flight:  &flight,
	}
	if err := r.rec.Start(r.flight); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to start %s flight: %w", name, err)
	}
	if err := simCtx.AddSink(r.rec, hz); err != nil {
		_ = r.rec.Stop(storage.FlightEnd{EndedAt: time.Now(), FinalStatus: "aborted"})
		_ = backend.Close()
		return nil, fmt.Errorf("%s storage: %w", name, err)
	}
	simCtx.AddEventSink(r.rec)

	Logger.Info("Flight recording started", "storage", name, "flightId", r.flight.ID, "hz", hz)
	return r, nil
}

func (r *recording) flightID() uint {
	return r.flight.ID
}

// stop closes the flight and the backend.
func (r *recording) stop(end storage.FlightEnd) {
	if err := r.rec.Stop(end); err != nil {
		Logger.Error("Failed to end flight", "storage", r.name, "error", err)
	}
	if s, ok := r.backend.(factory.Stats); ok {
		Logger.Info("Storage writer stats",
			"storage", r.name,
			"pending", s.PendingWrites(),
			"dropped", s.Dropped(),
			"lastWrite", s.LastWriteDuration())
	}
	if err := r.backend.Close(); err != nil {
		Logger.Error("Failed to close storage", "storage", r.name, "error", err)
	}
	if e, ok := r.backend.(storage.Exporter); ok && e.ExportedFilePath() != "" {
		Logger.Info("Flight saved", "storage", r.name, "path", e.ExportedFilePath())
	}
}
