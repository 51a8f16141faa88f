package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL     string
	Secret  string
	VizSize [3]float64
}

// Backend streams flight data over WebSocket to a visualization server.
type Backend struct {
	conn     *connection
	cfg      Config
	flightID atomic.Uint64
	active   atomic.Bool
}

// New creates a new WebSocket storage backend.
func New(cfg Config, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		conn: newConnection(log.With("component", "stream")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Connected reports whether the socket is currently open.
func (b *Backend) Connected() bool {
	return b.conn.connected()
}

// Dropped returns the number of messages dropped on a full send buffer.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartFlight assigns a stream-local flight ID, sends start_flight and
// waits for the server ack.
func (b *Backend) StartFlight(f *model.Flight) error {
	if f.ID == 0 {
		f.ID = uint(b.flightID.Load() + 1)
	}
	data, err := marshalEnvelope(TypeStartFlight, StartFlightPayload{Flight: f, VizSize: b.cfg.VizSize})
	if err != nil {
		return err
	}

	b.conn.setStart(data)
	b.flightID.Store(uint64(f.ID))
	b.active.Store(true)
	return b.conn.sendAndWait(data, TypeStartFlight, ackTimeout)
}

// EndFlight sends end_flight and waits for server ack.
func (b *Backend) EndFlight(end storage.FlightEnd) error {
	if !b.active.Swap(false) {
		return storage.ErrNoFlight
	}
	id := b.flightID.Load()
	data, err := marshalEnvelope(TypeEndFlight, EndFlightPayload{
		FlightID:    uint(id),
		EndedAt:     end.EndedAt.UTC().Format(time.RFC3339Nano),
		FinalStatus: end.FinalStatus,
		ConsumedMAh: end.ConsumedMAh,
	})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, TypeEndFlight, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.setStart(nil)
	return err
}

func (b *Backend) RecordSample(s *sim.Snapshot) error {
	if !b.active.Load() {
		return storage.ErrNoFlight
	}
	return b.sendEnvelope(TypeSample, s)
}

func (b *Backend) RecordEvent(e *sim.Event) error {
	if !b.active.Load() {
		return storage.ErrNoFlight
	}
	return b.sendEnvelope(TypeEvent, e)
}
