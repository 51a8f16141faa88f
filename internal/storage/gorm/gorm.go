// Package gormstorage implements the storage.Backend interface on GORM with
// internal queues and a background DB writer goroutine. The SQLite,
// Postgres and MySQL backends wrap it.
package gormstorage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/hilsim/hilsim/internal/database"
	"github.com/hilsim/hilsim/internal/geo"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/model/convert"
	"github.com/hilsim/hilsim/internal/queue"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = time.Second

// maxPendingRows bounds each queue while the database is unreachable.
const maxPendingRows = 500_000

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB *gorm.DB
	// Connect opens the database when DB is nil.
	Connect       func() (*gorm.DB, error)
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Samples *queue.Queue[model.VehicleSample]
	Events  *queue.Queue[model.FlightEvent]
}

func newQueues() *queues {
	return &queues{
		Samples: queue.NewBounded[model.VehicleSample](maxPendingRows),
		Events:  queue.NewBounded[model.FlightEvent](maxPendingRows),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	log      *slog.Logger
	queues   *queues
	flightID atomic.Uint64

	mu          sync.Mutex
	flight      *model.Flight
	track       [][3]float64
	sampleCount uint
	maxAlt      float64

	flushMu   sync.Mutex   // one batch in flight
	lastWrite atomic.Int64 // ns
	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		log:    deps.Logger.With("component", "storage"),
		queues: newQueues(),
	}
}

// Init connects if needed, migrates the schema and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		if b.deps.Connect == nil {
			return errors.New("no database configured")
		}
		db, err := b.deps.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		b.deps.DB = db
	}

	if err := database.Setup(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.doneChan = make(chan struct{})
	go b.writeLoop()
	return nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.doneChan
		}
	})
	return nil
}

// StartFlight inserts the flight row and starts stamping samples with its ID.
func (b *Backend) StartFlight(f *model.Flight) error {
	if err := b.deps.DB.Create(f).Error; err != nil {
		return fmt.Errorf("failed to create flight: %w", err)
	}

	b.mu.Lock()
	b.flight = f
	b.track = b.track[:0]
	b.sampleCount = 0
	b.maxAlt = float64(f.OriginAlt)
	b.mu.Unlock()

	b.flightID.Store(uint64(f.ID))
	b.log.Info("flight started", "flightId", f.ID)
	return nil
}

// EndFlight flushes pending rows and writes the flight summary and track.
func (b *Backend) EndFlight(end storage.FlightEnd) error {
	id := uint(b.flightID.Swap(0))
	if id == 0 {
		return storage.ErrNoFlight
	}
	b.flush()

	b.mu.Lock()
	f := b.flight
	f.EndedAt = sql.NullTime{Time: end.EndedAt, Valid: true}
	f.FinalStatus = end.FinalStatus
	f.ConsumedMAh = float32(end.ConsumedMAh)
	f.SampleCount = b.sampleCount
	f.MaxAltitude = float32(b.maxAlt)
	if track, err := geo.Track(b.track); err == nil {
		f.Track = track
	} else {
		b.log.Debug("flight track not stored", "error", err)
	}
	b.flight = nil
	b.mu.Unlock()

	if err := b.deps.DB.Save(f).Error; err != nil {
		return fmt.Errorf("failed to update flight: %w", err)
	}
	if dropped := b.Dropped(); dropped > 0 {
		b.log.Warn("rows dropped while the database lagged", "flightId", id, "count", dropped)
	}
	b.log.Info("flight ended", "flightId", id, "samples", f.SampleCount)
	return nil
}

// RecordSample converts and queues a sample.
func (b *Backend) RecordSample(s *sim.Snapshot) error {
	id := uint(b.flightID.Load())
	if id == 0 {
		return storage.ErrNoFlight
	}
	b.queues.Samples.Push(convert.SnapshotToSample(id, *s))

	b.mu.Lock()
	b.track = append(b.track, [3]float64{s.Lon, s.Lat, s.Alt})
	b.sampleCount++
	if s.Alt > b.maxAlt {
		b.maxAlt = s.Alt
	}
	b.mu.Unlock()
	return nil
}

// RecordEvent converts and queues an event.
func (b *Backend) RecordEvent(e *sim.Event) error {
	id := uint(b.flightID.Load())
	if id == 0 {
		return storage.ErrNoFlight
	}
	b.queues.Events.Push(convert.EventToFlightEvent(id, *e))
	return nil
}

// PendingWrites returns the number of queued rows.
func (b *Backend) PendingWrites() int {
	return b.queues.Samples.Len() + b.queues.Events.Len()
}

// Dropped returns the number of rows discarded because a queue was full.
func (b *Backend) Dropped() uint64 {
	return b.queues.Samples.Dropped() + b.queues.Events.Dropped()
}

// LastWriteDuration returns how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed items are requeued ahead of newer rows for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if err := tx.Create(&items).Error; err != nil {
		log.Error("error writing rows", "table", name, "count", len(items), "error", err)
		tx.Rollback()
		q.Requeue(items)
		return
	}
	tx.Commit()
}

// flush writes everything queued so far. Callers outside the write loop
// return only after any batch the loop had already drained is committed.
func (b *Backend) flush() {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	start := time.Now()
	writeQueue(b.deps.DB, b.queues.Samples, "vehicle_samples", b.log)
	writeQueue(b.deps.DB, b.queues.Events, "flight_events", b.log)
	b.lastWrite.Store(int64(time.Since(start)))
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.doneChan)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}
