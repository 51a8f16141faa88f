package gormstorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hilsim/hilsim/internal/database"
	"github.com/hilsim/hilsim/internal/model"
	"github.com/hilsim/hilsim/internal/sim"
	"github.com/hilsim/hilsim/internal/storage"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "flights.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sample(i uint64, alt float64) *sim.Snapshot {
	return &sim.Snapshot{
		Time:      time.Unix(1700000000, int64(i)*int64(time.Millisecond)),
		Elapsed:   time.Duration(i) * time.Millisecond,
		Iteration: i,
		Status:    "flying",
		Position:  [3]float64{0, 0, alt - 375},
		Attitude:  [4]float64{1, 0, 0, 0},
		Lat:       40.448985 + float64(i)*1e-6,
		Lon:       -79.898025,
		Alt:       alt,
		Commands:  []float64{0.5, 0.5, 0.5, 0.5},
		Voltage:   16.4,
		SOC:       0.99,
	}
}

func TestInitWithoutDatabase(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
}

func TestInitConnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connect.db")
	b := New(Dependencies{Connect: func() (*gorm.DB, error) { return database.GetSqliteDB(path) }})
	require.NoError(t, b.Init())
	defer b.Close()
	assert.NotNil(t, b.DB())
}

func TestRecordWithoutFlight(t *testing.T) {
	b := newTestBackend(t)

	assert.ErrorIs(t, b.RecordSample(sample(1, 375)), storage.ErrNoFlight)
	assert.ErrorIs(t, b.RecordEvent(&sim.Event{Kind: sim.EventStatus}), storage.ErrNoFlight)
	assert.ErrorIs(t, b.EndFlight(storage.FlightEnd{}), storage.ErrNoFlight)
}

func TestStartFlightAssignsID(t *testing.T) {
	b := newTestBackend(t)

	f := &model.Flight{StartedAt: time.Now(), OriginAlt: 375}
	require.NoError(t, b.StartFlight(f))
	assert.NotZero(t, f.ID)
}

func TestRecordSample_Queues(t *testing.T) {
	b := newTestBackend(t)
	require.NoError(t, b.StartFlight(&model.Flight{StartedAt: time.Now()}))

	require.NoError(t, b.RecordSample(sample(1, 375)))
	require.NoError(t, b.RecordEvent(&sim.Event{Kind: sim.EventConnected, Lat: 40.4, Lon: -79.9}))
	assert.Equal(t, 2, b.PendingWrites())
}

func TestFlightLifecycle(t *testing.T) {
	b := newTestBackend(t)

	f := &model.Flight{StartedAt: time.Now(), OriginAlt: 375}
	require.NoError(t, b.StartFlight(f))

	for i := uint64(1); i <= 5; i++ {
		require.NoError(t, b.RecordSample(sample(i, 375+float64(i))))
	}
	require.NoError(t, b.RecordEvent(&sim.Event{
		Time:    time.Now(),
		Kind:    sim.EventStatus,
		Status:  "flying",
		Message: "vehicle flying",
		Lat:     40.448985,
		Lon:     -79.898025,
		Alt:     376,
	}))

	end := time.Now()
	require.NoError(t, b.EndFlight(storage.FlightEnd{EndedAt: end, FinalStatus: "landed", ConsumedMAh: 12.5}))
	assert.Zero(t, b.PendingWrites())

	var samples []model.VehicleSample
	require.NoError(t, b.DB().Where("flight_id = ?", f.ID).Order("iteration").Find(&samples).Error)
	require.Len(t, samples, 5)
	assert.Equal(t, uint64(1), samples[0].Iteration)
	assert.Equal(t, float32(380), samples[4].Alt)

	var events []model.FlightEvent
	require.NoError(t, b.DB().Where("flight_id = ?", f.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "status", events[0].Kind)

	var stored model.Flight
	require.NoError(t, b.DB().First(&stored, f.ID).Error)
	assert.True(t, stored.EndedAt.Valid)
	assert.Equal(t, "landed", stored.FinalStatus)
	assert.Equal(t, uint(5), stored.SampleCount)
	assert.Equal(t, float32(380), stored.MaxAltitude)
	assert.Equal(t, float32(12.5), stored.ConsumedMAh)
	assert.Equal(t, 5, stored.Track.Coordinates().Length())

	// samples after the flight ended are rejected
	assert.ErrorIs(t, b.RecordSample(sample(6, 375)), storage.ErrNoFlight)
}

func TestEndFlight_SingleSampleHasNoTrack(t *testing.T) {
	b := newTestBackend(t)
	f := &model.Flight{StartedAt: time.Now()}
	require.NoError(t, b.StartFlight(f))
	require.NoError(t, b.RecordSample(sample(1, 375)))
	require.NoError(t, b.EndFlight(storage.FlightEnd{EndedAt: time.Now(), FinalStatus: "landed"}))

	var stored model.Flight
	require.NoError(t, b.DB().First(&stored, f.ID).Error)
	assert.Equal(t, uint(1), stored.SampleCount)
	assert.True(t, stored.Track.IsEmpty())
}

func TestCloseFlushes(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "flights.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())

	require.NoError(t, b.StartFlight(&model.Flight{StartedAt: time.Now()}))
	require.NoError(t, b.RecordSample(sample(1, 375)))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	var count int64
	require.NoError(t, db.Model(&model.VehicleSample{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWriterFlushesOnTicker(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "flights.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartFlight(&model.Flight{StartedAt: time.Now()}))
	require.NoError(t, b.RecordSample(sample(1, 375)))

	assert.Eventually(t, func() bool { return b.PendingWrites() == 0 }, time.Second, 5*time.Millisecond)
}

func TestEndFlight_WaitsForWriterBatch(t *testing.T) {
	db, err := database.GetSqliteDB(filepath.Join(t.TempDir(), "flights.db"))
	require.NoError(t, err)
	b := New(Dependencies{DB: db, FlushInterval: time.Millisecond})
	require.NoError(t, b.Init())
	defer b.Close()

	for round := 0; round < 5; round++ {
		f := &model.Flight{StartedAt: time.Now()}
		require.NoError(t, b.StartFlight(f))
		for i := uint64(1); i <= 300; i++ {
			require.NoError(t, b.RecordSample(sample(i, 375)))
		}
		require.NoError(t, b.EndFlight(storage.FlightEnd{EndedAt: time.Now(), FinalStatus: "landed"}))

		var count int64
		require.NoError(t, db.Model(&model.VehicleSample{}).Where("flight_id = ?", f.ID).Count(&count).Error)
		assert.Equal(t, int64(300), count, "flight %d", f.ID)
	}
}
