package sim

import (
	"sync"
	"time"
)

// Snapshot is a copy of the simulation state taken on the loop goroutine.
// Sinks may keep it; nothing in it aliases live physics state.
type Snapshot struct {
	Time      time.Time     `json:"time"`
	Elapsed   time.Duration `json:"elapsed"`
	Iteration uint64        `json:"iteration"`
	Status    string        `json:"status"`

	Position    [3]float64 `json:"position"`    // m, east-north-up
	Velocity    [3]float64 `json:"velocity"`    // m/s
	Attitude    [4]float64 `json:"attitude"`    // w, x, y, z
	AngularRate [3]float64 `json:"angularRate"` // rad/s, body

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`

	Thrust      [3]float64 `json:"thrust"` // N, body
	Commands    []float64  `json:"commands"`
	RotorSpeeds []float64  `json:"rotorSpeeds"`

	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	SOC     float64 `json:"soc"`

	Dt       float64 `json:"dt"`
	LoopHz   float64 `json:"loopHz"`
	Overruns uint64  `json:"overruns"`
}

// EventKind names a discrete change in the simulation.
type EventKind string

const (
	EventConnected       EventKind = "connected"
	EventStatus          EventKind = "status"
	EventBatteryDepleted EventKind = "battery_depleted"
	EventStopped         EventKind = "stopped"
)

// Event is emitted once per change, not per step.
type Event struct {
	Time     time.Time  `json:"time"`
	Kind     EventKind  `json:"kind"`
	Status   string     `json:"status"`
	Message  string     `json:"message"`
	Position [3]float64 `json:"position"`
	Lat      float64    `json:"lat"`
	Lon      float64    `json:"lon"`
	Alt      float64    `json:"alt"`
}

// Sink receives snapshots at the rate it was registered with.
type Sink interface {
	Publish(Snapshot)
}

// EventSink receives every event.
type EventSink interface {
	Event(Event)
}

// Holder keeps the most recent snapshot for readers on other goroutines.
type Holder struct {
	mu   sync.RWMutex
	snap Snapshot
	ok   bool
}

// Publish implements Sink.
func (h *Holder) Publish(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snap = s
	h.ok = true
}

// Latest returns the last published snapshot, if any.
func (h *Holder) Latest() (Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snap, h.ok
}
