package websocket

import (
	"encoding/json"

	"github.com/hilsim/hilsim/internal/model"
)

// Message types of the visualization stream.
const (
	TypeStartFlight = "start_flight"
	TypeEndFlight   = "end_flight"
	TypeSample      = "sample"
	TypeEvent       = "event"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartFlightPayload describes the flight and the box the viewer draws.
type StartFlightPayload struct {
	Flight  *model.Flight `json:"flight"`
	VizSize [3]float64    `json:"vizSize"`
}

// EndFlightPayload closes the flight on the viewer.
type EndFlightPayload struct {
	FlightID    uint    `json:"flightId"`
	EndedAt     string  `json:"endedAt"`
	FinalStatus string  `json:"finalStatus"`
	ConsumedMAh float64 `json:"consumedMAh"`
}
