// Package streaming defines the JSON envelopes the websocket backend sends
// to a live race server.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/trackday/racer/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRace  = "start_race"
	TypeEndRace    = "end_race"
	TypeAddActor   = "add_actor"
	TypeActorState = "actor_state"
	TypeLapEvent   = "lap_event"
	TypeAck        = "ack"
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

// StartRacePayload carries the race and its track.
type StartRacePayload struct {
	Race  *core.Race   `json:"race"`
	Track TrackPayload `json:"track"`
}

// TrackPayload is core.Track with its waypoints spelled out.
type TrackPayload struct {
	*core.Track
	Waypoints []core.Position3D `json:"waypoints"`
}

// NewTrackPayload wraps t.
func NewTrackPayload(t *core.Track) TrackPayload {
	if t == nil {
		return TrackPayload{}
	}
	return TrackPayload{Track: t, Waypoints: t.Waypoints.Points()}
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Decode unmarshals the payload of env into T.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return v, nil
}
