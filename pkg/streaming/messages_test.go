package streaming

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackday/racer/pkg/core"
)

func TestMarshalAndDecode(t *testing.T) {
	data, err := Marshal(TypeLapEvent, core.LapEvent{ActorID: 3, Lap: 2, Frame: 120})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, TypeLapEvent, env.Type)

	lap, err := Decode[core.LapEvent](env)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), lap.ActorID)
	assert.Equal(t, 2, lap.Lap)
}

func TestMarshal_UnsupportedPayload(t *testing.T) {
	_, err := Marshal(TypeActorState, make(chan int))
	assert.ErrorContains(t, err, "marshal actor_state payload")
}

func TestDecode_WrongShape(t *testing.T) {
	_, err := Decode[core.LapEvent](Envelope{Type: TypeLapEvent, Payload: json.RawMessage(`[1,2]`)})
	assert.ErrorContains(t, err, "decode lap_event payload")
}

func TestStartRacePayloadIncludesWaypoints(t *testing.T) {
	track := &core.Track{
		Name:      "square",
		Closed:    true,
		Waypoints: core.NewPath([]core.Position3D{{X: 0, Y: 0}, {X: 100, Y: 0}}),
	}
	data, err := Marshal(TypeStartRace, StartRacePayload{
		Race:  &core.Race{Name: "cup"},
		Track: NewTrackPayload(track),
	})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	payload, err := Decode[struct {
		Race  core.Race `json:"race"`
		Track struct {
			Name      string            `json:"name"`
			Waypoints []core.Position3D `json:"waypoints"`
		} `json:"track"`
	}](env)
	require.NoError(t, err)

	assert.Equal(t, "cup", payload.Race.Name)
	assert.Equal(t, "square", payload.Track.Name)
	assert.Equal(t, []core.Position3D{{X: 0, Y: 0}, {X: 100, Y: 0}}, payload.Track.Waypoints)
}

func TestNewTrackPayload_Nil(t *testing.T) {
	assert.Nil(t, NewTrackPayload(nil).Track)
}
