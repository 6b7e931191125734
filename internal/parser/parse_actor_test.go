package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackday/racer/pkg/core"
)

func TestParseActor_Full(t *testing.T) {
	data := []string{`"Blue"`, "ai", "18", "0.3", "0.04", "10.5", "-20", "1.57", "1.00", "4"}

	spec, err := newTestParser().ParseActor(data)
	require.NoError(t, err)

	assert.Equal(t, "Blue", spec.Name)
	assert.Equal(t, core.KindAI, spec.Kind)
	assert.Equal(t, 18.0, spec.MaxSpeed)
	assert.Equal(t, 0.3, spec.Acceleration)
	assert.Equal(t, 0.04, spec.TurnRate)
	assert.Equal(t, core.Position3D{X: 10.5, Y: -20, Z: 4}, spec.StartPosition)
	assert.Equal(t, 1.57, spec.StartHeading)
	assert.Equal(t, 1, spec.StartWaypoint)
	require.NotNil(t, spec.ReverseLimit)
	assert.Equal(t, core.DefaultReverseLimit, *spec.ReverseLimit)
	assert.Equal(t, 0.0, spec.InitialSpeed)
}

func TestParseActor_ReverseLimitAndInitialSpeed(t *testing.T) {
	tests := []struct {
		name        string
		reverse     string
		initial     string
		wantReverse float64
		wantInitial float64
	}{
		{"no reverse", "0", "", 0, 0},
		{"custom reverse", "-4.5", "6", -4.5, 6},
		{"empty keeps default", "", "2.00", core.DefaultReverseLimit, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []string{"Blue", "ai", "18", "0.3", "0.04", "", "", "", "", "", tt.reverse, tt.initial}
			spec, err := newTestParser().ParseActor(data)
			require.NoError(t, err)
			require.NotNil(t, spec.ReverseLimit)
			assert.Equal(t, tt.wantReverse, *spec.ReverseLimit)
			assert.Equal(t, tt.wantInitial, spec.InitialSpeed)
		})
	}
}

func TestParseActor_MinimalPlayer(t *testing.T) {
	spec, err := newTestParser().ParseActor([]string{"Red", "player", "20", "0.5", "0.05"})
	require.NoError(t, err)

	assert.Equal(t, core.KindPlayer, spec.Kind)
	assert.Equal(t, core.Position3D{}, spec.StartPosition)
	assert.Equal(t, 0, spec.StartWaypoint)
}

func TestParseActor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []string
		invalid bool
	}{
		{"too few args", []string{"Red", "ai", "20"}, false},
		{"bad max speed", []string{"Red", "ai", "fast", "0.5", "0.05"}, false},
		{"NaN heading", []string{"Red", "ai", "20", "0.5", "0.05", "0", "0", "NaN"}, false},
		{"fractional waypoint", []string{"Red", "ai", "20", "0.5", "0.05", "0", "0", "0", "1.5"}, false},
		{"zero turn rate", []string{"Red", "ai", "20", "0.5", "0"}, true},
		{"unknown kind", []string{"Red", "boat", "20", "0.5", "0.05"}, true},
		{"bad reverse limit", []string{"Red", "ai", "20", "0.5", "0.05", "", "", "", "", "", "back"}, false},
		{"positive reverse limit", []string{"Red", "ai", "20", "0.5", "0.05", "", "", "", "", "", "2"}, true},
		{"reversing without reverse", []string{"Red", "ai", "20", "0.5", "0.05", "", "", "", "", "", "0", "-1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser().ParseActor(tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.invalid, errors.Is(err, core.ErrInvalidActor))
		})
	}
}

func TestParseControls(t *testing.T) {
	id, c, err := newTestParser().ParseControls([]string{"2.00", "true", "0", "-0.5"})
	require.NoError(t, err)

	assert.Equal(t, uint16(2), id)
	assert.True(t, c.Throttle)
	assert.False(t, c.Brake)
	assert.Equal(t, -0.5, c.Steer)
}

func TestParseControls_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []string
	}{
		{"wrong arg count", []string{"1", "true", "false"}},
		{"id out of range", []string{"70000", "true", "false", "0"}},
		{"bad throttle", []string{"1", "maybe", "false", "0"}},
		{"steer too large", []string{"1", "true", "false", "2"}},
		{"infinite steer", []string{"1", "true", "false", "Inf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newTestParser().ParseControls(tt.data)
			assert.Error(t, err)
		})
	}
}
