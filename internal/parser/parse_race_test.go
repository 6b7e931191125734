package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRace(t *testing.T) {
	p := newTestParser()

	req, err := p.ParseRace([]string{`"Sunday Cup"`, `"tracks/oval.json"`, "3.00", `"league"`})
	require.NoError(t, err)

	assert.Equal(t, "Sunday Cup", req.Race.Name)
	assert.Equal(t, "tracks/oval.json", req.TrackFile)
	assert.Equal(t, 3, req.Race.TargetLaps)
	assert.Equal(t, "league", req.Race.Tag)
	assert.Equal(t, "1.0.0", req.Race.RacerVersion)
	assert.Equal(t, "abc123", req.Race.RacerBuild)
	assert.False(t, req.Race.StartTime.IsZero())
}

func TestParseRace_NameOnly(t *testing.T) {
	req, err := newTestParser().ParseRace([]string{"practice"})
	require.NoError(t, err)
	assert.Equal(t, "practice", req.Race.Name)
	assert.Empty(t, req.TrackFile)
	assert.Equal(t, 0, req.Race.TargetLaps)
}

func TestParseRace_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []string
	}{
		{"no args", []string{}},
		{"empty name", []string{`""`}},
		{"fractional laps", []string{"cup", "", "2.5"}},
		{"negative laps", []string{"cup", "", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser().ParseRace(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestParseSteps(t *testing.T) {
	p := newTestParser()

	n, err := p.ParseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.ParseSteps([]string{"120.00"})
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	_, err = p.ParseSteps([]string{"0"})
	assert.Error(t, err)

	_, err = p.ParseSteps([]string{"-4"})
	assert.Error(t, err)

	_, err = p.ParseSteps([]string{"1e19"})
	assert.Error(t, err)
}
