package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackday/racer/pkg/core"
)

func playerCar(t *testing.T) core.Actor {
	t.Helper()
	a, err := core.NewActor(1, core.ActorSpec{
		Name:         "player",
		Kind:         core.KindPlayer,
		MaxSpeed:     20,
		Acceleration: 0.5,
		TurnRate:     0.05,
	}, 1)
	require.NoError(t, err)
	return a
}

func TestIntegrate(t *testing.T) {
	a := playerCar(t)
	a.Speed = 10
	a.Position.Z = 7

	next := Integrate(a)
	assert.InDelta(t, 0, next.Position.X, 1e-12)
	assert.InDelta(t, 10, next.Position.Y, 1e-12)
	assert.Equal(t, 7.0, next.Position.Z)

	a.Heading = math.Pi / 2
	next = Integrate(a)
	assert.InDelta(t, 10, next.Position.X, 1e-12)
	assert.InDelta(t, 0, next.Position.Y, 1e-12)
}

func TestApplyControls_Speed(t *testing.T) {
	tests := []struct {
		name  string
		speed float64
		c     core.Controls
		want  float64
	}{
		{"throttle", 0, core.Controls{Throttle: true}, 0.5},
		{"throttle capped", 19.8, core.Controls{Throttle: true}, 20},
		{"brake", 1, core.Controls{Brake: true}, 0.75},
		{"brake into reverse", 0, core.Controls{Brake: true}, -0.25},
		{"reverse capped", -9.9, core.Controls{Brake: true}, -10},
		{"friction forward", 1, core.Controls{}, 0.8},
		{"friction stops at zero", 0.1, core.Controls{}, 0},
		{"friction in reverse", -0.1, core.Controls{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := playerCar(t)
			a.Speed = tt.speed
			assert.InDelta(t, tt.want, ApplyControls(a, tt.c, DefaultParams()).Speed, 1e-12)
		})
	}
}

func TestApplyControls_NoReverse(t *testing.T) {
	a, err := core.NewActor(2, core.ActorSpec{
		Name:         "kart",
		Kind:         core.KindPlayer,
		MaxSpeed:     20,
		ReverseLimit: core.Limit(0),
		Acceleration: 0.5,
		TurnRate:     0.05,
		InitialSpeed: 2,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.0, a.ReverseLimit)

	for range 30 {
		a = ApplyControls(a, core.Controls{Brake: true}, DefaultParams())
		require.GreaterOrEqual(t, a.Speed, 0.0)
	}
	assert.Equal(t, 0.0, a.Speed)
}

func TestApplyControls_SteerOnlyWhileMoving(t *testing.T) {
	a := playerCar(t)

	stopped := ApplyControls(a, core.Controls{Steer: 1}, DefaultParams())
	assert.Equal(t, 0.0, stopped.Heading)

	a.Speed = 5
	right := ApplyControls(a, core.Controls{Throttle: true, Steer: 1}, DefaultParams())
	assert.InDelta(t, 0.05, right.Heading, 1e-12)

	left := ApplyControls(a, core.Controls{Throttle: true, Steer: -3}, DefaultParams())
	assert.InDelta(t, -0.05, left.Heading, 1e-12)

	half := ApplyControls(a, core.Controls{Throttle: true, Steer: 0.5}, DefaultParams())
	assert.InDelta(t, 0.025, half.Heading, 1e-12)
}
