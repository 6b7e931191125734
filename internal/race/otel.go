package race

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackday/racer/internal/race"

type engineMetrics struct {
	frames   metric.Int64Counter
	laps     metric.Int64Counter
	stepTime metric.Float64Histogram
	actors   metric.Int64ObservableGauge
}

func newEngineMetrics(mp metric.MeterProvider, e *Engine) (*engineMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(instrumentationName)
	em := &engineMetrics{}

	var err error
	em.frames, err = m.Int64Counter(
		"race.frames",
		metric.WithDescription("Total frames stepped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frame counter: %w", err)
	}

	em.laps, err = m.Int64Counter(
		"race.laps.completed",
		metric.WithDescription("Total laps completed by all actors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lap counter: %w", err)
	}

	em.stepTime, err = m.Float64Histogram(
		"race.step.duration",
		metric.WithDescription("Wall time of one update pass"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating step histogram: %w", err)
	}

	em.actors, err = m.Int64ObservableGauge(
		"race.actors",
		metric.WithDescription("Actors currently in the race"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating actor gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(em.actors, int64(e.ActorCount()))
			return nil
		},
		em.actors,
	)
	if err != nil {
		return nil, fmt.Errorf("registering actor callback: %w", err)
	}

	return em, nil
}
