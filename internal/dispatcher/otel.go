package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/trackday/racer/internal/dispatcher"

// metrics are the dispatcher's OTel instruments, all tagged by command.
type metrics struct {
	processed metric.Int64Counter
	failed    metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
}

// queueLens reports the fill level of every buffered command.
type queueLens func(observe func(command string, n int))

func newMetrics(mp metric.MeterProvider, queues queueLens) (*metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(instrumentationName)
	out := &metrics{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&out.processed, "dispatcher.events.processed", "Buffered events handled"},
		{&out.failed, "dispatcher.events.failed", "Buffered events whose handler returned an error"},
		{&out.dropped, "dispatcher.events.dropped", "Events dropped because the queue was full"},
	}
	for _, c := range counters {
		counter, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("creating %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	var err error
	out.duration, err = m.Float64Histogram(
		"dispatcher.event.duration",
		metric.WithDescription("Time spent in Dispatch per command"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	queueSize, err := m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command's queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		queues(func(command string, n int) {
			o.ObserveInt64(queueSize, int64(n), commandAttr(command))
		})
		return nil
	}, queueSize)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	return out, nil
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

func (m *metrics) observeDuration(command string, start time.Time) {
	m.duration.Record(context.Background(), float64(time.Since(start).Microseconds())/1000, commandAttr(command))
}
