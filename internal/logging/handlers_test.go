package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level})
}

type failingHandler struct {
	slog.Handler
}

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler(t *testing.T) {
	t.Run("fans out", func(t *testing.T) {
		var a, b bytes.Buffer
		slog.New(NewMultiHandler(textHandler(&a, slog.LevelInfo), textHandler(&b, slog.LevelInfo))).Info("lap")
		assert.Contains(t, a.String(), "lap")
		assert.Contains(t, b.String(), "lap")
	})

	t.Run("skips nil handlers", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(nil, textHandler(&buf, slog.LevelInfo), nil)
		require.Len(t, m.handlers, 1)
		slog.New(m).Info("works")
		assert.Contains(t, buf.String(), "works")
	})

	t.Run("respects each level", func(t *testing.T) {
		var info, debug bytes.Buffer
		m := NewMultiHandler(textHandler(&info, slog.LevelInfo), textHandler(&debug, slog.LevelDebug))
		assert.True(t, m.Enabled(context.Background(), slog.LevelDebug))
		assert.False(t, NewMultiHandler(textHandler(&info, slog.LevelInfo)).Enabled(context.Background(), slog.LevelDebug))
		assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))

		slog.New(m).Debug("steering detail")
		assert.Empty(t, info.String())
		assert.Contains(t, debug.String(), "steering detail")
	})

	t.Run("attrs and groups reach every handler", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(textHandler(&buf, slog.LevelInfo))
		slog.New(m.WithAttrs([]slog.Attr{slog.String("component", "engine")}).WithGroup("actor")).Info("step", "id", 3)
		assert.Contains(t, buf.String(), "component=engine")
		assert.Contains(t, buf.String(), "actor.id=3")
		assert.Same(t, m, m.WithGroup(""))
	})

	t.Run("failures are joined and do not stop others", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewMultiHandler(failingHandler{}, textHandler(&buf, slog.LevelInfo))

		r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0)
		err := m.Handle(context.Background(), r)
		assert.ErrorContains(t, err, "sink down")
		assert.Contains(t, buf.String(), "should reach spy")
	})
}

func TestContextHandler(t *testing.T) {
	race := []slog.Attr{slog.String("raceName", "cup"), slog.Uint64("raceId", 7)}

	t.Run("explicit keys win", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewContextHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr { return race })
		slog.New(h).Info("saved", "raceName", "override")

		out := buf.String()
		assert.Contains(t, out, "raceName=override")
		assert.NotContains(t, out, "raceName=cup")
		assert.Contains(t, out, "raceId=7")
	})

	t.Run("no race, no attrs", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewContextHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr { return nil })
		slog.New(h).Info("idle")
		assert.NotContains(t, buf.String(), "raceId")
	})

	t.Run("nil provider", func(t *testing.T) {
		var buf bytes.Buffer
		slog.New(NewContextHandler(textHandler(&buf, slog.LevelInfo), nil)).Info("plain")
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("derived handlers keep the provider", func(t *testing.T) {
		var buf bytes.Buffer
		h := NewContextHandler(textHandler(&buf, slog.LevelInfo), func() []slog.Attr { return race[:1] })
		slog.New(h.WithAttrs([]slog.Attr{slog.String("component", "worker")})).Info("derived")
		assert.Contains(t, buf.String(), "component=worker")
		assert.Contains(t, buf.String(), "raceName=cup")
		assert.Same(t, h, h.WithGroup(""))
	})
}
