package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_Destination(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		restore := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("grid formed")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "grid formed")
		assert.Contains(t, file.String(), "Logging initialized")
	})

	t.Run("stdout", func(t *testing.T) {
		restore := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("green flag")

		assert.Contains(t, restore(), "green flag")
	})
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{level: "debug", wantDebug: true, wantInfo: true},
		{level: "info", wantInfo: true},
		{level: "warn"},
		{level: "bogus", wantInfo: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("waypoint reached")
			m.Logger().Info("lap completed")

			assert.Equal(t, tt.wantDebug, bytes.Contains(buf.Bytes(), []byte("waypoint reached")))
			assert.Equal(t, tt.wantInfo, bytes.Contains(buf.Bytes(), []byte("lap completed")))
		})
	}
}

func TestSetup_SecondCallSwitchesOutput(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Logger().Info("race one")
	m.Setup(&second, "info", nil)
	m.Logger().Info("race two")

	assert.Contains(t, first.String(), "race one")
	assert.NotContains(t, first.String(), "race two")
	assert.Contains(t, second.String(), "race two")
}

func TestSlogManager_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
	assert.NotPanics(t, func() { m.WriteLog("handleStep", "ignored", "info") })
}

func TestWriteLog(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "unknown"} {
		t.Run(level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("handleNewRace", "race created at "+level, level)

			assert.Contains(t, buf.String(), "race created at "+level)
			assert.Contains(t, buf.String(), "function=handleNewRace")
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"Info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "input %q", input)
	}
}

func TestSetup_OTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider)
	m.Logger().Info("checkered flag")

	assert.Contains(t, buf.String(), "checkered flag")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestSetup_WithGraylogAndContext(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil,
		WithGraylog(&gelf),
		WithContext(func() []slog.Attr { return []slog.Attr{slog.String("raceName", "cup")} }),
	)

	m.Logger().Info("lap completed", "actor", 2)

	assert.Contains(t, file.String(), "raceName=cup")
	lines := bytes.Split(bytes.TrimSpace(gelf.Bytes()), []byte("\n"))
	last := lines[len(lines)-1]
	assert.Contains(t, string(last), `"msg":"lap completed"`)
	assert.Contains(t, string(last), `"raceName":"cup"`)
}

func TestSetup_WithHandler(t *testing.T) {
	var file, extra bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, WithHandler(slog.NewTextHandler(&extra, nil)))

	m.Logger().Info("both")
	assert.Contains(t, file.String(), "both")
	assert.Contains(t, extra.String(), "both")
}

// captureStdout points osStdout at a pipe. The returned func restores it and
// returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		_ = w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		_ = r.Close()
		return buf.String()
	}
}
