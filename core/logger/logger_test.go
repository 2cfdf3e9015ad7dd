package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyfeed/core/logger"
)

type ctxKey struct{}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to text at info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf))

		log.Debug("hidden")
		log.Info("shown", logger.Component("test"))

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "component=test")
	})

	t.Run("production writes json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithProduction("keyfeed"), logger.WithOutput(&buf))
		log.Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "keyfeed", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("development logs debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithDevelopment("keyfeed"), logger.WithOutput(&buf))
		log.Debug("details")

		assert.Contains(t, buf.String(), "msg=details")
		assert.Contains(t, buf.String(), "env=development")
		assert.Contains(t, buf.String(), "source=")
		assert.Contains(t, buf.String(), "logger_test.go")
	})

	t.Run("text formatter overrides preset", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithProduction("keyfeed"),
			logger.WithTextFormatter(),
			logger.WithOutput(&buf),
		)
		log.Info("hello")

		assert.True(t, strings.HasPrefix(buf.String(), "time="))
		assert.Contains(t, buf.String(), "msg=hello")
		assert.NotContains(t, buf.String(), "source=")
	})

	t.Run("source option", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithSource(), logger.WithJSONFormatter(), logger.WithOutput(&buf))
		log.Info("located")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		require.Contains(t, entry, "source")
		assert.Contains(t, entry["source"], "file")
	})

	t.Run("level override", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithLevel(slog.LevelWarn), logger.WithOutput(&buf))
		log.Info("skipped")
		log.Warn("kept")

		assert.NotContains(t, buf.String(), "skipped")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("context value extractor", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithJSONFormatter(),
			logger.WithOutput(&buf),
			logger.WithContextValue("request_id", ctxKey{}),
		)

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")
		log.With(logger.Component("api")).InfoContext(ctx, "with id")
		log.InfoContext(context.Background(), "without id")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"request_id":"req-1"`)
		assert.Contains(t, lines[0], `"component":"api"`)
		assert.NotContains(t, lines[1], "request_id")
	})
}

func TestNop(t *testing.T) {
	t.Parallel()
	assert.NotPanics(t, func() {
		logger.Nop().Error("discarded", logger.Component("test"))
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: " warn ", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := logger.ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
