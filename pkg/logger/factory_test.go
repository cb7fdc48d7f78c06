package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/quotakit/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Run("creates JSON logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text formatter option", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithTextFormatter())
		log.Info("hello")
		assert.Contains(t, buf.String(), "level=INFO")
	})

	t.Run("level name", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("warn"))
		log.Info("dropped")
		assert.Empty(t, buf.String())
		log.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})

	t.Run("extracts from context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		type key string
		ctxKey := key("id")
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
				if v, ok := ctx.Value(ctxKey).(string); ok {
					return logger.RequestID(v), true
				}
				return slog.Attr{}, false
			}),
		)
		log.InfoContext(context.WithValue(context.Background(), ctxKey, "42"), "msg")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "42", entry["request_id"])
	})

	t.Run("extractors survive With", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(func(context.Context) (slog.Attr, bool) {
				return slog.String("x", "y"), true
			}),
		).With(logger.Component("ledger"))
		log.Info("msg")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "y", entry["x"])
		assert.Equal(t, "ledger", entry["component"])
	})
}

func TestWithEnvironment(t *testing.T) {
	t.Run("development is text at debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment(logger.Development, "quotad"))
		log.Debug("msg")
		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "service=quotad")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is JSON at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithEnvironment(logger.Production, "quotad"))
		log.Debug("dropped")
		assert.Empty(t, buf.String())
		log.Info("msg")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "quotad", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("explicit level wins", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithLevelName("debug"),
			logger.WithEnvironment(logger.Production, "quotad"),
		)
		log.Debug("msg")
		assert.Contains(t, buf.String(), "msg")
	})
}

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, logger.Production, logger.ParseEnvironment("prod"))
	assert.Equal(t, logger.Production, logger.ParseEnvironment(" Production "))
	assert.Equal(t, logger.Staging, logger.ParseEnvironment("stage"))
	assert.Equal(t, logger.Development, logger.ParseEnvironment(""))
	assert.Equal(t, logger.Development, logger.ParseEnvironment("local"))
}

func TestWithFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestDiscard(t *testing.T) {
	log := logger.Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.Error("nothing")
}
