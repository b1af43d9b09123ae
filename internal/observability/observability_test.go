package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tphakala/go-zscaler/internal/observability"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := observability.ParseLevel(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := observability.ParseLevel("loud")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := observability.NewLogger(&buf, "info", observability.FormatJSON)
		require.NoError(t, err)

		logger.Debug("hidden")
		logger.Info("request sent", zap.String("product", "zia"), zap.Int("status", 200))

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "request sent", entry["msg"])
		assert.Equal(t, "zia", entry["product"])
		assert.Equal(t, "zscalerctl", entry["logger"])
		assert.NotContains(t, buf.String(), "hidden")
	})

	t.Run("console", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := observability.NewLogger(&buf, "debug", "")
		require.NoError(t, err)

		logger.Debug("login", zap.String("provider", "oneapi"))
		assert.Contains(t, buf.String(), "DEBUG")
		assert.Contains(t, buf.String(), "oneapi")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := observability.NewLogger(&bytes.Buffer{}, "info", "xml")
		require.Error(t, err)
	})
}

func TestSetupTracing(t *testing.T) {
	t.Run("disabled without endpoint", func(t *testing.T) {
		tp, shutdown, err := observability.SetupTracing(context.Background(), observability.TracingConfig{})
		require.NoError(t, err)
		require.NotNil(t, tp)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("exporter configured", func(t *testing.T) {
		tp, shutdown, err := observability.SetupTracing(context.Background(), observability.TracingConfig{
			Endpoint:    "http://127.0.0.1:4318",
			SampleRatio: 0.5,
		})
		require.NoError(t, err)
		require.NotNil(t, tp)

		_, span := tp.Tracer("test").Start(context.Background(), "op")
		span.End()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_ = shutdown(ctx)
	})
}
