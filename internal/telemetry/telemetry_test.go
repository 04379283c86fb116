package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "info", FormatJSON)
		logger.Debug("hidden")
		logger.Info("order created", "order_id", 7)

		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, `"msg":"order created"`)
		assert.Contains(t, out, `"order_id":7`)
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, "debug", "anything")
		logger.Debug("cart updated", "session", "abc")
		assert.Contains(t, buf.String(), "session=abc")
	})
}

func TestSetupTracing(t *testing.T) {
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	t.Run("none", func(t *testing.T) {
		shutdown, err := SetupTracing(ExporterNone, "bookstore", "test", nil)
		require.NoError(t, err)
		assert.NoError(t, shutdown(context.Background()))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := SetupTracing("jaeger", "bookstore", "test", nil)
		assert.Error(t, err)
	})

	t.Run("stdout", func(t *testing.T) {
		var buf bytes.Buffer
		shutdown, err := SetupTracing(ExporterStdout, "bookstore", "test", &buf)
		require.NoError(t, err)

		_, span := StartSpan(context.Background(), "ordering.CreateOrder", attribute.String("client.email", "a@b.c"))
		EndSpan(span, errors.New("boom"))

		require.NoError(t, shutdown(context.Background()))
		assert.Contains(t, buf.String(), "ordering.CreateOrder")
		assert.Contains(t, buf.String(), "boom")
	})
}
