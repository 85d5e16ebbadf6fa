package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestCtx_AddsTraceFields(t *testing.T) {
	var buf bytes.Buffer
	Init("order-service", "debug", false)
	SetOutput(&buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	Ctx(ctx).Info().Msg("order placed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order placed", entry["message"])
	assert.Equal(t, "order-service", entry["service"])
	assert.Equal(t, traceID.String(), entry["trace_id"])
	assert.Equal(t, spanID.String(), entry["span_id"])
}

func TestCtx_WithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	Init("order-service", "info", false)
	SetOutput(&buf)

	Ctx(context.Background()).Info().Msg("no span")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")
}

func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Init("order-service", "chatty", false)
	SetOutput(&buf)

	L().Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	L().Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
