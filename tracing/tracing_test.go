package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wyfcoding/randforest/config"
)

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpanRecording(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := Install(ctx, config.TracingConfig{ServiceName: "rf-test"}, sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	defer func() { _ = shutdown(ctx) }()

	spanCtx, span := StartSpan(ctx, "train", attribute.Int("trees", 3))
	assert.NotEmpty(t, TraceID(spanCtx))
	SetError(span, nil, "ignored")
	SetError(span, errors.New("boom"), "failed")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "train", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Contains(t, spans[0].Attributes, attribute.Int("trees", 3))
	assert.Empty(t, TraceID(ctx))
}
