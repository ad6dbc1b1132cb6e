package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitDisabled(t *testing.T) {
	p, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	assert.NotNil(t, p.TracerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))

	var nilProviders *Providers
	assert.NoError(t, nilProviders.Shutdown(context.Background()))
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{Endpoint: "  "}.Enabled())
	assert.True(t, Config{Endpoint: "otel.example.com:4317"}.Enabled())
}

func TestHandlerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	h := Handler(tp)

	info := &callbacks.RunInfo{Name: "supervisor", Type: "Lambda", Component: components.Component("Lambda")}
	ctx := h.OnStart(context.Background(), info, nil)
	h.OnEnd(ctx, info, nil)

	failing := &callbacks.RunInfo{Name: "coder", Component: components.Component("Lambda")}
	ctx = h.OnStart(context.Background(), failing, nil)
	h.OnError(ctx, failing, errors.New("model down"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "eino.supervisor", spans[0].Name())
	assert.Equal(t, "eino.coder", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestSpanName(t *testing.T) {
	assert.Equal(t, "eino.unknown", spanName(nil))
	assert.Equal(t, "eino.ChatModel", spanName(&callbacks.RunInfo{Component: components.Component("ChatModel")}))
	assert.Equal(t, "eino.OpenAI", spanName(&callbacks.RunInfo{Type: "OpenAI", Component: components.Component("ChatModel")}))
}
