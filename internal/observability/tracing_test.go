package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/logger"
)

func TestInitTracerWithoutEndpoint(t *testing.T) {
	cfg := config.Config{ServiceName: "accounts", Env: "test", BuildVersion: "1.0", Tracing: config.TracingConfig{SampleRatio: 1}}
	shutdown := InitTracer(context.Background(), logger.Nop(), cfg)
	require.NotNil(t, shutdown)

	ctx, span := otel.Tracer("test").Start(context.Background(), "op")
	TagCorrelationID(ctx, "abc-123")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("collector:4318"), 2)
	assert.Len(t, exporterOptions("https://collector.example.com/v1/traces"), 1)
}
