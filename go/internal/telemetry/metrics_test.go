package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics_RecordsToProvider(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m := NewMetrics(provider)
	m.ConnectionsActive.Add(ctx, 2)
	m.ConnectionsActive.Add(ctx, -1)
	m.MessagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("type", "create_timer")))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	active, ok := byName["tempo.ws.connections.active"]
	require.True(t, ok)
	sum, ok := active.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	received, ok := byName["tempo.ws.messages.received.total"]
	require.True(t, ok)
	counter := received.Data.(metricdata.Sum[int64])
	require.Len(t, counter.DataPoints, 1)
	v, found := counter.DataPoints[0].Attributes.Value("type")
	require.True(t, found)
	assert.Equal(t, "create_timer", v.AsString())
}

func TestGetMetrics_Singleton(t *testing.T) {
	assert.Same(t, GetMetrics(), GetMetrics())
}

func TestInitMeterProvider_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", "")

	shutdown, err := InitMeterProvider(context.Background(), "tempo", "test", 0)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
