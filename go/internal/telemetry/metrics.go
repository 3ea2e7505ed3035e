package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/mcdev12/tempo"

// Metrics holds the live channel instruments
type Metrics struct {
	// Connection metrics
	ConnectionsActive metric.Int64UpDownCounter
	ConnectionsTotal  metric.Int64Counter
	SlowConsumers     metric.Int64Counter

	// Protocol metrics
	MessagesReceived metric.Int64Counter
	MessagesRejected metric.Int64Counter
	AuthFailures     metric.Int64Counter
	SnapshotsSent    metric.Int64Counter

	// Broadcast metrics
	BroadcastPushes   metric.Int64Counter
	BroadcastDuration metric.Float64Histogram

	// Storage errors surfaced to the live channel
	StorageErrors metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the process-wide instruments, creating them on first use.
// Instruments created before a provider is installed follow the global delegate.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics creates instruments against provider
func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.ConnectionsActive, _ = meter.Int64UpDownCounter(
		"tempo.ws.connections.active",
		metric.WithDescription("Number of open live channel connections"),
		metric.WithUnit("{connection}"),
	)

	m.ConnectionsTotal, _ = meter.Int64Counter(
		"tempo.ws.connections.total",
		metric.WithDescription("Total number of accepted live channel connections"),
		metric.WithUnit("{connection}"),
	)

	m.SlowConsumers, _ = meter.Int64Counter(
		"tempo.ws.slow_consumers.total",
		metric.WithDescription("Connections closed because their send buffer was full"),
		metric.WithUnit("{connection}"),
	)

	m.MessagesReceived, _ = meter.Int64Counter(
		"tempo.ws.messages.received.total",
		metric.WithDescription("Client frames decoded, by type"),
		metric.WithUnit("{message}"),
	)

	m.MessagesRejected, _ = meter.Int64Counter(
		"tempo.ws.messages.rejected.total",
		metric.WithDescription("Client frames that could not be decoded"),
		metric.WithUnit("{message}"),
	)

	m.AuthFailures, _ = meter.Int64Counter(
		"tempo.ws.auth.failures.total",
		metric.WithDescription("Handshakes closed with an authentication failure"),
		metric.WithUnit("{connection}"),
	)

	m.SnapshotsSent, _ = meter.Int64Counter(
		"tempo.ws.snapshots.sent.total",
		metric.WithDescription("all_timers snapshots delivered"),
		metric.WithUnit("{message}"),
	)

	m.BroadcastPushes, _ = meter.Int64Counter(
		"tempo.broadcast.pushes.total",
		metric.WithDescription("active_timers messages delivered by the periodic broadcast"),
		metric.WithUnit("{message}"),
	)

	m.BroadcastDuration, _ = meter.Float64Histogram(
		"tempo.broadcast.duration",
		metric.WithDescription("Duration of one broadcast pass over the registry"),
		metric.WithUnit("ms"),
	)

	m.StorageErrors, _ = meter.Int64Counter(
		"tempo.storage.errors.total",
		metric.WithDescription("Storage failures encountered while serving the live channel"),
		metric.WithUnit("{error}"),
	)

	return m
}
