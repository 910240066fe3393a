// Package telemetry wires CORTEX's ambient logging and metrics: a
// zerolog logger constructed the way the teacher constructs its
// component loggers, and an OpenTelemetry meter provider backed by a
// manual reader so a host process can collect a metrics snapshot on
// demand without standing up an external exporter. The engine's Stats
// operation does not read these instruments; it queries storage directly.
package telemetry

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// NewLogger returns a zerolog.Logger writing structured JSON to stderr,
// tagged with component, the teacher's convention for per-package
// loggers (e.g. internal/storage/sqlite.Open's injected logger).
func NewLogger(component string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("component", component).Logger()
}

// Telemetry owns the process-wide MeterProvider and exposes Collect to
// pull the current value of every registered instrument.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// Init installs a global MeterProvider backed by a manual reader (no
// push exporter — snapshots are pulled with Collect, not sent to a
// remote collector) and returns the handle used to collect snapshots.
func Init(serviceName string) *Telemetry {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(provider)
	_ = serviceName // reserved for a resource.WithAttributes() once a collector is wired
	return &Telemetry{provider: provider, reader: reader}
}

// Meter returns a named meter off the global provider, mirroring the
// teacher's telemetry.Meter(name) delegating wrapper (internal/compact's
// haiku.go) so instrumented packages never import the sdk directly.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Collect pulls the current value of every registered instrument, for a
// host process's own scrape loop rather than any push exporter.
func (t *Telemetry) Collect(ctx context.Context) (*metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("telemetry: collect: %w", err)
	}
	return &rm, nil
}

// Shutdown flushes and releases the provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}
