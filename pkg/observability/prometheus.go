package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
)

// WriteMetricsFile records one run's metrics into a private Prometheus
// registry and writes it to path in the text exposition format read by the
// node_exporter textfile collector. The file is replaced atomically.
func WriteMetricsFile(ctx context.Context, path string, summary coverdiff.Summary, duration time.Duration) error {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	metrics, err := NewRunMetrics(mp.Meter(meterName))
	if err != nil {
		return errors.Join(err, mp.Shutdown(ctx))
	}

	metrics.Record(ctx, summary, duration)

	writeErr := prometheus.WriteToTextfile(path, registry)
	if writeErr != nil {
		writeErr = fmt.Errorf("write metrics file: %w", writeErr)
	}

	return errors.Join(writeErr, mp.Shutdown(ctx))
}
