package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
	"github.com/Sumatoshi-tech/smackdown/pkg/observability"
)

var testSummary = coverdiff.Summary{
	Files:                4,
	CoveredFiles:         1,
	UncoveredFiles:       2,
	FilesWithoutCoverage: 1,
	UncoveredLines:       7,
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, name)
	require.Len(t, sum.DataPoints, 1)

	return sum.DataPoints[0].Value
}

func TestRunMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewRunMetrics(mp.Meter("test"))
	require.NoError(t, err)

	metrics.Record(context.Background(), testSummary, 1500*time.Millisecond)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(4), sumValue(t, rm, "smackdown.files.judged"))
	assert.Equal(t, int64(3), sumValue(t, rm, "smackdown.files.uncovered"))
	assert.Equal(t, int64(7), sumValue(t, rm, "smackdown.lines.uncovered"))

	m := findMetric(rm, "smackdown.run.duration.seconds")
	require.NotNil(t, m)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 1e-9)
}

func TestWriteMetricsFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "smackdown.prom")

	err := observability.WriteMetricsFile(context.Background(), path, testSummary, time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "smackdown_files_judged")
	assert.Contains(t, body, "smackdown_run_duration")
	assert.Contains(t, body, `completely_covered="false"`)

	var linesSample string

	for line := range strings.SplitSeq(body, "\n") {
		if strings.HasPrefix(line, "smackdown_lines_uncovered") && !strings.HasPrefix(line, "#") {
			linesSample = line
		}
	}

	require.NotEmpty(t, linesSample)
	assert.True(t, strings.HasSuffix(linesSample, " 7"), linesSample)
}

func TestWriteMetricsFile_BadPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "smackdown.prom")

	err := observability.WriteMetricsFile(context.Background(), path, testSummary, time.Second)
	require.Error(t, err)
}
