package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
)

const (
	metricFilesJudged    = "smackdown.files.judged"
	metricFilesUncovered = "smackdown.files.uncovered"
	metricLinesUncovered = "smackdown.lines.uncovered"
	metricRunDuration    = "smackdown.run.duration.seconds"

	attrCompletelyCovered = "completely_covered"
)

// durationBucketBoundaries covers 10ms to 10min; large diffs against remote
// reports sit at the top end.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the instruments recorded once per reporter run.
type RunMetrics struct {
	filesJudged    metric.Int64Counter
	filesUncovered metric.Int64Counter
	linesUncovered metric.Int64Counter
	runDuration    metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from mt.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	filesJudged, err := mt.Int64Counter(metricFilesJudged,
		metric.WithDescription("Files of the diff judged against the coverage report"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesJudged, err)
	}

	filesUncovered, err := mt.Int64Counter(metricFilesUncovered,
		metric.WithDescription("Judged files with uncovered additions or no coverage"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFilesUncovered, err)
	}

	linesUncovered, err := mt.Int64Counter(metricLinesUncovered,
		metric.WithDescription("Added lines never executed by the tests"),
		metric.WithUnit("{line}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLinesUncovered, err)
	}

	runDuration, err := mt.Float64Histogram(metricRunDuration,
		metric.WithDescription("Reporter run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRunDuration, err)
	}

	return &RunMetrics{
		filesJudged:    filesJudged,
		filesUncovered: filesUncovered,
		linesUncovered: linesUncovered,
		runDuration:    runDuration,
	}, nil
}

// Record adds the totals of one run.
func (rm *RunMetrics) Record(ctx context.Context, summary coverdiff.Summary, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool(attrCompletelyCovered, summary.CompletelyCovered))

	rm.filesJudged.Add(ctx, int64(summary.Files), attrs)
	rm.filesUncovered.Add(ctx, int64(summary.UncoveredFiles+summary.FilesWithoutCoverage), attrs)
	rm.linesUncovered.Add(ctx, int64(summary.UncoveredLines), attrs)
	rm.runDuration.Record(ctx, duration.Seconds(), attrs)
}
