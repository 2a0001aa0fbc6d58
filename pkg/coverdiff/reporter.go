// Package coverdiff correlates a coverage report with the lines a branch adds
// and reports the added lines tests never executed.
package coverdiff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/smackdown/pkg/coverage"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
	"github.com/Sumatoshi-tech/smackdown/pkg/pathfilter"
)

// tracerName is the default OTel tracer name for the reporter.
const tracerName = "smackdown"

var errRepoPathRequired = errors.New("repository location is required")

// Options configures a Reporter. Zero values select the defaults.
type Options struct {
	// CoverageReport is a report path or http/https URL.
	// Defaults to <repo>/coverage/coverage.json unless CoverageJSON is set.
	CoverageReport string
	// CoverageJSON is an inline report. Mutually exclusive with CoverageReport.
	CoverageJSON string
	// ReportPathPrefix is joined with each relative path to find its coverage
	// entry. Defaults to the repository path.
	ReportPathPrefix string
	// Head is the revision under test. Defaults to "HEAD".
	Head string
	// MergeBase is the trunk the head branched from. Defaults to "master".
	MergeBase string
	// ContextLines is the hunk context size. Defaults to 10000.
	ContextLines int
	// Filters replaces pathfilter.DefaultPatterns when non-nil.
	Filters []string
	// SkipVendored also excludes vendored paths.
	SkipVendored bool
	// IgnoreFile is a gitignore-style file of additional exclusions.
	IgnoreFile string

	// Provider computes the diff. Defaults to a GitProvider on the repository.
	Provider diffwalk.Provider
	// Loader reads the coverage report.
	Loader coverage.Loader
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Tracer defaults to otel.Tracer("smackdown").
	Tracer trace.Tracer
}

// Summary aggregates the verdicts of one run.
type Summary struct {
	Files                int  `json:"files"                  yaml:"files"`
	CoveredFiles         int  `json:"covered_files"          yaml:"covered_files"`
	UncoveredFiles       int  `json:"uncovered_files"        yaml:"uncovered_files"`
	FilesWithoutCoverage int  `json:"files_without_coverage" yaml:"files_without_coverage"`
	UncoveredLines       int  `json:"uncovered_lines"        yaml:"uncovered_lines"`
	CompletelyCovered    bool `json:"completely_covered"     yaml:"completely_covered"`
}

// Reporter judges every non-excluded file of a diff against a coverage report.
// Queries return empty results until Run succeeds, and again after a failed
// Run; check Ran before trusting CompletelyCovered.
type Reporter struct {
	repoPath string
	source   coverage.Source
	prefix   string
	filter   *pathfilter.Filter
	walker   *diffwalk.Walker
	loader   coverage.Loader
	logger   *slog.Logger
	tracer   trace.Tracer
	closer   func()

	judges  []*FileCoverageDiff
	byPath  map[string]int
	ran     bool
	elapsed time.Duration
}

// NewReporter validates opts and prepares a reporter for the repository at
// repoPath. Configuration problems are reported before any repository or
// coverage I/O.
func NewReporter(repoPath string, opts Options) (*Reporter, error) {
	source, filter, err := validate(repoPath, opts)
	if err != nil {
		return nil, err
	}

	provider := opts.Provider
	closer := func() {}

	if provider == nil {
		gitProvider, openErr := diffwalk.OpenGitProvider(repoPath)
		if openErr != nil {
			return nil, openErr
		}

		provider = gitProvider
		closer = gitProvider.Close
	}

	prefix := opts.ReportPathPrefix
	if prefix == "" {
		prefix = repoPath
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader := opts.Loader
	if loader.Logger == nil {
		loader.Logger = logger
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	walker := diffwalk.NewWalker(provider, diffwalk.Request{
		MergeBase:    opts.MergeBase,
		Head:         opts.Head,
		ContextLines: opts.ContextLines,
	})

	return &Reporter{
		repoPath: repoPath,
		source:   source,
		prefix:   prefix,
		filter:   filter,
		walker:   walker,
		loader:   loader,
		logger:   logger,
		tracer:   tracer,
		closer:   closer,
	}, nil
}

func validate(repoPath string, opts Options) (coverage.Source, *pathfilter.Filter, error) {
	if repoPath == "" {
		return coverage.Source{}, nil, &ConfigurationError{Message: errRepoPathRequired.Error(), Err: errRepoPathRequired}
	}

	info, err := os.Stat(repoPath)
	if err != nil || !info.IsDir() {
		return coverage.Source{}, nil, &ConfigurationError{
			Message: "Repo path does not exist: " + repoPath,
			Err:     err,
		}
	}

	source := coverage.Source{Location: opts.CoverageReport, Inline: opts.CoverageJSON}
	if source.Location == "" && source.Inline == "" {
		source = coverage.DefaultSource(repoPath)
	}

	err = source.Validate()
	if err != nil {
		return coverage.Source{}, nil, configurationError(err)
	}

	filter, err := pathfilter.New(pathfilter.Options{
		Patterns:     opts.Filters,
		SkipVendored: opts.SkipVendored,
		IgnoreFile:   opts.IgnoreFile,
	})
	if err != nil {
		return coverage.Source{}, nil, configurationError(err)
	}

	return source, filter, nil
}

// Close releases the repository handle opened by NewReporter.
func (r *Reporter) Close() {
	r.closer()
}

// Source returns the coverage source the reporter reads.
func (r *Reporter) Source() coverage.Source {
	return r.source
}

// Request returns the diff request the reporter issues.
func (r *Reporter) Request() diffwalk.Request {
	return r.walker.Request()
}

// Run loads coverage, computes the diff and judges every non-excluded file.
// Each call starts from scratch. A failed run discards the previous results.
func (r *Reporter) Run(ctx context.Context) error {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, "smackdown.run",
		trace.WithAttributes(
			attribute.String("repo.path", r.repoPath),
			attribute.String("git.head", r.walker.Request().Head),
			attribute.String("git.merge_base", r.walker.Request().MergeBase),
			attribute.String("coverage.source", r.source.Kind().String()),
		))
	defer span.End()

	judges, byPath, err := r.run(ctx)
	if err != nil {
		r.judges, r.byPath, r.ran, r.elapsed = nil, nil, false, 0

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	r.judges, r.byPath, r.ran = judges, byPath, true
	r.elapsed = time.Since(start)

	summary := r.Summary()
	span.SetAttributes(
		attribute.Int("files.judged", summary.Files),
		attribute.Int("lines.uncovered", summary.UncoveredLines),
		attribute.Bool("completely_covered", summary.CompletelyCovered),
	)

	r.logger.DebugContext(ctx, "coverage diff complete",
		"files", summary.Files,
		"uncovered_lines", summary.UncoveredLines,
		"completely_covered", summary.CompletelyCovered,
		"elapsed", r.elapsed)

	return nil
}

func (r *Reporter) run(ctx context.Context) ([]*FileCoverageDiff, map[string]int, error) {
	index, err := r.loadCoverage(ctx)
	if err != nil {
		return nil, nil, err
	}

	patches, err := r.computeDiff(ctx)
	if err != nil {
		return nil, nil, err
	}

	judges := make([]*FileCoverageDiff, 0, patches.Len())
	byPath := make(map[string]int, patches.Len())

	for patch := range patches.Patches() {
		relativePath := patch.Path()
		if r.filter.Excluded(relativePath) {
			r.logger.DebugContext(ctx, "file excluded", "path", relativePath)

			continue
		}

		fullPath := filepath.Join(r.prefix, relativePath)
		vector, ok := index.Lookup(fullPath)
		judge := NewFileCoverageDiff(relativePath, fullPath, vector, ok, patch.AddedLines())

		r.logger.DebugContext(ctx, "file judged",
			"path", relativePath,
			"coverage_available", judge.CoverageAvailable(),
			"uncovered_lines", len(judge.uncoveredLines))

		if i, seen := byPath[relativePath]; seen {
			judges[i] = judge

			continue
		}

		byPath[relativePath] = len(judges)
		judges = append(judges, judge)
	}

	return judges, byPath, nil
}

func (r *Reporter) loadCoverage(ctx context.Context) (coverage.Index, error) {
	ctx, span := r.tracer.Start(ctx, "smackdown.coverage.load")
	defer span.End()

	index, err := r.loader.Load(ctx, r.source)
	if err != nil {
		err = classifyCoverageError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return coverage.Index{}, err
	}

	span.SetAttributes(attribute.Int("coverage.files", index.Len()))
	r.logger.DebugContext(ctx, "coverage loaded", "source", r.source.Kind().String(), "files", index.Len())

	return index, nil
}

func classifyCoverageError(err error) error {
	switch {
	case errors.Is(err, coverage.ErrReportNotFound), errors.Is(err, coverage.ErrSourceUnavailable):
		return fmt.Errorf("load coverage: %w", err)
	default:
		return configurationError(err)
	}
}

func (r *Reporter) computeDiff(ctx context.Context) (diffwalk.PatchSet, error) {
	ctx, span := r.tracer.Start(ctx, "smackdown.diff")
	defer span.End()

	patches, err := r.walker.Walk(ctx)
	if err != nil {
		if !errors.Is(err, ErrRepository) {
			err = fmt.Errorf("%w: %w", ErrRepository, err)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return diffwalk.PatchSet{}, err
	}

	span.SetAttributes(attribute.Int("diff.patches", patches.Len()))
	r.logger.DebugContext(ctx, "diff computed", "patches", patches.Len())

	return patches, nil
}

// Ran reports whether a run has completed successfully.
func (r *Reporter) Ran() bool {
	return r.ran
}

// Elapsed returns the duration of the last successful run.
func (r *Reporter) Elapsed() time.Duration {
	return r.elapsed
}

// CompletelyCovered reports whether every judged file is covered.
// It is true when no file was judged.
func (r *Reporter) CompletelyCovered() bool {
	for _, judge := range r.judges {
		if !judge.Covered() {
			return false
		}
	}

	return true
}

// Judges returns the verdicts in diff order.
func (r *Reporter) Judges() []*FileCoverageDiff {
	return slices.Clone(r.judges)
}

// Judge returns the verdict for a relative path.
func (r *Reporter) Judge(relativePath string) (*FileCoverageDiff, bool) {
	i, ok := r.byPath[relativePath]
	if !ok {
		return nil, false
	}

	return r.judges[i], true
}

// Report calls visit once per verdict, in diff order.
func (r *Reporter) Report(visit func(*FileCoverageDiff)) {
	for _, judge := range r.judges {
		visit(judge)
	}
}

// ReportString concatenates the default rendering of every verdict.
func (r *Reporter) ReportString() string {
	var sb strings.Builder

	r.Report(func(judge *FileCoverageDiff) {
		sb.WriteString(judge.String())
	})

	return sb.String()
}

// Summary totals the verdicts of the last successful run.
func (r *Reporter) Summary() Summary {
	summary := Summary{Files: len(r.judges), CompletelyCovered: true}

	for _, judge := range r.judges {
		switch {
		case !judge.CoverageAvailable():
			summary.FilesWithoutCoverage++
			summary.CompletelyCovered = false
		case judge.Covered():
			summary.CoveredFiles++
		default:
			summary.UncoveredFiles++
			summary.CompletelyCovered = false
		}

		summary.UncoveredLines += len(judge.uncoveredLines)
	}

	return summary
}
