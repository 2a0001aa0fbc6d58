package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/smackdown/pkg/config"
	"github.com/Sumatoshi-tech/smackdown/pkg/coverdiff"
	"github.com/Sumatoshi-tech/smackdown/pkg/diffwalk"
	"github.com/Sumatoshi-tech/smackdown/pkg/observability"
	"github.com/Sumatoshi-tech/smackdown/pkg/render"
	"github.com/Sumatoshi-tech/smackdown/pkg/version"
)

// envCI is set by most CI services.
const envCI = "CI"

// CheckCommand holds the flags of `smackdown check`.
type CheckCommand struct {
	configPath   string
	head         string
	mergeBase    string
	coverage     string
	coverageJSON string
	pathPrefix   string
	contextLines int
	filters      []string
	skipVendored bool
	ignoreFile   string
	format       string
	metricsFile  string
	logLevel     string
	logJSON      bool

	// provider replaces the git diff in tests.
	provider diffwalk.Provider
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return newCheckCommand(&CheckCommand{})
}

func newCheckCommand(cc *CheckCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [repo-path]",
		Short: "Judge the lines a branch adds against a coverage report",
		Long: `Diff HEAD against its merge base with the trunk and report every added line
the coverage report marks as executable but never run. Exits 2 when the diff
is not completely covered.

Settings come from defaults, then .smackdown.yaml (repository root or --config),
then SMACKDOWN_* environment variables, then flags.`,
		Args: cobra.MaximumNArgs(1),
		RunE: cc.run,
	}

	flags := cmd.Flags()
	flags.StringVar(&cc.configPath, "config", "", "Config file path (default: .smackdown.yaml in the repository or CWD)")
	flags.StringVar(&cc.head, "head", diffwalk.DefaultHead, "Revision under test")
	flags.StringVar(&cc.mergeBase, "merge-base", diffwalk.DefaultMergeBase, "Trunk the head branched from")
	flags.StringVar(&cc.coverage, "coverage", "", "Coverage report path or http(s) URL (default: <repo>/coverage/coverage.json)")
	flags.StringVar(&cc.coverageJSON, "coverage-json", "", "Inline coverage report")
	flags.StringVar(&cc.pathPrefix, "path-prefix", "", "Prefix of the file names in the coverage report (default: repository path)")
	flags.IntVar(&cc.contextLines, "context-lines", diffwalk.DefaultContextLines, "Diff context lines")
	flags.StringArrayVar(&cc.filters, "filter", nil, "Exclude paths matching this start-anchored regexp (repeatable; replaces the defaults)")
	flags.BoolVar(&cc.skipVendored, "skip-vendored", false, "Also exclude vendored paths")
	flags.StringVar(&cc.ignoreFile, "ignore-file", "", "Gitignore-style file of extra exclusions")
	flags.StringVarP(&cc.format, "format", "f", render.FormatText,
		"Output format: "+strings.Join(render.Formats(), ", "))
	flags.StringVar(&cc.metricsFile, "metrics-file", "", "Write Prometheus textfile metrics to this path")
	flags.StringVar(&cc.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.BoolVar(&cc.logJSON, "log-json", false, "Log as JSON")

	return cmd
}

func (cc *CheckCommand) run(cmd *cobra.Command, args []string) error {
	var searchDirs []string
	if len(args) > 0 {
		searchDirs = append(searchDirs, args[0])
	}

	cfg, err := config.LoadConfig(cc.configPath, searchDirs...)
	if err != nil {
		return err
	}

	cc.applyFlags(cmd, cfg, args)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("validate flags: %w", err)
	}

	obsCfg, err := cfg.ObservabilityConfig()
	if err != nil {
		return err
	}

	obsCfg.ServiceVersion = version.Version
	if os.Getenv(envCI) != "" {
		obsCfg.Mode = observability.ModeCI
	}

	providers, err := observability.InitWithWriter(obsCfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx := cmd.Context()

	defer func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.WarnContext(ctx, "telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	return cc.check(ctx, cmd, cfg, providers)
}

func (cc *CheckCommand) check(ctx context.Context, cmd *cobra.Command, cfg *config.Config, providers observability.Providers) error {
	opts := cfg.ReporterOptions()
	opts.Provider = cc.provider
	opts.Logger = providers.Logger
	opts.Tracer = providers.Tracer

	reporter, err := coverdiff.NewReporter(cfg.Repository.Path, opts)
	if err != nil {
		return err
	}
	defer reporter.Close()

	err = reporter.Run(ctx)
	if err != nil {
		return err
	}

	summary := reporter.Summary()

	runMetrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return err
	}

	runMetrics.Record(ctx, summary, reporter.Elapsed())

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		err = render.Render(cmd.OutOrStdout(), cfg.Output.Format, reporter)
		if err != nil {
			return err
		}
	}

	if cfg.Output.MetricsFile != "" {
		err = observability.WriteMetricsFile(ctx, cfg.Output.MetricsFile, summary, reporter.Elapsed())
		if err != nil {
			return err
		}
	}

	providers.Logger.InfoContext(ctx, "check finished",
		slog.Int("files", summary.Files),
		slog.Int("uncovered_lines", summary.UncoveredLines),
		slog.Bool("completely_covered", summary.CompletelyCovered))

	if !summary.CompletelyCovered {
		return ErrNotCovered
	}

	return nil
}

// applyFlags overlays the flags the user actually set onto cfg.
func (cc *CheckCommand) applyFlags(cmd *cobra.Command, cfg *config.Config, args []string) {
	flags := cmd.Flags()

	if len(args) > 0 {
		cfg.Repository.Path = args[0]
	}

	if flags.Changed("head") {
		cfg.Repository.Head = cc.head
	}

	if flags.Changed("merge-base") {
		cfg.Repository.MergeBase = cc.mergeBase
	}

	if flags.Changed("context-lines") {
		cfg.Repository.ContextLines = cc.contextLines
	}

	// A source given on the command line replaces a configured one; both
	// flags together remain a conflict.
	if flags.Changed("coverage") {
		cfg.Coverage.Report = cc.coverage
		if !flags.Changed("coverage-json") {
			cfg.Coverage.JSON = ""
		}
	}

	if flags.Changed("coverage-json") {
		cfg.Coverage.JSON = cc.coverageJSON
		if !flags.Changed("coverage") {
			cfg.Coverage.Report = ""
		}
	}

	if flags.Changed("path-prefix") {
		cfg.Coverage.PathPrefix = cc.pathPrefix
	}

	if flags.Changed("filter") {
		cfg.Filters.Patterns = cc.filters
	}

	if flags.Changed("skip-vendored") {
		cfg.Filters.SkipVendored = cc.skipVendored
	}

	if flags.Changed("ignore-file") {
		cfg.Filters.IgnoreFile = cc.ignoreFile
	}

	if flags.Changed("format") {
		cfg.Output.Format = cc.format
	}

	if flags.Changed("metrics-file") {
		cfg.Output.MetricsFile = cc.metricsFile
	}

	verbose, _ := flags.GetBool("verbose")

	switch {
	case flags.Changed("log-level"):
		cfg.Logging.Level = cc.logLevel
	case verbose:
		cfg.Logging.Level = slog.LevelDebug.String()
	}

	if flags.Changed("log-json") {
		cfg.Logging.JSON = cc.logJSON
	}
}
