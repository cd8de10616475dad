package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scorecard/internal/config"
	"scorecard/internal/dataprocessing"
	"scorecard/internal/exporter"
	"scorecard/internal/files"
	"scorecard/internal/infrastructure"
	"scorecard/internal/operations"
	"scorecard/internal/validation"
	"scorecard/pkg/contracts"
)

// Exit codes
const (
	exitOK      = 0
	exitFailed  = 1
	exitPartial = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one batch: it loads every extract, computes the plan's
// aggregates and writes them to the configured store. The run summary is
// printed to stdout as JSON; logs go to stderr and/or the log file.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scorecard", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "config file (defaults to scorecard.yaml or configs/scorecard.yaml)")
	planFile := fs.String("plan", "", "report plan, overrides paths.plan")
	outDir := fs.String("out", "", "reports directory, overrides paths.reports_dir")
	strict := fs.Bool("strict", false, "abort when a year lacks a requested column")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return exitFailed
	}

	if *showVersion {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return exitOK
	}

	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitFailed
	}
	if *planFile != "" {
		cfg.Paths.Plan = *planFile
	}
	if *outDir != "" {
		cfg.Paths.ReportsDir = *outDir
	}
	if *strict {
		cfg.Pipeline.Strict = true
	}

	paths, err := cfg.GetPaths()
	if err != nil {
		fmt.Fprintf(stderr, "failed to resolve paths: %v\n", err)
		return exitFailed
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(stderr, "failed to create directories: %v\n", err)
		return exitFailed
	}

	logCfg := cfg.Logging
	logCfg.FilePath = paths.LogFile
	logger, err := infrastructure.NewLogger(logCfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailed
	}
	defer infrastructure.CloseLogFile()
	slog.SetDefault(logger)

	ctx = infrastructure.EnsureRunID(ctx)
	runID := infrastructure.GetRunID(ctx)

	logger.InfoContext(ctx, "Starting scorecard run",
		slog.String("version", contracts.Version),
		slog.String("extracts_dir", paths.ExtractsDir),
		slog.String("reports_dir", paths.ReportsDir),
		slog.String("store", cfg.Pipeline.Store),
		slog.Bool("strict", cfg.Pipeline.Strict))
	paths.LogPathResolution(logger)

	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		return exitFailed
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	plan, err := config.LoadPlan(paths.PlanFile)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load plan",
			slog.String("plan", paths.PlanFile),
			slog.String("error", err.Error()))
		return exitFailed
	}

	sources, err := discoverSources(cfg, paths, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to discover extracts", slog.String("error", err.Error()))
		return exitFailed
	}

	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(paths.ReportsDir); err != nil {
		logger.ErrorContext(ctx, "Reports directory unusable", slog.String("error", err.Error()))
		return exitFailed
	}

	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create pipeline metrics", slog.String("error", err.Error()))
		return exitFailed
	}

	reg, err := operations.BuildRegistry(operations.PipelineOptions{
		Plan:            plan,
		Sources:         sources,
		DataDir:         paths.ExtractsDir,
		Strict:          cfg.Pipeline.Strict,
		LoadConcurrency: cfg.Pipeline.LoadConcurrency,
		Output: &operations.Output{
			Store:   newStore(cfg, paths, logger),
			Kind:    cfg.Pipeline.Store,
			Metrics: tracer.Metrics(),
		},
		Logger: logger,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build pipeline", slog.String("error", err.Error()))
		return exitFailed
	}

	resp, runErr := operations.NewManager(reg, nil, tracer, logger).Execute(ctx, runID)

	if err := providers.WriteMetrics(paths.MetricsFile); err != nil {
		logger.WarnContext(ctx, "Failed to write metrics", slog.String("error", err.Error()))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		logger.WarnContext(ctx, "Failed to print summary", slog.String("error", err.Error()))
	}

	switch {
	case runErr != nil:
		logger.ErrorContext(ctx, "Run failed", slog.String("error", runErr.Error()))
		return exitFailed
	case resp.Status == operations.OperationStatusPartial:
		logger.WarnContext(ctx, "Run finished with failed steps", slog.Any("failed", resp.Failed))
		return exitPartial
	}

	logger.InfoContext(ctx, "Run completed",
		slog.Int("tables", len(resp.Tables)),
		slog.Duration("duration", resp.Duration))
	return exitOK
}

// discoverSources maps extracts to years from the manifest when one is
// configured, then from the ordered extract list counted up from the base
// year, otherwise from the file names.
func discoverSources(cfg *config.Config, paths *config.Paths, logger *slog.Logger) ([]dataprocessing.Source, error) {
	discovery := files.NewDiscovery(paths.ExtractsDir, logger)

	var sources []dataprocessing.Source
	var err error
	switch {
	case paths.ManifestFile != "":
		sources, err = discovery.FromManifest(paths.ManifestFile)
	case len(cfg.Paths.Extracts) > 0:
		sources, err = discovery.FromList(cfg.Paths.Extracts, cfg.Pipeline.BaseYear)
	default:
		if err := validation.NewFileValidator(logger).ValidateInputDirectory(paths.ExtractsDir, cfg.Pipeline.ExtractGlob); err != nil {
			return nil, err
		}
		sources, err = discovery.FromPattern(".", cfg.Pipeline.ExtractGlob, cfg.YearRegexp())
	}
	if err != nil {
		return nil, err
	}

	for i := range sources {
		if sources[i].Sheet == "" {
			sources[i].Sheet = cfg.Pipeline.Sheet
		}
	}
	return sources, nil
}

func newStore(cfg *config.Config, paths *config.Paths, logger *slog.Logger) exporter.AggregateStore {
	switch cfg.Pipeline.Store {
	case "csv":
		return exporter.NewCSVStore(paths.ReportsDir, logger)
	case "memory":
		return exporter.NewMemoryStore()
	default:
		return exporter.NewWorkbookStore(paths.GetReportPath(cfg.Pipeline.Workbook), logger)
	}
}
