package operations

import (
	"fmt"
	"log/slog"

	"scorecard/internal/config"
	"scorecard/internal/dataprocessing"
	"scorecard/internal/infrastructure"
	"scorecard/internal/validation"
)

// PipelineOptions wires a plan to its extracts and output.
type PipelineOptions struct {
	Plan    *config.Plan
	Sources []dataprocessing.Source
	// DataDir resolves relative series files.
	DataDir         string
	Strict          bool
	LoadConcurrency int
	Output          *Output
	Logger          *slog.Logger
}

// BuildRegistry registers one load step per dataset, then one step per job
// in plan order. Every job step depends on the load step of its dataset;
// series steps depend on nothing.
func BuildRegistry(opts PipelineOptions) (*Registry, error) {
	if opts.Plan == nil {
		return nil, fmt.Errorf("pipeline requires a plan")
	}
	if opts.Output == nil || opts.Output.Store == nil {
		return nil, fmt.Errorf("pipeline requires an output store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	loader := dataprocessing.NewLoader(infrastructure.WithComponent(logger, "loader"), opts.LoadConcurrency)
	merger := dataprocessing.NewMerger(opts.Strict, infrastructure.WithComponent(logger, "merger"))
	validator := validation.NewFileValidator(infrastructure.WithComponent(logger, "validation"))
	logger = infrastructure.WithComponent(logger, "pipeline")

	reg := NewRegistry()
	var steps []Step
	for _, ds := range opts.Plan.Datasets {
		steps = append(steps, NewLoadStep(ds, opts.Sources, loader, merger, validator, opts.Output, logger))
	}
	for _, j := range opts.Plan.Rollups {
		steps = append(steps, NewRollupStep(j, opts.Output))
	}
	for _, j := range opts.Plan.NullRates {
		steps = append(steps, NewNullRateStep(j, opts.Output))
	}
	for _, j := range opts.Plan.Cohorts {
		steps = append(steps, NewCohortStep(j, opts.Output))
	}
	for _, j := range opts.Plan.Correlations {
		steps = append(steps, NewCorrelationStep(j, opts.Output))
	}
	for _, j := range opts.Plan.Rankings {
		steps = append(steps, NewRankingStep(j, opts.Output))
	}
	for _, j := range opts.Plan.Series {
		steps = append(steps, NewSeriesStep(j, opts.DataDir, validator, opts.Output, logger))
	}

	for _, s := range steps {
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
