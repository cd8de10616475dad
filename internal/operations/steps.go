package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"scorecard/internal/analytics"
	"scorecard/internal/config"
	"scorecard/internal/dataprocessing"
	apperrors "scorecard/internal/errors"
	"scorecard/internal/exporter"
	"scorecard/internal/infrastructure"
	"scorecard/internal/validation"
)

// Output is where steps persist their tables.
type Output struct {
	Store exporter.AggregateStore
	// Kind labels the store in metrics (csv, xlsx, memory).
	Kind    string
	Metrics *infrastructure.PipelineMetrics
}

// put writes one table and records its key on the step state
func (o *Output) put(ctx context.Context, state *OperationState, stepID, key string, table exporter.Table) error {
	if err := o.Store.Put(ctx, key, table); err != nil {
		return fmt.Errorf("failed to write table %s: %w", key, err)
	}
	o.Metrics.RecordTableWritten(ctx, o.Kind)
	if s := state.GetStage(stepID); s != nil {
		s.AddTable(key)
	}
	return nil
}

// reportStage is shared by the steps that compute aggregates from one dataset
type reportStage struct {
	BaseStage
	dataset string
	out     *Output
}

func newReportStage(kind, name, dataset string, out *Output) reportStage {
	return reportStage{
		BaseStage: NewBaseStage(StepID(kind, name), fmt.Sprintf("%s %s", kind, name),
			[]string{StepID(StepKindLoad, dataset)}),
		dataset: dataset,
		out:     out,
	}
}

// Validate checks that the dataset was published by its load step
func (r *reportStage) Validate(state *OperationState) error {
	if _, ok := state.Dataset(r.dataset); !ok {
		return fmt.Errorf("dataset %s is not loaded", r.dataset)
	}
	return nil
}

func (r *reportStage) data(state *OperationState) *Dataset {
	ds, _ := state.Dataset(r.dataset)
	return ds
}

// LoadStep loads every extract of one dataset and publishes the merged table
type LoadStep struct {
	BaseStage
	spec      config.DatasetSpec
	sources   []dataprocessing.Source
	loader    *dataprocessing.Loader
	merger    *dataprocessing.Merger
	validator *validation.FileValidator
	out       *Output
	logger    *slog.Logger
}

// NewLoadStep creates the load step of a dataset
func NewLoadStep(spec config.DatasetSpec, sources []dataprocessing.Source, loader *dataprocessing.Loader,
	merger *dataprocessing.Merger, validator *validation.FileValidator, out *Output, logger *slog.Logger) *LoadStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadStep{
		BaseStage: NewBaseStage(StepID(StepKindLoad, spec.Name), "load "+spec.Name, nil),
		spec:      spec,
		sources:   sources,
		loader:    loader,
		merger:    merger,
		validator: validator,
		out:       out,
		logger:    logger,
	}
}

// Validate checks every extract before any is read
func (s *LoadStep) Validate(state *OperationState) error {
	if len(s.sources) == 0 {
		return fmt.Errorf("no extracts for dataset %s", s.spec.Name)
	}
	for _, src := range s.sources {
		if err := s.validator.ValidateExtract(src.Path); err != nil {
			return err
		}
	}
	return nil
}

// Execute loads, merges and publishes the dataset, then writes the merge
// report and the institution counts.
func (s *LoadStep) Execute(ctx context.Context, state *OperationState) error {
	req := dataprocessing.NewLoadRequest(s.spec.Attributes...)

	results, err := s.loader.LoadAll(ctx, s.sources, req)
	if err != nil {
		// a year that cannot be read leaves no table to merge
		if ctx.Err() != nil {
			return err
		}
		return NewFatalError(s.ID(), "extract could not be read", err)
	}

	table, report, err := s.merger.Merge(results)
	if err != nil {
		if errors.Is(err, apperrors.ErrSchemaMismatch) {
			return NewFatalError(s.ID(), "strict schema check failed", err)
		}
		return err
	}

	counts := analytics.CountInstitutions(table)
	state.SetDataset(&Dataset{
		Name:   s.spec.Name,
		Table:  table,
		Counts: counts,
		Report: report,
	})

	s.out.Metrics.RecordLoad(ctx, s.spec.Name, report.Rows, len(report.SkippedYears),
		map[string]int{"non_state": report.DroppedRows})

	s.logger.InfoContext(ctx, "Dataset loaded",
		slog.String("dataset", s.spec.Name),
		slog.Int("rows", report.Rows),
		slog.Any("years", report.Years),
		slog.Int("skipped_years", len(report.SkippedYears)),
		slog.Int("dropped_rows", report.DroppedRows))

	if err := s.out.put(ctx, state, s.ID(), config.MergeReportKey(s.spec.Name), exporter.MergeReportTable(report)); err != nil {
		return err
	}
	return s.out.put(ctx, state, s.ID(), config.InstitutionsKey(s.spec.Name), exporter.CountsTable(counts))
}

// RollupStep writes state means, and one series table per attribute when
// the job covers all years.
type RollupStep struct {
	reportStage
	job config.RollupJob
}

// NewRollupStep creates a rollup step
func NewRollupStep(job config.RollupJob, out *Output) *RollupStep {
	return &RollupStep{reportStage: newReportStage(StepKindRollup, job.Name, job.Dataset, out), job: job}
}

func (s *RollupStep) Execute(ctx context.Context, state *OperationState) error {
	ds := s.data(state)

	rollup, err := analytics.Rollup(ds.Table, s.job.Attributes, s.job.Year)
	if err != nil {
		return err
	}
	if s.job.TopStates > 0 {
		top, err := analytics.TopStates(ds.Counts, s.job.RankYear, s.job.TopStates)
		if err != nil {
			return err
		}
		rollup = rollup.ForStates(top)
	}

	if err := s.out.put(ctx, state, s.ID(), s.job.Name, exporter.RollupTable(rollup)); err != nil {
		return err
	}
	if s.job.Year != config.AllYears {
		return nil
	}
	for _, attr := range rollup.Attributes() {
		if err := s.out.put(ctx, state, s.ID(), config.AttributeKey(s.job.Name, attr), exporter.SeriesTable(rollup, attr)); err != nil {
			return err
		}
	}
	return nil
}

// NullRateStep writes null counts and percentages per attribute plus the
// national share table. An attribute that fails does not stop the others.
type NullRateStep struct {
	reportStage
	job config.NullRateJob
}

// NewNullRateStep creates a null rate step
func NewNullRateStep(job config.NullRateJob, out *Output) *NullRateStep {
	return &NullRateStep{reportStage: newReportStage(StepKindNullRate, job.Name, job.Dataset, out), job: job}
}

func (s *NullRateStep) Execute(ctx context.Context, state *OperationState) error {
	ds := s.data(state)

	var rates []*analytics.NullRates
	var errs []error
	for _, attr := range s.job.Attributes {
		n, err := analytics.ComputeNullRates(ds.Counts, ds.Table, attr, s.job.Year)
		if err != nil {
			if apperrors.IsFatal(err) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s: %w", attr, err))
			continue
		}
		if err := s.out.put(ctx, state, s.ID(), config.NullCountKey(s.job.Name, attr), exporter.NullCountTable(n)); err != nil {
			return err
		}
		if err := s.out.put(ctx, state, s.ID(), config.NullPercentKey(s.job.Name, attr), exporter.NullRateTable(n)); err != nil {
			return err
		}
		rates = append(rates, n)
	}

	if len(rates) > 0 {
		if err := s.out.put(ctx, state, s.ID(), config.NationalNullKey(s.job.Name), exporter.NationalNullTable(rates)); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// CohortStep writes the labelled institutions and the quartile summary
type CohortStep struct {
	reportStage
	job config.CohortJob
}

// NewCohortStep creates a cohort step
func NewCohortStep(job config.CohortJob, out *Output) *CohortStep {
	return &CohortStep{reportStage: newReportStage(StepKindCohort, job.Name, job.Dataset, out), job: job}
}

func (s *CohortStep) Execute(ctx context.Context, state *OperationState) error {
	cohort, err := analytics.Segment(s.data(state).Table, s.job.Attribute, s.job.Year, s.job.Carry...)
	if err != nil {
		return err
	}
	if err := s.out.put(ctx, state, s.ID(), s.job.Name, exporter.CohortTable(cohort)); err != nil {
		return err
	}
	return s.out.put(ctx, state, s.ID(), config.QuartilesKey(s.job.Name), exporter.QuartileTable(cohort))
}

// CorrelationStep writes the institution and state matrices. A matrix that
// fails leaves the other one written.
type CorrelationStep struct {
	reportStage
	job config.CorrelationJob
}

// NewCorrelationStep creates a correlation step
func NewCorrelationStep(job config.CorrelationJob, out *Output) *CorrelationStep {
	return &CorrelationStep{reportStage: newReportStage(StepKindCorrelation, job.Name, job.Dataset, out), job: job}
}

func (s *CorrelationStep) Execute(ctx context.Context, state *OperationState) error {
	report, err := analytics.Correlate(s.data(state).Table, s.job.Attributes, s.job.Year)
	if report != nil {
		if report.Institution != nil {
			if perr := s.out.put(ctx, state, s.ID(), config.CorrelationKey(s.job.Name, string(analytics.GranularityInstitution)), exporter.CorrelationTable(report.Institution)); perr != nil {
				return perr
			}
		}
		if report.State != nil {
			if perr := s.out.put(ctx, state, s.ID(), config.CorrelationKey(s.job.Name, string(analytics.GranularityState)), exporter.CorrelationTable(report.State)); perr != nil {
				return perr
			}
		}
	}
	return err
}

// RankingStep writes states ordered by institution count
type RankingStep struct {
	reportStage
	job config.RankingJob
}

// NewRankingStep creates a ranking step
func NewRankingStep(job config.RankingJob, out *Output) *RankingStep {
	return &RankingStep{reportStage: newReportStage(StepKindRanking, job.Name, job.Dataset, out), job: job}
}

func (s *RankingStep) Execute(ctx context.Context, state *OperationState) error {
	ranked, err := analytics.RankStates(s.data(state).Counts, s.job.Year, s.job.Top)
	if err != nil {
		return err
	}
	return s.out.put(ctx, state, s.ID(), s.job.Name, exporter.RankingTable(ranked))
}

// SeriesStep copies an external observation series into the store. It does
// not depend on any dataset.
type SeriesStep struct {
	BaseStage
	job       config.SeriesJob
	path      string
	validator *validation.FileValidator
	out       *Output
	logger    *slog.Logger
}

// NewSeriesStep creates a series step reading job.File under dataDir
func NewSeriesStep(job config.SeriesJob, dataDir string, validator *validation.FileValidator, out *Output, logger *slog.Logger) *SeriesStep {
	if logger == nil {
		logger = slog.Default()
	}
	path := job.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(dataDir, path)
	}
	return &SeriesStep{
		BaseStage: NewBaseStage(StepID(StepKindSeries, job.Name), "series "+job.Name, nil),
		job:       job,
		path:      path,
		validator: validator,
		out:       out,
		logger:    logger,
	}
}

func (s *SeriesStep) Validate(state *OperationState) error {
	return s.validator.ValidateExtract(s.path)
}

func (s *SeriesStep) Execute(ctx context.Context, state *OperationState) error {
	series, err := dataprocessing.ReadObservations(s.path, s.job.Sheet, s.job.Header)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Series read",
		slog.String("series", series.Code),
		slog.String("file", filepath.Base(s.path)),
		slog.Int("observations", len(series.Observations)))
	return s.out.put(ctx, state, s.ID(), s.job.Name, exporter.ObservationTable(series, s.job.Label))
}
