package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	apperrors "scorecard/internal/errors"
	"scorecard/pkg/contracts/domain"
)

// YearExtract is one extract's records, tagged with the source year.
// Every record carries exactly the requested attributes.
type YearExtract struct {
	Year       int
	Source     string
	Attributes []string
	Records    []domain.InstitutionRecord
}

// LoadResult is the outcome of loading one source. Err is set only for
// per-year failures (schema mismatch); the Merger decides what to do with them.
type LoadResult struct {
	Source  Source
	Extract *YearExtract
	Err     error
}

// Loader reads yearly extracts.
type Loader struct {
	logger      *slog.Logger
	concurrency int
}

// NewLoader creates a loader. concurrency bounds LoadAll; values below 1 mean 1.
func NewLoader(logger *slog.Logger, concurrency int) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{logger: logger, concurrency: concurrency}
}

// Load reads one extract and keeps the identifying columns plus the requested
// attributes. It fails with *SchemaMismatchError when any of those columns is
// absent from the header.
func (l *Loader) Load(ctx context.Context, src Source, req LoadRequest) (*YearExtract, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := ReadTable(src.Path, src.Sheet)
	if err != nil {
		return nil, err
	}

	idx := raw.ColumnIndex()
	attrs := req.Attributes()

	var missing []string
	for _, col := range append([]string{domain.ColumnInstitution, domain.ColumnState}, attrs...) {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &SchemaMismatchError{Year: src.Year, Source: src.Name(), Missing: missing}
	}

	cell := func(row []string, col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	records := make([]domain.InstitutionRecord, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		values := make(map[string]domain.Value, len(attrs))
		for _, a := range attrs {
			values[a] = domain.ParseValue(cell(row, a))
		}
		records = append(records, domain.NewInstitutionRecord(
			cell(row, domain.ColumnInstitution),
			cell(row, domain.ColumnState),
			src.Year,
			values,
		))
	}

	l.logger.InfoContext(ctx, "extract loaded",
		slog.String("source", src.Name()),
		slog.Int("year", src.Year),
		slog.Int("rows", len(records)),
		slog.Int("attributes", len(attrs)))

	return &YearExtract{
		Year:       src.Year,
		Source:     src.Name(),
		Attributes: attrs,
		Records:    records,
	}, nil
}

// LoadAll loads every source in parallel. Results are returned in the order
// of sources, never in completion order. A schema mismatch is recorded on its
// result; any other error cancels the remaining loads and is returned.
func (l *Loader) LoadAll(ctx context.Context, sources []Source, req LoadRequest) ([]LoadResult, error) {
	results := make([]LoadResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, src := range sources {
		g.Go(func() error {
			ext, err := l.Load(gctx, src, req)
			if errors.Is(err, apperrors.ErrSchemaMismatch) {
				results[i] = LoadResult{Source: src, Err: err}
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", src.Name(), err)
			}
			results[i] = LoadResult{Source: src, Extract: ext}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
