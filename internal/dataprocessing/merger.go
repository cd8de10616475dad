package dataprocessing

import (
	"errors"
	"log/slog"
	"sort"

	apperrors "scorecard/internal/errors"
	"scorecard/pkg/contracts/domain"
)

// SkippedYear is a year left out of the merge because of a schema mismatch.
type SkippedYear struct {
	Year    int      `json:"year"`
	Source  string   `json:"source"`
	Missing []string `json:"missing"`
}

// MergeReport summarizes what a merge kept and dropped.
type MergeReport struct {
	Years        []int          `json:"years"`
	Rows         int            `json:"rows"`
	SkippedYears []SkippedYear  `json:"skipped_years"`
	DroppedRows  int            `json:"dropped_rows"`
	DroppedCodes map[string]int `json:"dropped_codes"`
	// Suppressed counts privacy-suppressed cells among kept rows.
	Suppressed int `json:"suppressed"`
}

// Merger concatenates per-year loads into one LongitudinalTable.
type Merger struct {
	strict bool
	logger *slog.Logger
}

// NewMerger creates a merger. In strict mode any schema mismatch aborts the
// merge; otherwise the year is skipped and reported.
func NewMerger(strict bool, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{strict: strict, logger: logger}
}

// Merge orders results by their explicit year and concatenates them, keeping
// only rows in the state universe. Two results claiming one year fail with
// *AmbiguousYearOrderingError before anything is merged.
func (m *Merger) Merge(results []LoadResult) (*LongitudinalTable, MergeReport, error) {
	report := MergeReport{DroppedCodes: make(map[string]int)}

	claimed := make(map[int]string, len(results))
	for _, res := range results {
		y := res.Source.Year
		if y <= 0 {
			return nil, report, apperrors.NewAppError(apperrors.ErrTypeOrdering,
				"extract has no year", nil).WithContext("source", res.Source.Name())
		}
		if prev, dup := claimed[y]; dup {
			sources := []string{prev, res.Source.Name()}
			sort.Strings(sources)
			return nil, report, &AmbiguousYearOrderingError{Year: y, Sources: sources}
		}
		claimed[y] = res.Source.Name()
	}

	ordered := make([]LoadResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Source.Year < ordered[j].Source.Year })

	var attributes []string
	var years []int
	var rows []domain.InstitutionRecord

	for _, res := range ordered {
		if res.Err != nil {
			if m.strict {
				return nil, report, res.Err
			}
			skipped := SkippedYear{Year: res.Source.Year, Source: res.Source.Name()}
			var sm *SchemaMismatchError
			if errors.As(res.Err, &sm) {
				skipped.Missing = sm.Missing
			}
			report.SkippedYears = append(report.SkippedYears, skipped)
			m.logger.Warn("year skipped",
				slog.Int("year", skipped.Year),
				slog.String("source", skipped.Source),
				slog.Any("missing", skipped.Missing))
			continue
		}
		if res.Extract == nil {
			continue
		}

		if attributes == nil {
			attributes = res.Extract.Attributes
		}
		years = append(years, res.Extract.Year)

		for _, rec := range res.Extract.Records {
			if !domain.IsState(rec.StateAbbreviation) {
				report.DroppedRows++
				report.DroppedCodes[rec.StateAbbreviation]++
				continue
			}
			for _, a := range res.Extract.Attributes {
				if rec.Value(a).Reason() == domain.MissingPrivacySuppressed {
					report.Suppressed++
				}
			}
			rows = append(rows, rec)
		}
	}

	table := NewLongitudinalTable(attributes, years, rows)
	report.Years = table.Years()
	report.Rows = table.Len()

	m.logger.Info("extracts merged",
		slog.Any("years", report.Years),
		slog.Int("rows", report.Rows),
		slog.Int("skipped_years", len(report.SkippedYears)),
		slog.Int("dropped_rows", report.DroppedRows))

	return table, report, nil
}
