package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "scorecard/internal/errors"
)

// SchemaMismatchError reports requested columns absent from one year's extract.
type SchemaMismatchError struct {
	Year    int
	Source  string
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("extract %s (year %d) is missing columns: %s",
		e.Source, e.Year, strings.Join(e.Missing, ", "))
}

func (e *SchemaMismatchError) Unwrap() error { return apperrors.ErrSchemaMismatch }

// AmbiguousYearOrderingError reports sources that map to the same year.
type AmbiguousYearOrderingError struct {
	Year    int
	Sources []string
}

func (e *AmbiguousYearOrderingError) Error() string {
	return fmt.Sprintf("year %d is claimed by more than one extract: %s",
		e.Year, strings.Join(e.Sources, ", "))
}

func (e *AmbiguousYearOrderingError) Unwrap() error { return apperrors.ErrAmbiguousYearOrdering }
