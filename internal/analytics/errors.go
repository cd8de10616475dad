package analytics

import (
	"fmt"

	apperrors "scorecard/internal/errors"
)

// Granularity is the unit of observation of a correlation matrix.
type Granularity string

const (
	GranularityInstitution Granularity = "institution"
	GranularityState       Granularity = "state"
)

// DegenerateColumnError reports an attribute with no variance.
type DegenerateColumnError struct {
	Attribute   string
	Granularity Granularity
}

func (e *DegenerateColumnError) Error() string {
	return fmt.Sprintf("attribute %q has no variance at %s level", e.Attribute, e.Granularity)
}

func (e *DegenerateColumnError) Unwrap() error { return apperrors.ErrDegenerateColumn }

// DenominatorMismatchError reports institution counts computed from a
// different table than the one being measured.
type DenominatorMismatchError struct {
	Attribute string
}

func (e *DenominatorMismatchError) Error() string {
	return fmt.Sprintf("null rate of %q: institution counts were not computed from this table", e.Attribute)
}

func (e *DenominatorMismatchError) Unwrap() error { return apperrors.ErrDenominatorMismatch }

// NonNumericError reports a present, non-numeric cell in a numeric aggregate.
type NonNumericError struct {
	Attribute   string
	Year        int
	Institution string
	Value       string
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("attribute %q is not numeric for %q in %d: %q",
		e.Attribute, e.Institution, e.Year, e.Value)
}

func (e *NonNumericError) Unwrap() error { return apperrors.ErrNonNumeric }

// EmptySelectionError reports a computation with too few eligible rows.
type EmptySelectionError struct {
	What   string
	Year   int
	Reason string
}

func (e *EmptySelectionError) Error() string {
	if e.Year == 0 {
		return fmt.Sprintf("%s: %s", e.What, e.Reason)
	}
	return fmt.Sprintf("%s (%d): %s", e.What, e.Year, e.Reason)
}

func (e *EmptySelectionError) Unwrap() error { return apperrors.ErrEmptySelection }

func unknownAttribute(attr string) error {
	return apperrors.NewAppValidationError(fmt.Sprintf("attribute %q was not loaded", attr))
}
