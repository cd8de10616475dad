package dataprocessing

import (
	"fmt"
	"strings"

	apperrors "scorecard/internal/errors"
	"scorecard/pkg/contracts/domain"
)

// DefaultObservationHeader is the first header cell of a FRED graph export.
const DefaultObservationHeader = "observation_date"

// fredMissing is how FRED marks an observation with no value
const fredMissing = "."

// Observation is one dated value of an external series.
type Observation struct {
	Date  string
	Value domain.Value
}

// ObservationSeries is a dated series read from an export whose data starts
// below a free-text preamble.
type ObservationSeries struct {
	// Code is the second header cell, the series identifier.
	Code         string
	Observations []Observation
}

// ReadObservations reads a two column (date, value) series from a .csv or
// .xlsx export. Rows above the one whose first cell equals header are
// skipped, as is the header row itself. Rows without a date end the series.
func ReadObservations(path, sheet, header string) (*ObservationSeries, error) {
	if header == "" {
		header = DefaultObservationHeader
	}

	raw, err := ReadTable(path, sheet)
	if err != nil {
		return nil, err
	}
	rows := append([][]string{raw.Header}, raw.Rows...)

	start := -1
	for i, r := range rows {
		if len(r) > 0 && strings.TrimSpace(r[0]) == header {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("no %q header row", header), nil).
			WithContext("path", path)
	}
	if len(rows[start]) < 2 {
		return nil, apperrors.NewParsingError("series header has no value column", nil).
			WithContext("path", path)
	}

	series := &ObservationSeries{Code: strings.TrimSpace(rows[start][1])}
	for _, r := range rows[start+1:] {
		if len(r) == 0 || strings.TrimSpace(r[0]) == "" {
			break
		}
		cell := ""
		if len(r) > 1 {
			cell = r[1]
		}
		v := domain.ParseValue(cell)
		if strings.TrimSpace(cell) == fredMissing {
			v = domain.Missing()
		}
		series.Observations = append(series.Observations, Observation{Date: strings.TrimSpace(r[0]), Value: v})
	}
	return series, nil
}
