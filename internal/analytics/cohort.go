package analytics

import (
	"scorecard/internal/dataprocessing"
	"scorecard/pkg/contracts/domain"
)

// CohortRow is one institution of the reference set with its quartile label.
type CohortRow struct {
	InstitutionName   string  `json:"institution_name"`
	StateAbbreviation string  `json:"state_abbreviation"`
	Year              int     `json:"year"`
	Value             float64 `json:"value"`
	Label             int     `json:"label"`
	// Carry holds the carried attributes, aligned with Cohort.Carry.
	Carry []domain.Value `json:"-"`
}

// Cohort is the labelled reference set of one attribute in one year. Rows
// missing the reference attribute are not part of it.
type Cohort struct {
	Attribute  string
	Year       int
	Boundaries QuartileBoundaries
	Carry      []string
	Rows       []CohortRow
}

// Segment labels every institution of year that has a value for attr with
// its quartile (1-4) on attr. carry names extra attributes copied onto each
// row; their missingness does not affect membership.
func Segment(table *dataprocessing.LongitudinalTable, attr string, year int, carry ...string) (*Cohort, error) {
	for _, a := range append([]string{attr}, carry...) {
		if !table.HasAttribute(a) {
			return nil, unknownAttribute(a)
		}
	}
	if !table.HasYear(year) {
		return nil, &EmptySelectionError{What: "cohort on " + attr, Year: year, Reason: "year was not loaded"}
	}

	var rows []CohortRow
	var values []float64
	for _, rec := range table.Rows(year) {
		v, ok, err := numeric(rec, attr)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		extra := make([]domain.Value, len(carry))
		for i, c := range carry {
			extra[i] = rec.Value(c)
		}
		rows = append(rows, CohortRow{
			InstitutionName:   rec.InstitutionName,
			StateAbbreviation: rec.StateAbbreviation,
			Year:              rec.Year,
			Value:             v,
			Carry:             extra,
		})
		values = append(values, v)
	}

	if len(values) == 0 {
		return nil, &EmptySelectionError{What: "cohort on " + attr, Year: year, Reason: "no institution reports the attribute"}
	}

	bounds, err := Quartiles(values)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Label = bounds.Label(rows[i].Value)
	}

	return &Cohort{
		Attribute:  attr,
		Year:       year,
		Boundaries: bounds,
		Carry:      append([]string(nil), carry...),
		Rows:       rows,
	}, nil
}

// LabelCounts returns how many rows carry each label; index 0 is label 1.
func (c *Cohort) LabelCounts() [4]int {
	var out [4]int
	for _, r := range c.Rows {
		out[r.Label-1]++
	}
	return out
}
