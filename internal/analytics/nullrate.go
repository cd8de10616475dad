package analytics

import (
	"scorecard/internal/dataprocessing"
	"scorecard/pkg/contracts/domain"
)

// NullRates holds, for one attribute, the missing-value count and rate per
// state and year. Privacy-suppressed cells count as missing.
type NullRates struct {
	attribute string
	years     []int
	states    []string
	nulls     map[stateYear]int
	counts    *InstitutionCounts
}

// ComputeNullRates counts missing values of attr per state and year. counts
// must have been computed from table itself. year 0 covers every year.
func ComputeNullRates(counts *InstitutionCounts, table *dataprocessing.LongitudinalTable, attr string, year int) (*NullRates, error) {
	if !counts.ComputedFrom(table) {
		return nil, &DenominatorMismatchError{Attribute: attr}
	}
	if !table.HasAttribute(attr) {
		return nil, unknownAttribute(attr)
	}

	years := table.Years()
	if year != 0 {
		if !table.HasYear(year) {
			return nil, &EmptySelectionError{What: "null rates of " + attr, Year: year, Reason: "year was not loaded"}
		}
		years = []int{year}
	}

	nulls := make(map[stateYear]int)
	for _, rec := range table.Rows(year) {
		if rec.Value(attr).IsMissing() {
			nulls[stateYear{rec.StateAbbreviation, rec.Year}]++
		}
	}

	return &NullRates{
		attribute: attr,
		years:     years,
		states:    domain.States(),
		nulls:     nulls,
		counts:    counts,
	}, nil
}

// Attribute is the measured attribute.
func (n *NullRates) Attribute() string { return n.attribute }

// Years lists the covered years, ascending.
func (n *NullRates) Years() []int { return append([]int(nil), n.years...) }

// States lists the covered states.
func (n *NullRates) States() []string { return append([]string(nil), n.states...) }

// NullCount is the number of institutions of state missing the attribute in year.
func (n *NullRates) NullCount(state string, year int) int {
	return n.nulls[stateYear{state, year}]
}

// Institutions is the denominator for state in year.
func (n *NullRates) Institutions(state string, year int) int {
	return n.counts.Count(state, year)
}

// Rate is NullCount / Institutions, undefined when the state has no
// institutions in year.
func (n *NullRates) Rate(state string, year int) domain.Figure {
	total := n.counts.Count(state, year)
	if total == 0 {
		return domain.Undefined()
	}
	return domain.Defined(float64(n.NullCount(state, year)) / float64(total))
}

// National is the share of institutions missing the attribute across all
// states in year, undefined when the year has no institutions.
func (n *NullRates) National(year int) domain.Figure {
	total := n.counts.Total(year)
	if total == 0 {
		return domain.Undefined()
	}
	nulls := 0
	for k, c := range n.nulls {
		if k.year == year {
			nulls += c
		}
	}
	return domain.Defined(float64(nulls) / float64(total))
}
