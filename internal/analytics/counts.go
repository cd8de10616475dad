package analytics

import (
	"sort"

	"scorecard/internal/dataprocessing"
	"scorecard/pkg/contracts/domain"
)

// InstitutionCounts is the number of institutions per state and year, used
// as the null-rate denominator. It remembers the table it was computed from.
type InstitutionCounts struct {
	source *dataprocessing.LongitudinalTable
	years  []int
	counts map[stateYear]int
	totals map[int]int
}

// CountInstitutions counts rows per state and year, regardless of any
// attribute's missingness.
func CountInstitutions(table *dataprocessing.LongitudinalTable) *InstitutionCounts {
	c := &InstitutionCounts{
		source: table,
		years:  table.Years(),
		counts: make(map[stateYear]int),
		totals: make(map[int]int),
	}
	table.Each(func(rec domain.InstitutionRecord) bool {
		c.counts[stateYear{rec.StateAbbreviation, rec.Year}]++
		c.totals[rec.Year]++
		return true
	})
	return c
}

// Count returns the institutions of state in year; 0 when there are none.
func (c *InstitutionCounts) Count(state string, year int) int {
	return c.counts[stateYear{state, year}]
}

// Total returns the institutions of every state in year.
func (c *InstitutionCounts) Total(year int) int {
	return c.totals[year]
}

// Years lists the counted years, ascending.
func (c *InstitutionCounts) Years() []int { return append([]int(nil), c.years...) }

// HasYear reports whether year was counted.
func (c *InstitutionCounts) HasYear(year int) bool {
	i := sort.SearchInts(c.years, year)
	return i < len(c.years) && c.years[i] == year
}

// ComputedFrom reports whether the counts were built from table.
func (c *InstitutionCounts) ComputedFrom(table *dataprocessing.LongitudinalTable) bool {
	return c != nil && table != nil && c.source == table
}

// StateCount pairs a state with its institution count.
type StateCount struct {
	State string `json:"state"`
	Count int    `json:"count"`
}

// RankStates orders states by institution count in year, largest first,
// ties broken by state code. top limits the result; 0 keeps all 51.
func RankStates(counts *InstitutionCounts, year, top int) ([]StateCount, error) {
	if counts == nil || !counts.HasYear(year) {
		return nil, &EmptySelectionError{What: "state ranking", Year: year, Reason: "year was not loaded"}
	}

	ranked := make([]StateCount, 0, domain.StateCount)
	for _, s := range domain.States() {
		ranked = append(ranked, StateCount{State: s, Count: counts.Count(s, year)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].State < ranked[j].State
	})

	if top > 0 && top < len(ranked) {
		ranked = ranked[:top]
	}
	return ranked, nil
}

// TopStates returns the codes of the top states by institution count.
func TopStates(counts *InstitutionCounts, year, top int) ([]string, error) {
	ranked, err := RankStates(counts, year, top)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ranked))
	for i, sc := range ranked {
		out[i] = sc.State
	}
	return out, nil
}
