package dataprocessing

import (
	"sort"

	"scorecard/pkg/contracts/domain"
)

// LongitudinalTable is the merged multi-year record set. Every row belongs to
// the 51-member state universe. A table never changes after construction.
type LongitudinalTable struct {
	attributes []string
	years      []int
	rows       []domain.InstitutionRecord
}

// NewLongitudinalTable builds a table from rows. Rows outside the state
// universe are dropped. years lists the loaded years; years that only appear
// on rows are added.
func NewLongitudinalTable(attributes []string, years []int, rows []domain.InstitutionRecord) *LongitudinalTable {
	kept := make([]domain.InstitutionRecord, 0, len(rows))
	yearSet := make(map[int]struct{}, len(years))
	for _, y := range years {
		yearSet[y] = struct{}{}
	}
	for _, r := range rows {
		if !domain.IsState(r.StateAbbreviation) {
			continue
		}
		kept = append(kept, r)
		yearSet[r.Year] = struct{}{}
	}

	ys := make([]int, 0, len(yearSet))
	for y := range yearSet {
		ys = append(ys, y)
	}
	sort.Ints(ys)

	attrs := make([]string, len(attributes))
	copy(attrs, attributes)
	sort.Strings(attrs)

	return &LongitudinalTable{attributes: attrs, years: ys, rows: kept}
}

// Len is the number of rows.
func (t *LongitudinalTable) Len() int { return len(t.rows) }

// Years returns the table's years in ascending order.
func (t *LongitudinalTable) Years() []int {
	out := make([]int, len(t.years))
	copy(out, t.years)
	return out
}

// HasYear reports whether year was loaded.
func (t *LongitudinalTable) HasYear(year int) bool {
	i := sort.SearchInts(t.years, year)
	return i < len(t.years) && t.years[i] == year
}

// Attributes returns the loaded attribute names, sorted.
func (t *LongitudinalTable) Attributes() []string {
	out := make([]string, len(t.attributes))
	copy(out, t.attributes)
	return out
}

// HasAttribute reports whether attr was loaded.
func (t *LongitudinalTable) HasAttribute(attr string) bool {
	i := sort.SearchStrings(t.attributes, attr)
	return i < len(t.attributes) && t.attributes[i] == attr
}

// Each calls fn for every row in load order until fn returns false.
func (t *LongitudinalTable) Each(fn func(domain.InstitutionRecord) bool) {
	for _, r := range t.rows {
		if !fn(r) {
			return
		}
	}
}

// Rows returns the rows of one year, or every row when year is 0.
func (t *LongitudinalTable) Rows(year int) []domain.InstitutionRecord {
	out := make([]domain.InstitutionRecord, 0)
	for _, r := range t.rows {
		if year == 0 || r.Year == year {
			out = append(out, r)
		}
	}
	return out
}
