package analytics

import (
	"gonum.org/v1/gonum/stat"

	"scorecard/internal/dataprocessing"
	"scorecard/pkg/contracts/domain"
)

type rollupKey struct {
	stateYear
	attr string
}

// StateRollup holds the mean of each attribute per state and year. Every
// state of the universe is present; a partition with no values is undefined.
type StateRollup struct {
	year       int
	years      []int
	states     []string
	attributes []string
	means      map[rollupKey]domain.Figure
	support    map[rollupKey]int
}

// Rollup averages attributes per state over non-missing values, for one year
// or, with year 0, for every year of the table. A row missing one attribute
// still contributes to the others.
func Rollup(table *dataprocessing.LongitudinalTable, attributes []string, year int) (*StateRollup, error) {
	for _, a := range attributes {
		if !table.HasAttribute(a) {
			return nil, unknownAttribute(a)
		}
	}

	years := table.Years()
	if year != 0 {
		if !table.HasYear(year) {
			return nil, &EmptySelectionError{What: "state rollup", Year: year, Reason: "year was not loaded"}
		}
		years = []int{year}
	}

	values := make(map[rollupKey][]float64)
	for _, rec := range table.Rows(year) {
		for _, a := range attributes {
			v, ok, err := numeric(rec, a)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			k := rollupKey{stateYear{rec.StateAbbreviation, rec.Year}, a}
			values[k] = append(values[k], v)
		}
	}

	r := &StateRollup{
		year:       year,
		years:      years,
		states:     domain.States(),
		attributes: append([]string(nil), attributes...),
		means:      make(map[rollupKey]domain.Figure, len(values)),
		support:    make(map[rollupKey]int, len(values)),
	}
	for k, vs := range values {
		r.means[k] = domain.Defined(stat.Mean(vs, nil))
		r.support[k] = len(vs)
	}
	return r, nil
}

// Mean returns the mean of attr for state in year; undefined when no
// institution reported a value.
func (r *StateRollup) Mean(state string, year int, attr string) domain.Figure {
	return r.means[rollupKey{stateYear{state, year}, attr}]
}

// Support is the number of values behind Mean.
func (r *StateRollup) Support(state string, year int, attr string) int {
	return r.support[rollupKey{stateYear{state, year}, attr}]
}

// Year is the requested year, 0 for all years.
func (r *StateRollup) Year() int { return r.year }

// Years lists the years covered, ascending.
func (r *StateRollup) Years() []int { return append([]int(nil), r.years...) }

// States lists the states covered.
func (r *StateRollup) States() []string { return append([]string(nil), r.states...) }

// Attributes lists the averaged attributes in request order.
func (r *StateRollup) Attributes() []string { return append([]string(nil), r.attributes...) }

// ForStates returns a view limited to states, in the given order. Codes
// outside the universe are ignored.
func (r *StateRollup) ForStates(states []string) *StateRollup {
	kept := make([]string, 0, len(states))
	for _, s := range states {
		if domain.IsState(s) {
			kept = append(kept, s)
		}
	}
	return &StateRollup{
		year:       r.year,
		years:      r.years,
		states:     kept,
		attributes: r.attributes,
		means:      r.means,
		support:    r.support,
	}
}
