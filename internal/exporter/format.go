package exporter

import (
	"sort"
	"strconv"
	"strings"

	"scorecard/internal/analytics"
	"scorecard/internal/dataprocessing"
	"scorecard/pkg/contracts/domain"
)

// Column names shared by the converters.
const (
	ColumnState        = "state"
	ColumnYear         = "year"
	ColumnAttribute    = "attribute"
	ColumnQuartile     = "quartile"
	ColumnRank         = "rank"
	ColumnInstitutions = "institutions"
	ColumnObservation  = "Observation"
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatValue renders a raw cell; missing cells use the undefined marker.
func formatValue(v domain.Value) string {
	if v.IsMissing() {
		return domain.UndefinedText
	}
	return v.String()
}

// RollupTable is long format: one row per state and year, one column per
// attribute.
func RollupTable(r *analytics.StateRollup) Table {
	attrs := r.Attributes()
	t := Table{Header: append([]string{ColumnState, ColumnYear}, attrs...)}
	for _, y := range r.Years() {
		for _, s := range r.States() {
			row := []string{s, formatInt(y)}
			for _, a := range attrs {
				row = append(row, r.Mean(s, y, a).String())
			}
			t.Rows = append(t.Rows, row)
		}
	}
	return t
}

// SeriesTable is wide format for one attribute: one row per state, one
// column per year.
func SeriesTable(r *analytics.StateRollup, attr string) Table {
	years := r.Years()
	t := Table{Header: []string{ColumnState}}
	for _, y := range years {
		t.Header = append(t.Header, formatInt(y))
	}
	for _, s := range r.States() {
		row := []string{s}
		for _, y := range years {
			row = append(row, r.Mean(s, y, attr).String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CountsTable has one row per state and one column per year.
func CountsTable(c *analytics.InstitutionCounts) Table {
	years := c.Years()
	t := Table{Header: []string{ColumnState}}
	for _, y := range years {
		t.Header = append(t.Header, formatInt(y))
	}
	for _, s := range domain.States() {
		row := []string{s}
		for _, y := range years {
			row = append(row, formatInt(c.Count(s, y)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// NullCountTable has the null count per state (rows) and year (columns).
func NullCountTable(n *analytics.NullRates) Table {
	return nullTable(n, func(s string, y int) string { return formatInt(n.NullCount(s, y)) })
}

// NullRateTable has the null rate per state (rows) and year (columns).
func NullRateTable(n *analytics.NullRates) Table {
	return nullTable(n, func(s string, y int) string { return n.Rate(s, y).String() })
}

func nullTable(n *analytics.NullRates, cell func(string, int) string) Table {
	years := n.Years()
	t := Table{Header: []string{ColumnState}}
	for _, y := range years {
		t.Header = append(t.Header, formatInt(y))
	}
	for _, s := range n.States() {
		row := []string{s}
		for _, y := range years {
			row = append(row, cell(s, y))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// NationalNullTable has one row per attribute with its national null share
// per year. Attributes covering different years share the union of columns.
func NationalNullTable(rates []*analytics.NullRates) Table {
	seen := make(map[int]struct{})
	var years []int
	for _, n := range rates {
		for _, y := range n.Years() {
			if _, ok := seen[y]; !ok {
				seen[y] = struct{}{}
				years = append(years, y)
			}
		}
	}
	sort.Ints(years)

	t := Table{Header: []string{ColumnAttribute}}
	for _, y := range years {
		t.Header = append(t.Header, formatInt(y))
	}
	for _, n := range rates {
		row := []string{n.Attribute()}
		for _, y := range years {
			row = append(row, n.National(y).String())
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// CohortTable lists the labelled institutions with their carried attributes.
func CohortTable(c *analytics.Cohort) Table {
	t := Table{Header: []string{domain.ColumnInstitution, domain.ColumnState, ColumnYear, c.Attribute, ColumnQuartile}}
	t.Header = append(t.Header, c.Carry...)
	for _, r := range c.Rows {
		row := []string{r.InstitutionName, r.StateAbbreviation, formatInt(r.Year), formatFloat(r.Value), formatInt(r.Label)}
		for _, v := range r.Carry {
			row = append(row, formatValue(v))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// QuartileTable lists the boundaries and label sizes of a cohort.
func QuartileTable(c *analytics.Cohort) Table {
	counts := c.LabelCounts()
	b := c.Boundaries
	return Table{
		Header: []string{ColumnQuartile, "upper_bound", ColumnInstitutions},
		Rows: [][]string{
			{"1", formatFloat(b.Q25), formatInt(counts[0])},
			{"2", formatFloat(b.Q50), formatInt(counts[1])},
			{"3", formatFloat(b.Q75), formatInt(counts[2])},
			{"4", domain.UndefinedText, formatInt(counts[3])},
		},
	}
}

// CorrelationTable is the square matrix with attribute names on both axes.
func CorrelationTable(m *analytics.CorrelationMatrix) Table {
	t := Table{Header: append([]string{ColumnAttribute}, m.Attributes...)}
	for i, a := range m.Attributes {
		row := []string{a}
		for j := range m.Attributes {
			row = append(row, formatFloat(m.At(i, j)))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// RankingTable lists states by institution count.
func RankingTable(ranked []analytics.StateCount) Table {
	t := Table{Header: []string{ColumnRank, ColumnState, ColumnInstitutions}}
	for i, sc := range ranked {
		t.Rows = append(t.Rows, []string{formatInt(i + 1), sc.State, formatInt(sc.Count)})
	}
	return t
}

// MergeReportTable lists the years a merge skipped and why.
func MergeReportTable(r dataprocessing.MergeReport) Table {
	t := Table{Header: []string{ColumnYear, "source", "missing_columns"}}
	for _, s := range r.SkippedYears {
		t.Rows = append(t.Rows, []string{formatInt(s.Year), s.Source, strings.Join(s.Missing, " ")})
	}
	return t
}

// ObservationTable has one row per observation. label names the value
// column; empty means the series code.
func ObservationTable(s *dataprocessing.ObservationSeries, label string) Table {
	if label == "" {
		label = s.Code
	}
	t := Table{Header: []string{ColumnObservation, label}}
	for _, o := range s.Observations {
		t.Rows = append(t.Rows, []string{o.Date, formatValue(o.Value)})
	}
	return t
}
