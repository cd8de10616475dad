package analytics

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecard/internal/dataprocessing"
	apperrors "scorecard/internal/errors"
	"scorecard/pkg/contracts/domain"
)

// row builds a record from attribute/raw-value pairs.
func row(name, state string, year int, kv ...string) domain.InstitutionRecord {
	attrs := make(map[string]domain.Value, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs[kv[i]] = domain.ParseValue(kv[i+1])
	}
	return domain.NewInstitutionRecord(name, state, year, attrs)
}

func newTable(attrs []string, rows ...domain.InstitutionRecord) *dataprocessing.LongitudinalTable {
	return dataprocessing.NewLongitudinalTable(attrs, nil, rows)
}

// twoStateTable: X is present for CA in both years (10, 20), missing for the
// single NY institution in 2001 and 5 in 2002.
func twoStateTable() *dataprocessing.LongitudinalTable {
	return newTable([]string{"X"},
		row("Alpha", "CA", 2001, "X", "10"),
		row("Beta", "NY", 2001, "X", "NA"),
		row("Alpha", "CA", 2002, "X", "20"),
		row("Beta", "NY", 2002, "X", "5"),
		row("Island U", "PR", 2002, "X", "1"),
	)
}

func assertFigure(t *testing.T, want float64, got domain.Figure) {
	t.Helper()
	v, ok := got.Float64()
	require.True(t, ok, "figure is undefined")
	assert.InDelta(t, want, v, 1e-12)
}

func TestRollup_TwoStateScenario(t *testing.T) {
	r, err := Rollup(twoStateTable(), []string{"X"}, 0)
	require.NoError(t, err)

	assertFigure(t, 10, r.Mean("CA", 2001, "X"))
	assertFigure(t, 20, r.Mean("CA", 2002, "X"))
	assert.False(t, r.Mean("NY", 2001, "X").IsDefined())
	assertFigure(t, 5, r.Mean("NY", 2002, "X"))

	// states without rows are present and undefined
	assert.Len(t, r.States(), domain.StateCount)
	assert.False(t, r.Mean("TX", 2001, "X").IsDefined())
	assert.Equal(t, "NA", r.Mean("TX", 2001, "X").String())
	// territories never reach a rollup
	assert.False(t, r.Mean("PR", 2002, "X").IsDefined())

	assert.Equal(t, []int{2001, 2002}, r.Years())
	assert.Equal(t, 0, r.Year())
	assert.Equal(t, 1, r.Support("CA", 2001, "X"))
}

func TestRollup_SingleYearAndPerAttributeMissingness(t *testing.T) {
	table := newTable([]string{"A", "B"},
		row("1", "CA", 2000, "A", "1", "B", "NA"),
		row("2", "CA", 2000, "A", "3", "B", "10"),
		row("3", "CA", 2001, "A", "100", "B", "100"),
	)

	r, err := Rollup(table, []string{"A", "B"}, 2000)
	require.NoError(t, err)
	assertFigure(t, 2, r.Mean("CA", 2000, "A"))
	// the row missing B still contributes to A
	assertFigure(t, 10, r.Mean("CA", 2000, "B"))
	assert.False(t, r.Mean("CA", 2001, "A").IsDefined())
	assert.Equal(t, []int{2000}, r.Years())
}

func TestRollup_Errors(t *testing.T) {
	table := newTable([]string{"X"}, row("A", "CA", 2000, "X", "abc"))

	_, err := Rollup(table, []string{"X"}, 0)
	assert.ErrorIs(t, err, apperrors.ErrNonNumeric)
	var nn *NonNumericError
	require.ErrorAs(t, err, &nn)
	assert.Equal(t, "abc", nn.Value)

	_, err = Rollup(table, []string{"Y"}, 0)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	_, err = Rollup(table, []string{"X"}, 1999)
	assert.ErrorIs(t, err, apperrors.ErrEmptySelection)
}

func TestRollup_ForStates(t *testing.T) {
	r, err := Rollup(twoStateTable(), []string{"X"}, 0)
	require.NoError(t, err)

	view := r.ForStates([]string{"NY", "PR", "CA"})
	assert.Equal(t, []string{"NY", "CA"}, view.States())
	assertFigure(t, 5, view.Mean("NY", 2002, "X"))
	assert.Len(t, r.States(), domain.StateCount)
}

func TestCountInstitutions(t *testing.T) {
	table := twoStateTable()
	counts := CountInstitutions(table)

	assert.Equal(t, 1, counts.Count("CA", 2001))
	assert.Equal(t, 1, counts.Count("NY", 2001))
	assert.Equal(t, 0, counts.Count("TX", 2001))
	assert.Equal(t, 0, counts.Count("PR", 2002))

	for _, y := range table.Years() {
		sum := 0
		for _, s := range domain.States() {
			c := counts.Count(s, y)
			assert.GreaterOrEqual(t, c, 0)
			sum += c
		}
		assert.Equal(t, len(table.Rows(y)), sum)
		assert.Equal(t, sum, counts.Total(y))
	}
	assert.True(t, counts.ComputedFrom(table))
}

func TestNullRates_TwoStateScenario(t *testing.T) {
	table := twoStateTable()
	counts := CountInstitutions(table)

	n, err := ComputeNullRates(counts, table, "X", 0)
	require.NoError(t, err)

	assertFigure(t, 1.0, n.Rate("NY", 2001))
	assertFigure(t, 0, n.Rate("NY", 2002))
	assertFigure(t, 0, n.Rate("CA", 2001))
	assert.Equal(t, 1, n.NullCount("NY", 2001))
	assert.Equal(t, 1, n.Institutions("NY", 2001))

	// no institutions: undefined, not 0
	assert.False(t, n.Rate("TX", 2001).IsDefined())

	assertFigure(t, 0.5, n.National(2001))
	assertFigure(t, 0, n.National(2002))
	assert.False(t, n.National(1990).IsDefined())

	for _, y := range n.Years() {
		for _, s := range n.States() {
			rate := n.Rate(s, y)
			if n.Institutions(s, y) == 0 {
				assert.False(t, rate.IsDefined())
				continue
			}
			v, ok := rate.Float64()
			require.True(t, ok)
			assert.True(t, v >= 0 && v <= 1)
		}
	}
}

func TestNullRates_SuppressedCountsAsMissing(t *testing.T) {
	table := newTable([]string{"X"},
		row("A", "CA", 2000, "X", "PrivacySuppressed"),
		row("B", "CA", 2000, "X", ""),
		row("C", "CA", 2000, "X", "4"),
		row("D", "CA", 2000, "X", "text"),
	)
	counts := CountInstitutions(table)

	n, err := ComputeNullRates(counts, table, "X", 2000)
	require.NoError(t, err)
	assert.Equal(t, 2, n.NullCount("CA", 2000))
	assertFigure(t, 0.5, n.Rate("CA", 2000))
}

func TestNullRates_DenominatorMismatch(t *testing.T) {
	table := twoStateTable()
	other := twoStateTable()

	tests := []struct {
		name   string
		counts *InstitutionCounts
	}{
		{name: "counts from an identical but different table", counts: CountInstitutions(other)},
		{name: "no counts", counts: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeNullRates(tt.counts, table, "X", 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrDenominatorMismatch)
			assert.True(t, apperrors.IsFatal(err))
		})
	}
}

func TestRankStates(t *testing.T) {
	table := newTable([]string{"X"},
		row("1", "NY", 2000), row("2", "NY", 2000),
		row("3", "CA", 2000), row("4", "CA", 2000),
		row("5", "TX", 2000),
		row("6", "TX", 2001), row("7", "TX", 2001), row("8", "TX", 2001),
	)
	counts := CountInstitutions(table)

	ranked, err := RankStates(counts, 2000, 3)
	require.NoError(t, err)
	assert.Equal(t, []StateCount{{"CA", 2}, {"NY", 2}, {"TX", 1}}, ranked)

	all, err := RankStates(counts, 2000, 0)
	require.NoError(t, err)
	assert.Len(t, all, domain.StateCount)
	assert.Equal(t, StateCount{"AK", 0}, all[3])

	top, err := TopStates(counts, 2001, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"TX"}, top)

	_, err = RankStates(counts, 1999, 3)
	assert.ErrorIs(t, err, apperrors.ErrEmptySelection)
}

func TestQuartiles(t *testing.T) {
	b, err := Quartiles([]float64{8, 1, 7, 2, 6, 3, 5, 4})
	require.NoError(t, err)
	assert.Equal(t, 2.75, b.Q25)
	assert.Equal(t, 4.5, b.Q50)
	assert.Equal(t, 6.25, b.Q75)

	tests := []struct {
		value float64
		want  int
	}{
		{1, 1},
		{2.75, 1},
		{2.76, 2},
		{4.5, 2},
		{6.25, 3},
		{6.26, 4},
		{8, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, b.Label(tt.value), "value %v", tt.value)
	}

	single, err := Quartiles([]float64{5})
	require.NoError(t, err)
	assert.Equal(t, QuartileBoundaries{5, 5, 5}, single)
	assert.Equal(t, 1, single.Label(5))

	_, err = Quartiles(nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptySelection)
}

func cohortTable() *dataprocessing.LongitudinalTable {
	rows := []domain.InstitutionRecord{
		row("missing", "CA", 2011, "R", "PrivacySuppressed", "DEBT", "1"),
		row("other year", "CA", 2012, "R", "100", "DEBT", "1"),
	}
	for i, v := range []string{"5", "1", "8", "3", "2", "7", "4", "6"} {
		rows = append(rows, row("inst"+v, []string{"CA", "NY"}[i%2], 2011, "R", v, "DEBT", "NA"))
	}
	return newTable([]string{"R", "DEBT"}, rows...)
}

func TestSegment(t *testing.T) {
	c, err := Segment(cohortTable(), "R", 2011, "DEBT")
	require.NoError(t, err)

	assert.Equal(t, QuartileBoundaries{2.75, 4.5, 6.25}, c.Boundaries)
	require.Len(t, c.Rows, 8)
	assert.Equal(t, [4]int{2, 2, 2, 2}, c.LabelCounts())
	assert.Equal(t, []string{"DEBT"}, c.Carry)

	for _, r := range c.Rows {
		assert.NotEqual(t, "missing", r.InstitutionName)
		assert.Equal(t, 2011, r.Year)
		assert.Equal(t, c.Boundaries.Label(r.Value), r.Label)
		require.Len(t, r.Carry, 1)
		assert.True(t, r.Carry[0].IsMissing())
	}

	again, err := Segment(cohortTable(), "R", 2011, "DEBT")
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestSegment_Errors(t *testing.T) {
	_, err := Segment(cohortTable(), "R", 1990)
	assert.ErrorIs(t, err, apperrors.ErrEmptySelection)

	_, err = Segment(cohortTable(), "R", 2011, "NOPE")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))

	empty := newTable([]string{"R"}, row("a", "CA", 2000, "R", "NA"))
	_, err = Segment(empty, "R", 2000)
	assert.ErrorIs(t, err, apperrors.ErrEmptySelection)
}

func correlationTable() *dataprocessing.LongitudinalTable {
	return newTable([]string{"X", "Y", "Z", "W"},
		row("a", "CA", 2000, "X", "1", "Y", "2", "Z", "3", "W", "7"),
		row("b", "CA", 2000, "X", "2", "Y", "4", "Z", "1", "W", "7"),
		row("c", "NY", 2000, "X", "3", "Y", "6", "Z", "2", "W", "7"),
		row("d", "NY", 2000, "X", "4", "Y", "8", "Z", "NA", "W", "7"),
		row("e", "TX", 2000, "X", "5", "Y", "10", "Z", "5", "W", "7"),
		row("f", "TX", 2001, "X", "9", "Y", "1", "Z", "9", "W", "1"),
	)
}

func assertCorrelationShape(t *testing.T, m *CorrelationMatrix) {
	t.Helper()
	k := len(m.Attributes)
	for i := 0; i < k; i++ {
		assert.Equal(t, 1.0, m.At(i, i))
		for j := 0; j < k; j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i))
			assert.True(t, m.At(i, j) >= -1-1e-12 && m.At(i, j) <= 1+1e-12)
		}
	}
}

func TestInstitutionCorrelation_Listwise(t *testing.T) {
	attrs := []string{"X", "Y", "Z"}
	m, err := InstitutionCorrelation(correlationTable(), attrs, 2000)
	require.NoError(t, err)

	// row d is missing Z and the 2001 row is another year
	assert.Equal(t, 4, m.Observations)
	assert.Equal(t, GranularityInstitution, m.Granularity)
	assertCorrelationShape(t, m)

	xy, ok := m.Coefficient("X", "Y")
	require.True(t, ok)
	assert.InDelta(t, 1.0, xy, 1e-12)
	_, ok = m.Coefficient("X", "Q")
	assert.False(t, ok)

	// pairwise on X,Y alone would use all five rows
	pair, err := InstitutionCorrelation(correlationTable(), []string{"X", "Y"}, 2000)
	require.NoError(t, err)
	assert.Equal(t, 5, pair.Observations)
	assert.LessOrEqual(t, m.Observations, pair.Observations)

	again, err := InstitutionCorrelation(correlationTable(), attrs, 2000)
	require.NoError(t, err)
	for i := range attrs {
		for j := range attrs {
			assert.Equal(t, m.At(i, j), again.At(i, j))
		}
	}
}

func TestStateCorrelation(t *testing.T) {
	m, err := StateCorrelation(correlationTable(), []string{"X", "Y", "Z"}, 2000)
	require.NoError(t, err)

	// CA, NY and TX have every mean defined; the other 48 states are undefined
	assert.Equal(t, 3, m.Observations)
	assert.Equal(t, GranularityState, m.Granularity)
	assertCorrelationShape(t, m)
}

func TestCorrelate_DegenerateColumn(t *testing.T) {
	report, err := Correlate(correlationTable(), []string{"X", "W"}, 2000)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDegenerateColumn)
	assert.False(t, apperrors.IsFatal(err))
	assert.Nil(t, report.Institution)
	assert.Nil(t, report.State)

	var dc *DegenerateColumnError
	require.True(t, errors.As(err, &dc))
	assert.Equal(t, "W", dc.Attribute)
}

func TestCorrelate_StateOnlyDegenerate(t *testing.T) {
	// institution values vary but every state mean of W is 2
	table := newTable([]string{"X", "W"},
		row("a", "CA", 2000, "X", "1", "W", "1"),
		row("b", "CA", 2000, "X", "2", "W", "3"),
		row("c", "NY", 2000, "X", "3", "W", "2"),
		row("d", "TX", 2000, "X", "4", "W", "2"),
	)

	report, err := Correlate(table, []string{"X", "W"}, 2000)
	require.Error(t, err)
	require.NotNil(t, report.Institution)
	assert.Nil(t, report.State)
	assertCorrelationShape(t, report.Institution)

	var dc *DegenerateColumnError
	require.ErrorAs(t, err, &dc)
	assert.Equal(t, GranularityState, dc.Granularity)
	assert.Equal(t, "W", dc.Attribute)
}

func TestStateCorrelation_ConstantAfterAveraging(t *testing.T) {
	// C is 0.1 everywhere; the state means of C differ only by rounding
	// because the states hold different numbers of rows
	counts := map[string]int{"CA": 3, "NY": 1, "TX": 10, "WA": 7}
	var rows []domain.InstitutionRecord
	i := 0
	for _, st := range []string{"CA", "NY", "TX", "WA"} {
		for k := 0; k < counts[st]; k++ {
			i++
			rows = append(rows, row(fmt.Sprintf("u%d", i), st, 2000,
				"C", "0.1", "Y", strconv.Itoa(i*i%17)))
		}
	}
	table := newTable([]string{"C", "Y"}, rows...)

	_, err := StateCorrelation(table, []string{"C", "Y"}, 2000)
	var dc *DegenerateColumnError
	require.ErrorAs(t, err, &dc)
	assert.Equal(t, "C", dc.Attribute)
	assert.Equal(t, GranularityState, dc.Granularity)

	_, err = InstitutionCorrelation(table, []string{"C", "Y"}, 2000)
	assert.ErrorIs(t, err, apperrors.ErrDegenerateColumn)
}

func TestIsConstant(t *testing.T) {
	tests := []struct {
		name string
		col  []float64
		want bool
	}{
		{name: "identical", col: []float64{7, 7, 7}, want: true},
		{name: "ulp apart", col: []float64{0.1, 0.10000000000000002, 0.1}, want: true},
		{name: "large magnitude ulp apart", col: []float64{1e12, 1e12 + 1e-4}, want: true},
		{name: "small real spread", col: []float64{0.1, 0.1001}, want: false},
		{name: "varying", col: []float64{1, 2, 3}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isConstant(tt.col))
		})
	}
}

func TestCorrelate_InvalidInput(t *testing.T) {
	table := correlationTable()

	tests := []struct {
		name  string
		attrs []string
		year  int
		is    error
		typ   apperrors.ErrorType
	}{
		{name: "single attribute", attrs: []string{"X"}, year: 2000, typ: apperrors.ErrTypeValidation},
		{name: "duplicate attribute", attrs: []string{"X", "X"}, year: 2000, typ: apperrors.ErrTypeValidation},
		{name: "unknown attribute", attrs: []string{"X", "Q"}, year: 2000, typ: apperrors.ErrTypeValidation},
		{name: "year not loaded", attrs: []string{"X", "Y"}, year: 1980, is: apperrors.ErrEmptySelection},
		{name: "one observation", attrs: []string{"X", "Y"}, year: 2001, is: apperrors.ErrEmptySelection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InstitutionCorrelation(table, tt.attrs, tt.year)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			} else {
				assert.True(t, apperrors.IsType(err, tt.typ))
			}
		})
	}
}
