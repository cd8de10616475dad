package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"scorecard/internal/dataprocessing"
	apperrors "scorecard/internal/errors"
)

// CorrelationMatrix is a Pearson correlation matrix over Attributes.
// It is symmetric with a unit diagonal.
type CorrelationMatrix struct {
	Granularity  Granularity
	Attributes   []string
	Observations int
	values       *mat.SymDense
}

// At returns the coefficient between the i-th and j-th attributes.
func (m *CorrelationMatrix) At(i, j int) float64 { return m.values.At(i, j) }

// Coefficient returns the coefficient between two named attributes.
func (m *CorrelationMatrix) Coefficient(a, b string) (float64, bool) {
	i, j := indexOf(m.Attributes, a), indexOf(m.Attributes, b)
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.values.At(i, j), true
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// CorrelationReport carries both matrices of one request. A matrix that
// could not be built is nil and its error is in Err.
type CorrelationReport struct {
	Year        int
	Attributes  []string
	Institution *CorrelationMatrix
	State       *CorrelationMatrix
	Err         error
}

// Correlate builds the institution-level and state-level matrices of attrs
// for year. The returned error joins the failures of either matrix; the
// report holds whichever matrix succeeded.
func Correlate(table *dataprocessing.LongitudinalTable, attrs []string, year int) (*CorrelationReport, error) {
	report := &CorrelationReport{Year: year, Attributes: append([]string(nil), attrs...)}

	inst, instErr := InstitutionCorrelation(table, attrs, year)
	state, stateErr := StateCorrelation(table, attrs, year)
	report.Institution = inst
	report.State = state
	report.Err = errors.Join(instErr, stateErr)
	return report, report.Err
}

// InstitutionCorrelation correlates attrs over the institutions of year that
// report every one of them (listwise deletion).
func InstitutionCorrelation(table *dataprocessing.LongitudinalTable, attrs []string, year int) (*CorrelationMatrix, error) {
	if err := checkCorrelationInput(table, attrs, year); err != nil {
		return nil, err
	}

	var data []float64
	n := 0
	for _, rec := range table.Rows(year) {
		row := make([]float64, len(attrs))
		complete := true
		for i, a := range attrs {
			v, ok, err := numeric(rec, a)
			if err != nil {
				return nil, err
			}
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if complete {
			data = append(data, row...)
			n++
		}
	}

	return correlationMatrix(GranularityInstitution, attrs, n, data, year)
}

// StateCorrelation correlates the per-state means of attrs in year. States
// with an undefined mean for any attribute are left out.
func StateCorrelation(table *dataprocessing.LongitudinalTable, attrs []string, year int) (*CorrelationMatrix, error) {
	if err := checkCorrelationInput(table, attrs, year); err != nil {
		return nil, err
	}

	rollup, err := Rollup(table, attrs, year)
	if err != nil {
		return nil, err
	}

	var data []float64
	n := 0
	for _, s := range rollup.States() {
		row := make([]float64, len(attrs))
		complete := true
		for i, a := range attrs {
			v, ok := rollup.Mean(s, year, a).Float64()
			if !ok {
				complete = false
				break
			}
			row[i] = v
		}
		if complete {
			data = append(data, row...)
			n++
		}
	}

	return correlationMatrix(GranularityState, attrs, n, data, year)
}

func checkCorrelationInput(table *dataprocessing.LongitudinalTable, attrs []string, year int) error {
	if len(attrs) < 2 {
		return apperrors.NewAppValidationError("correlation needs at least two attributes")
	}
	seen := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		if _, dup := seen[a]; dup {
			return apperrors.NewAppValidationError(fmt.Sprintf("attribute %q requested twice", a))
		}
		seen[a] = struct{}{}
		if !table.HasAttribute(a) {
			return unknownAttribute(a)
		}
	}
	if !table.HasYear(year) {
		return &EmptySelectionError{What: "correlation", Year: year, Reason: "year was not loaded"}
	}
	return nil
}

// constantTolerance is the relative spread below which a column counts as
// constant. Means of identical values can differ in the last ulp depending on
// how many values were summed.
const constantTolerance = 1e-12

func isConstant(col []float64) bool {
	lo, hi := floats.Min(col), floats.Max(col)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return true
	}
	scale := math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
	return hi-lo <= constantTolerance*scale
}

// correlationMatrix computes Pearson coefficients over n observations stored
// row-major in data.
func correlationMatrix(g Granularity, attrs []string, n int, data []float64, year int) (*CorrelationMatrix, error) {
	if n < 2 {
		return nil, &EmptySelectionError{
			What:   fmt.Sprintf("%s correlation", g),
			Year:   year,
			Reason: fmt.Sprintf("%d complete observations, need at least 2", n),
		}
	}

	x := mat.NewDense(n, len(attrs), data)
	for j, a := range attrs {
		if isConstant(mat.Col(nil, j, x)) {
			return nil, &DegenerateColumnError{Attribute: a, Granularity: g}
		}
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, x, nil)

	// rounding can leave the diagonal a few ulps off 1
	for i := range attrs {
		corr.SetSym(i, i, 1)
	}
	for i := range attrs {
		for j := i + 1; j < len(attrs); j++ {
			if math.IsNaN(corr.At(i, j)) {
				return nil, &DegenerateColumnError{Attribute: attrs[j], Granularity: g}
			}
		}
	}

	return &CorrelationMatrix{
		Granularity:  g,
		Attributes:   append([]string(nil), attrs...),
		Observations: n,
		values:       &corr,
	}, nil
}
