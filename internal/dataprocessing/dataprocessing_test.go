package dataprocessing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "scorecard/internal/errors"
	"scorecard/pkg/contracts/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return path
}

func TestNewLoadRequest(t *testing.T) {
	caller := []string{"X", "A", "X", "", "INSTNM", "STABBR", "B"}
	req := NewLoadRequest(caller...)

	assert.Equal(t, []string{"A", "B", "X"}, req.Attributes())
	assert.Equal(t, 3, req.Len())
	assert.True(t, req.Contains("B"))
	assert.False(t, req.Contains("INSTNM"))

	// neither the caller's slice nor the returned copy alias the request
	caller[1] = "Z"
	got := req.Attributes()
	got[0] = "mutated"
	assert.Equal(t, []string{"A", "B", "X"}, req.Attributes())
}

func TestAssignYears(t *testing.T) {
	srcs := AssignYears([]string{"/x/a.csv", "/x/b.csv", "/x/c.csv"}, domain.BaseYear)
	require.Len(t, srcs, 3)
	assert.Equal(t, 1996, srcs[0].Year)
	assert.Equal(t, 1998, srcs[2].Year)
	assert.Equal(t, "c.csv", srcs[2].Name())
}

func TestReadTable_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "x.csv",
		"\uFEFFINSTNM,STABBR,X",
		`"Alpha, College",CA,10`,
		"Beta,NY",
	)

	raw, err := ReadTable(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"INSTNM", "STABBR", "X"}, raw.Header)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "Alpha, College", raw.Rows[0][0])
	assert.Len(t, raw.Rows[1], 2)
	assert.Equal(t, 0, raw.ColumnIndex()["INSTNM"])
}

func TestReadTable_Errors(t *testing.T) {
	dir := t.TempDir()

	empty := writeCSV(t, dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err := ReadTable(empty, "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	_, err = ReadTable(filepath.Join(dir, "x.parquet"), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	_, err = ReadTable(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}

func TestReadTable_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MERGED2001.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"INSTNM", "STABBR", "X"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Alpha", "CA", 12.5}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	raw, err := ReadTable(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"INSTNM", "STABBR", "X"}, raw.Header)
	require.Len(t, raw.Rows, 1)
	assert.Equal(t, "12.5", raw.Rows[0][2])

	_, err = ReadTable(path, "NoSuchSheet")
	assert.Error(t, err)
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "y2000.csv",
		"INSTNM,STABBR,X,Y,EXTRA",
		"Alpha,CA,10,PrivacySuppressed,1",
		"Beta,NY,NULL,text,2",
		"Gamma,PR,3",
	)

	loader := NewLoader(quietLogger(), 2)
	ext, err := loader.Load(context.Background(), Source{Year: 2000, Path: path}, NewLoadRequest("X", "Y"))
	require.NoError(t, err)

	assert.Equal(t, 2000, ext.Year)
	assert.Equal(t, "y2000.csv", ext.Source)
	assert.Equal(t, []string{"X", "Y"}, ext.Attributes)
	require.Len(t, ext.Records, 3)

	alpha := ext.Records[0]
	assert.Equal(t, "Alpha", alpha.InstitutionName)
	assert.Equal(t, "CA", alpha.StateAbbreviation)
	assert.Equal(t, 2000, alpha.Year)
	assert.Equal(t, 2, alpha.Attributes())
	assert.False(t, alpha.HasAttribute("EXTRA"))
	x, ok := alpha.Value("X").Float()
	require.True(t, ok)
	assert.Equal(t, 10.0, x)
	assert.True(t, alpha.Value("Y").IsMissing())
	assert.Equal(t, domain.MissingPrivacySuppressed, alpha.Value("Y").Reason())

	beta := ext.Records[1]
	assert.Equal(t, domain.MissingAbsent, beta.Value("X").Reason())
	assert.Equal(t, domain.KindText, beta.Value("Y").Kind())

	// short rows read as missing
	assert.True(t, ext.Records[2].Value("Y").IsMissing())
}

func TestLoader_Load_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "y2001.csv",
		"INSTNM,stabbr,X",
		"Alpha,CA,1",
	)

	_, err := NewLoader(quietLogger(), 1).Load(context.Background(), Source{Year: 2001, Path: path}, NewLoadRequest("X", "Z"))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)

	var sm *SchemaMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, 2001, sm.Year)
	// header matching is exact: "stabbr" does not satisfy STABBR
	assert.Equal(t, []string{"STABBR", "Z"}, sm.Missing)
}

func TestLoader_LoadAll(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, body := range []string{"INSTNM,STABBR,X\nA,CA,1", "INSTNM,STABBR\nB,CA", "INSTNM,STABBR,X\nC,NY,3\nD,NY,4"} {
		paths = append(paths, writeCSV(t, dir, string(rune('a'+i))+".csv", body))
	}
	sources := AssignYears(paths, 2010)

	results, err := NewLoader(quietLogger(), 3).LoadAll(context.Background(), sources, NewLoadRequest("X"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, res := range results {
		assert.Equal(t, sources[i], res.Source)
	}
	assert.NotNil(t, results[0].Extract)
	assert.ErrorIs(t, results[1].Err, apperrors.ErrSchemaMismatch)
	assert.Nil(t, results[1].Extract)
	assert.Len(t, results[2].Extract.Records, 2)
}

func TestLoader_LoadAll_FatalError(t *testing.T) {
	dir := t.TempDir()
	good := writeCSV(t, dir, "good.csv", "INSTNM,STABBR,X", "A,CA,1")
	sources := []Source{
		{Year: 2000, Path: good},
		{Year: 2001, Path: filepath.Join(dir, "gone.csv")},
	}

	_, err := NewLoader(quietLogger(), 2).LoadAll(context.Background(), sources, NewLoadRequest("X"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "gone.csv")
}

func TestLoader_Load_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLoader(nil, 0).Load(ctx, Source{Year: 2000, Path: "x.csv"}, NewLoadRequest("X"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func extract(year int, source string, recs ...domain.InstitutionRecord) LoadResult {
	return LoadResult{
		Source:  Source{Year: year, Path: source},
		Extract: &YearExtract{Year: year, Source: source, Attributes: []string{"X"}, Records: recs},
	}
}

func rec(name, state string, year int, x string) domain.InstitutionRecord {
	return domain.NewInstitutionRecord(name, state, year, map[string]domain.Value{"X": domain.ParseValue(x)})
}

func TestMerger_Merge(t *testing.T) {
	results := []LoadResult{
		extract(2002, "c.csv", rec("C", "CA", 2002, "3"), rec("Guam U", "GU", 2002, "1")),
		extract(2000, "a.csv", rec("A", "CA", 2000, "1"), rec("B", "ca", 2000, "1"), rec("S", "NY", 2000, "PrivacySuppressed")),
		{Source: Source{Year: 2001, Path: "b.csv"}, Err: &SchemaMismatchError{Year: 2001, Source: "b.csv", Missing: []string{"X"}}},
	}

	table, report, err := NewMerger(false, quietLogger()).Merge(results)
	require.NoError(t, err)

	assert.Equal(t, []int{2000, 2002}, table.Years())
	assert.Equal(t, []int{2000, 2002}, report.Years)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 2, report.DroppedRows)
	assert.Equal(t, map[string]int{"GU": 1, "ca": 1}, report.DroppedCodes)
	assert.Equal(t, 1, report.Suppressed)
	require.Len(t, report.SkippedYears, 1)
	assert.Equal(t, SkippedYear{Year: 2001, Source: "b.csv", Missing: []string{"X"}}, report.SkippedYears[0])

	// rows are in year order regardless of input order
	var names []string
	table.Each(func(r domain.InstitutionRecord) bool {
		names = append(names, r.InstitutionName)
		return true
	})
	assert.Equal(t, []string{"A", "S", "C"}, names)
	assert.Len(t, table.Rows(2002), 1)
	assert.Len(t, table.Rows(0), 3)
	assert.True(t, table.HasYear(2000))
	assert.False(t, table.HasYear(2001))
	assert.Equal(t, []string{"X"}, table.Attributes())
}

func TestMerger_Merge_Strict(t *testing.T) {
	results := []LoadResult{
		extract(2000, "a.csv", rec("A", "CA", 2000, "1")),
		{Source: Source{Year: 2001, Path: "b.csv"}, Err: &SchemaMismatchError{Year: 2001, Source: "b.csv", Missing: []string{"X"}}},
	}

	_, _, err := NewMerger(true, quietLogger()).Merge(results)
	assert.ErrorIs(t, err, apperrors.ErrSchemaMismatch)
}

func TestMerger_Merge_AmbiguousYear(t *testing.T) {
	results := []LoadResult{
		extract(2000, "b.csv", rec("A", "CA", 2000, "1")),
		extract(2000, "a.csv", rec("B", "CA", 2000, "2")),
	}

	_, _, err := NewMerger(false, quietLogger()).Merge(results)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAmbiguousYearOrdering)
	assert.True(t, apperrors.IsFatal(err))

	var amb *AmbiguousYearOrderingError
	require.ErrorAs(t, err, &amb)
	assert.Equal(t, 2000, amb.Year)
	assert.Equal(t, []string{"a.csv", "b.csv"}, amb.Sources)
}

func TestMerger_Merge_MissingYear(t *testing.T) {
	_, _, err := NewMerger(false, nil).Merge([]LoadResult{extract(0, "a.csv")})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeOrdering))
}

func TestMerger_Merge_Deterministic(t *testing.T) {
	a := extract(2000, "a.csv", rec("A", "CA", 2000, "1"))
	b := extract(2001, "b.csv", rec("B", "NY", 2001, "2"))

	t1, _, err := NewMerger(false, quietLogger()).Merge([]LoadResult{a, b})
	require.NoError(t, err)
	t2, _, err := NewMerger(false, quietLogger()).Merge([]LoadResult{b, a})
	require.NoError(t, err)
	assert.Equal(t, t1.Rows(0), t2.Rows(0))
}

func TestNewLongitudinalTable_FiltersStates(t *testing.T) {
	table := NewLongitudinalTable([]string{"X"}, []int{1999}, []domain.InstitutionRecord{
		rec("A", "DC", 2000, "1"),
		rec("B", "PR", 2000, "1"),
		rec("C", " CA", 2000, "1"),
	})
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []int{1999, 2000}, table.Years())
}

func TestReadObservations_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "FGCCSAQ027S.xlsx")
	f := excelize.NewFile()
	sheet := "FRED Graph"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	rows := [][]interface{}{
		{"FRED Graph Observations"},
		{"Federal Reserve Economic Data"},
		{"Link: https://fred.stlouisfed.org"},
		{},
		{"FGCCSAQ027S", "Student loans, Level, Millions of Dollars, Quarterly"},
		{"observation_date", "FGCCSAQ027S"},
		{"2006-01-01", 480.5},
		{"2006-04-01", "."},
		{"2006-07-01", 512},
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	series, err := ReadObservations(path, sheet, "")
	require.NoError(t, err)
	assert.Equal(t, "FGCCSAQ027S", series.Code)
	require.Len(t, series.Observations, 3)

	first := series.Observations[0]
	assert.Equal(t, "2006-01-01", first.Date)
	v, ok := first.Value.Float()
	require.True(t, ok)
	assert.Equal(t, 480.5, v)

	assert.True(t, series.Observations[1].Value.IsMissing())
	v, ok = series.Observations[2].Value.Float()
	require.True(t, ok)
	assert.Equal(t, 512.0, v)
}

func TestReadObservations_Errors(t *testing.T) {
	dir := t.TempDir()

	noHeader := writeCSV(t, dir, "noheader.csv", "DATE,VALUE", "2006-01-01,1")
	_, err := ReadObservations(noHeader, "", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	oneColumn := writeCSV(t, dir, "onecol.csv", "observation_date", "2006-01-01")
	_, err = ReadObservations(oneColumn, "", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))

	custom := writeCSV(t, dir, "custom.csv", "preamble", "DATE,VALUE", "2006-01-01,7", ",", "trailer,1")
	series, err := ReadObservations(custom, "", "DATE")
	require.NoError(t, err)
	assert.Equal(t, "VALUE", series.Code)
	assert.Len(t, series.Observations, 1)
}
