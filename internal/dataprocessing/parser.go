package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "scorecard/internal/errors"
)

const utf8BOM = "\uFEFF"

// RawTable is an extract as read from disk: a header row and string cells.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// ColumnIndex maps each header name to its position. Matching is exact;
// when a name repeats, the first occurrence wins.
func (t *RawTable) ColumnIndex() map[string]int {
	idx := make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// ReadTable reads a .csv or .xlsx extract. For workbooks, sheet selects the
// worksheet; empty means the first one.
func ReadTable(path, sheet string) (*RawTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx", ".xlsm":
		return readWorkbook(path, sheet)
	default:
		return nil, apperrors.NewParsingError(fmt.Sprintf("unsupported extract format %q", filepath.Ext(path)), nil).
			WithContext("path", path)
	}
}

func readCSV(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, apperrors.NewParsingError("extract has no header row", nil).WithContext("path", path)
	}
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read header", err).WithContext("path", path)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewParsingError("failed to read row", err).WithContext("path", path)
		}
		rows = append(rows, rec)
	}

	return &RawTable{Header: header, Rows: rows}, nil
}

func readWorkbook(path, sheet string) (*RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.NewParsingError("workbook has no sheets", nil).WithContext("path", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).WithContext("path", path)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("extract has no header row", nil).WithContext("path", path)
	}

	return &RawTable{Header: rows[0], Rows: rows[1:]}, nil
}
