package exporter

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	apperrors "scorecard/internal/errors"
)

// maxSheetName is Excel's limit on worksheet names.
const maxSheetName = 31

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// WorkbookStore writes every table as one sheet of a single .xlsx file.
type WorkbookStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewWorkbookStore creates a store backed by the workbook at path. The file
// is created on first write.
func NewWorkbookStore(path string, logger *slog.Logger) *WorkbookStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookStore{path: path, logger: logger}
}

// SheetName maps a key to its worksheet name. Keys longer than Excel allows
// are truncated and suffixed with a hash of the full key.
func SheetName(key string) string {
	if len(key) <= maxSheetName {
		return key
	}
	return hashedSheetName(key)
}

func hashedSheetName(key string) string {
	h := fnv.New32a()
	h.Write([]byte(key))
	suffix := fmt.Sprintf("~%08x", h.Sum32())
	if len(key) > maxSheetName-len(suffix) {
		key = key[:maxSheetName-len(suffix)]
	}
	return key + suffix
}

// sheetFor returns the sheet that holds key in f and whether it exists.
// Excel compares sheet names without case, so a key whose plain name only
// differs in case from another sheet lives under its hashed name.
func sheetFor(f *excelize.File, key string) (string, bool) {
	plain, hashed := SheetName(key), hashedSheetName(key)
	hashedExists, clash := false, false
	for _, name := range f.GetSheetList() {
		switch {
		case name == plain:
			return plain, true
		case name == hashed:
			hashedExists = true
		case strings.EqualFold(name, plain):
			clash = true
		}
	}
	if hashedExists {
		return hashed, true
	}
	if clash {
		return hashed, false
	}
	return plain, false
}

// Put writes the table to its sheet, replacing the sheet if it exists.
func (s *WorkbookStore) Put(ctx context.Context, key string, table Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, fresh, err := s.open()
	if err != nil {
		return apperrors.NewStorageError("failed to open workbook", err).WithContext("path", s.path)
	}
	defer f.Close()

	sheet, _ := sheetFor(f, key)
	if err := writeSheet(f, sheet, table); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write sheet %s", sheet), err)
	}

	// a new workbook starts with an empty default sheet
	if fresh && sheet != defaultSheet {
		if err := f.DeleteSheet(defaultSheet); err != nil {
			return apperrors.NewStorageError("failed to remove default sheet", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create directory", err)
	}
	if err := f.SaveAs(s.path); err != nil {
		return apperrors.NewStorageError("failed to save workbook", err).WithContext("path", s.path)
	}

	s.logger.InfoContext(ctx, "sheet written",
		slog.String("key", key),
		slog.String("sheet", sheet),
		slog.String("path", s.path),
		slog.Int("rows", len(table.Rows)))
	return nil
}

// Get reads the sheet of key. Cells come back exactly as written.
func (s *WorkbookStore) Get(ctx context.Context, key string) (Table, error) {
	if err := ValidateKey(key); err != nil {
		return Table{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, ErrTableNotFound
	}
	if err != nil {
		return Table{}, apperrors.NewStorageError("failed to open workbook", err).WithContext("path", s.path)
	}
	defer f.Close()

	sheet, ok := sheetFor(f, key)
	if !ok {
		return Table{}, ErrTableNotFound
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return Table{}, apperrors.NewStorageError(fmt.Sprintf("failed to read sheet %s", sheet), err)
	}

	var table Table
	if len(rows) > 0 {
		table.Header = rows[0]
		table.Rows = rows[1:]
	}
	return table, nil
}

// Sheets lists the workbook's sheet names in order.
func (s *WorkbookStore) Sheets() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

func (s *WorkbookStore) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return excelize.NewFile(), true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, false, nil
}

// placeholderSheet keeps a workbook non-empty while its only sheet is replaced.
const placeholderSheet = "_replacing"

func writeSheet(f *excelize.File, sheet string, table Table) error {
	if idx, err := f.GetSheetIndex(sheet); err == nil && idx >= 0 {
		// excelize refuses to delete the last sheet of a workbook
		if f.SheetCount == 1 {
			if _, err := f.NewSheet(placeholderSheet); err != nil {
				return err
			}
			defer f.DeleteSheet(placeholderSheet)
		}
		if err := f.DeleteSheet(sheet); err != nil {
			return err
		}
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(table.Header))
	for i, h := range table.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	return nil
}

// cellValue stores numeric text as a number so spreadsheets can chart it.
func cellValue(v string) interface{} {
	if f, err := strconv.ParseFloat(v, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == v {
		return f
	}
	return v
}
