package exporter

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "scorecard/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVStore writes each table to <dir>/<key>.csv.
type CSVStore struct {
	dir    string
	logger *slog.Logger
}

// NewCSVStore creates a store rooted at dir. The directory is created on
// first write.
func NewCSVStore(dir string, logger *slog.Logger) *CSVStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVStore{dir: dir, logger: logger}
}

// Path returns the file a key is stored in.
func (s *CSVStore) Path(key string) string {
	return filepath.Join(s.dir, key+".csv")
}

// Put writes the table, replacing any previous file for key.
func (s *CSVStore) Put(ctx context.Context, key string, table Table) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	path := s.Path(key)
	if err := writeCSV(path, table); err != nil {
		return apperrors.NewStorageError(fmt.Sprintf("failed to write table %s", key), err).
			WithContext("path", path)
	}

	s.logger.InfoContext(ctx, "table written",
		slog.String("key", key),
		slog.String("path", path),
		slog.Int("rows", len(table.Rows)))
	return nil
}

// Get reads a table back.
func (s *CSVStore) Get(ctx context.Context, key string) (Table, error) {
	if err := ValidateKey(key); err != nil {
		return Table{}, err
	}
	f, err := os.Open(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Table{}, ErrTableNotFound
	}
	if err != nil {
		return Table{}, apperrors.NewStorageError(fmt.Sprintf("failed to open table %s", key), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var table Table
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, apperrors.NewStorageError(fmt.Sprintf("failed to read table %s", key), err)
		}
		if table.Header == nil {
			rec[0] = strings.TrimPrefix(rec[0], string(utf8BOM))
			table.Header = rec
			continue
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// writeCSV writes a BOM-prefixed CSV file, truncating any existing one
func writeCSV(path string, table Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range table.Rows {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}
