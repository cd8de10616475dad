package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"scorecard/internal/errors"
)

// extractExtensions are the file types the record loader can parse.
var extractExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
	".xlsm": true,
}

// FileValidator checks input and output locations before a run touches them
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputDirectory validates that the extracts directory exists and
// holds at least one file matching pattern. An empty pattern only checks the
// directory.
func (v *FileValidator) ValidateInputDirectory(dir string, pattern string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		v.logger.Error("Input directory does not exist",
			slog.String("directory", dir))
		return errors.NewNotFoundError(fmt.Sprintf("input directory %s", dir))
	}
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to stat directory %s", dir), err)
	}
	if !info.IsDir() {
		v.logger.Error("Input path is not a directory",
			slog.String("path", dir))
		return errors.NewAppValidationError(fmt.Sprintf("%s is not a directory", dir))
	}

	if pattern == "" {
		return nil
	}

	n, err := v.CountFiles(dir, pattern)
	if err != nil {
		return err
	}
	if n == 0 {
		v.logger.Error("No extracts matching pattern",
			slog.String("directory", dir),
			slog.String("pattern", pattern))
		return errors.NewNotFoundError(fmt.Sprintf("extracts matching %s in %s", pattern, dir))
	}

	v.logger.Info("Input directory validated",
		slog.String("directory", dir),
		slog.Int("files_found", n),
		slog.String("pattern", pattern))
	return nil
}

// ValidateOutputDirectory ensures output directory exists or can be created,
// and is writable.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return errors.NewStorageError(fmt.Sprintf("output directory %s is not writable", dir), err)
	}
	file.Close()
	os.Remove(testFile)

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return errors.NewNotFoundError(fmt.Sprintf("file %s", path))
	}
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to stat file %s", path), err)
	}
	if info.IsDir() {
		return errors.NewAppValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("file %s is not readable", path), err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateExtract checks that path is a readable CSV or Excel extract and
// not an Excel lock file.
func (v *FileValidator) ValidateExtract(path string) error {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") {
		return errors.NewAppValidationError(fmt.Sprintf("%s is a temporary Excel file", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !extractExtensions[ext] {
		v.logger.Error("Unsupported extract format",
			slog.String("file", path),
			slog.String("extension", ext))
		return errors.NewAppValidationError(fmt.Sprintf("%s is not a csv or xlsx extract", path)).
			WithContext("extension", ext)
	}

	return v.ValidateFile(path)
}

// CountFiles counts regular files matching a pattern in a directory
func (v *FileValidator) CountFiles(dir string, pattern string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0, errors.NewAppValidationError(fmt.Sprintf("bad pattern %q: %v", pattern, err))
	}

	count := 0
	for _, match := range matches {
		info, err := os.Stat(match)
		if err == nil && !info.IsDir() {
			count++
		}
	}
	return count, nil
}
