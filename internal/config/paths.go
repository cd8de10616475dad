package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the resolved application paths.
// This is the single source of truth for file locations during a run.
type Paths struct {
	BaseDir      string
	ExtractsDir  string
	ReportsDir   string
	LogsDir      string
	ManifestFile string
	PlanFile     string
	LogFile      string
	MetricsFile  string
}

// GetPaths resolves every configured path against the base directory.
func (c *Config) GetPaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		base = "."
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:      base,
		ExtractsDir:  resolve(c.Paths.ExtractsDir),
		ReportsDir:   resolve(c.Paths.ReportsDir),
		LogsDir:      resolve(c.Paths.LogsDir),
		ManifestFile: resolve(c.Paths.Manifest),
		PlanFile:     resolve(c.Paths.Plan),
		LogFile:      resolve(c.Logging.FilePath),
		MetricsFile:  resolve(c.Telemetry.MetricsFile),
	}, nil
}

// EnsureDirectories creates the output directories if they don't exist.
// The extracts directory is input and is never created.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetReportPath returns the path for a report file
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("extracts", p.ExtractsDir),
			slog.String("reports", p.ReportsDir),
			slog.String("logs", p.LogsDir),
		),
		slog.Group("files",
			slog.String("manifest", p.ManifestFile),
			slog.String("plan", p.PlanFile),
			slog.String("metrics", p.MetricsFile),
			slog.Bool("plan_exists", FileExists(p.PlanFile)),
		))
}
