package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		env         map[string]string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no file and no env",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, 1996, cfg.Pipeline.BaseYear)
				assert.False(t, cfg.Pipeline.Strict)
				assert.Equal(t, 4, cfg.Pipeline.LoadConcurrency)
				assert.Equal(t, "xlsx", cfg.Pipeline.Store)
				assert.Equal(t, "*.csv", cfg.Pipeline.ExtractGlob)
				assert.Equal(t, "data/extracts", cfg.Paths.ExtractsDir)
				assert.True(t, cfg.Telemetry.EnableMetrics)
				assert.False(t, cfg.Telemetry.EnableTracing)
			},
		},
		{
			name: "file overrides defaults",
			fileContent: `
pipeline:
  strict: true
  store: csv
  load_concurrency: 2
paths:
  extracts_dir: raw
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Pipeline.Strict)
				assert.Equal(t, "csv", cfg.Pipeline.Store)
				assert.Equal(t, 2, cfg.Pipeline.LoadConcurrency)
				assert.Equal(t, "raw", cfg.Paths.ExtractsDir)
				// untouched sections keep defaults
				assert.Equal(t, 1996, cfg.Pipeline.BaseYear)
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
		{
			name: "env wins over file",
			fileContent: `
pipeline:
  store: csv
`,
			env: map[string]string{
				"SCORECARD_PIPELINE_STORE": "memory",
				"SCORECARD_LOGGING_LEVEL":  "debug",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "memory", cfg.Pipeline.Store)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:        "invalid store rejected",
			fileContent: "pipeline:\n  store: parquet\n",
			wantErr:     true,
		},
		{
			name:        "invalid year pattern rejected",
			fileContent: "pipeline:\n  year_pattern: \"([0-9\"\n",
			wantErr:     true,
		},
		{
			name:        "zero concurrency rejected",
			fileContent: "pipeline:\n  load_concurrency: 0\n",
			wantErr:     true,
		},
		{
			name:        "file output without path rejected",
			fileContent: "logging:\n  output: file\n  file_path: \"\"\n",
			wantErr:     true,
		},
		{
			name:        "ordered extract list",
			fileContent: "paths:\n  extracts: [old.csv, new.csv]\npipeline:\n  base_year: 2005\n  sheet: data\n",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"old.csv", "new.csv"}, cfg.Paths.Extracts)
				assert.Equal(t, 2005, cfg.Pipeline.BaseYear)
				assert.Equal(t, "data", cfg.Pipeline.Sheet)
			},
		},
		{
			name:        "manifest and extract list rejected together",
			fileContent: "paths:\n  manifest: m.yaml\n  extracts: [a.csv]\n",
			wantErr:     true,
		},
		{
			name:        "malformed yaml rejected",
			fileContent: "pipeline: [\n",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.fileContent != "" {
				path = filepath.Join(t.TempDir(), "scorecard.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.fileContent), 0644))
			}

			cfg, err := LoadFile(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg)
		})
	}
}

func TestLoadFile_BaseDirFollowsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scorecard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("paths:\n  extracts_dir: raw\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	paths, err := cfg.GetPaths()
	require.NoError(t, err)

	absDir, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, absDir, paths.BaseDir)
	assert.Equal(t, filepath.Join(absDir, "raw"), paths.ExtractsDir)
	assert.Equal(t, filepath.Join(absDir, "data", "reports"), paths.ReportsDir)
	assert.Equal(t, filepath.Join(absDir, "plan.yaml"), paths.PlanFile)
	assert.Equal(t, "", paths.ManifestFile)
}

func TestGetPaths_AbsolutePathsUntouched(t *testing.T) {
	cfg := Default()
	abs := filepath.Join(t.TempDir(), "extracts")
	cfg.Paths.ExtractsDir = abs

	paths, err := cfg.GetPaths()
	require.NoError(t, err)
	assert.Equal(t, abs, paths.ExtractsDir)
}

func TestPaths_EnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	paths := &Paths{
		ExtractsDir: filepath.Join(dir, "extracts"),
		ReportsDir:  filepath.Join(dir, "out", "reports"),
		LogsDir:     filepath.Join(dir, "out", "logs"),
	}

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ReportsDir)
	assert.DirExists(t, paths.LogsDir)
	assert.NoDirExists(t, paths.ExtractsDir)

	assert.Equal(t, filepath.Join(paths.ReportsDir, "a.csv"), paths.GetReportPath("a.csv"))
	assert.True(t, FileExists(paths.ReportsDir))
	assert.False(t, FileExists(paths.ExtractsDir))
}

func TestYearRegexp(t *testing.T) {
	cfg := Default()
	re := cfg.YearRegexp()
	m := re.FindStringSubmatch("MERGED2013_14_PP.csv")
	require.Len(t, m, 2)
	assert.Equal(t, "2013", m[1])
}
