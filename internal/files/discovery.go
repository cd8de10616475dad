package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"scorecard/internal/dataprocessing"
	apperrors "scorecard/internal/errors"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery maps extract files to years. Years always come from an explicit
// manifest, an explicitly ordered list or the file name, never from directory
// listing order.
type Discovery struct {
	basePath string
	logger   *slog.Logger
}

// NewDiscovery creates a new file discovery instance. Relative directories
// are resolved against basePath.
func NewDiscovery(basePath string, logger *slog.Logger) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{basePath: basePath, logger: logger}
}

func (d *Discovery) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.basePath, p)
}

// FindFilesByPattern finds regular files in dir matching a glob pattern,
// sorted by name.
func (d *Discovery) FindFilesByPattern(dir string, pattern string) ([]FileInfo, error) {
	fullPath := d.resolve(dir)
	matches, err := filepath.Glob(filepath.Join(fullPath, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FromPattern maps every file in dir matching glob to the year found in its
// name by yearRe (first capture group, or the whole match). Sources are
// returned oldest first.
func (d *Discovery) FromPattern(dir, glob string, yearRe *regexp.Regexp) ([]dataprocessing.Source, error) {
	files, err := d.FindFilesByPattern(dir, glob)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("extracts matching %s in %s", glob, d.resolve(dir)))
	}

	sources := make([]dataprocessing.Source, 0, len(files))
	for _, f := range files {
		year, err := YearFromName(f.Name, yearRe)
		if err != nil {
			return nil, err
		}
		sources = append(sources, dataprocessing.Source{Year: year, Path: f.Path})
	}

	if err := checkDistinctYears(sources); err != nil {
		return nil, err
	}
	sortByYear(sources)

	d.logger.Info("extracts discovered",
		slog.String("dir", d.resolve(dir)),
		slog.String("pattern", glob),
		slog.Int("count", len(sources)))
	return sources, nil
}

// FromList maps an ordered list of extracts (oldest first) to consecutive
// years starting at base. Relative names are resolved against the discovery
// root and each file must exist. Listing the same file twice is rejected.
func (d *Discovery) FromList(names []string, base int) ([]dataprocessing.Source, error) {
	if len(names) == 0 {
		return nil, apperrors.NewConfigError("empty extract list", nil)
	}
	if base < 1900 || base > 2100 {
		return nil, apperrors.NewConfigError(fmt.Sprintf("invalid base year %d", base), nil)
	}

	resolved := make([]string, len(names))
	seen := make(map[string]int, len(names))
	for i, n := range names {
		file := d.resolve(n)
		if _, err := os.Stat(file); err != nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("extract %s for year %d", file, base+i))
		}
		if prev, dup := seen[file]; dup {
			return nil, apperrors.NewConfigError(
				fmt.Sprintf("extract %s listed for years %d and %d", filepath.Base(file), base+prev, base+i), nil)
		}
		seen[file] = i
		resolved[i] = file
	}

	sources := dataprocessing.AssignYears(resolved, base)
	d.logger.Info("extracts read from ordered list",
		slog.Int("base_year", base),
		slog.Int("count", len(sources)))
	return sources, nil
}

// YearFromName extracts a four digit year from a file name.
func YearFromName(name string, yearRe *regexp.Regexp) (int, error) {
	m := yearRe.FindStringSubmatch(name)
	if m == nil {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("no year in file name %q", name))
	}
	raw := m[0]
	if len(m) > 1 {
		raw = m[1]
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1900 || year > 2100 {
		return 0, apperrors.NewAppValidationError(fmt.Sprintf("invalid year %q in file name %q", raw, name))
	}
	return year, nil
}

// Manifest maps extract files to years explicitly.
//
//	extracts:
//	  - year: 1996
//	    file: MERGED1996_97_PP.csv
//	  - year: 1997
//	    file: MERGED1997_98_PP.xlsx
//	    sheet: data
type Manifest struct {
	Extracts []ManifestEntry `yaml:"extracts" validate:"required,min=1,dive"`
}

// ManifestEntry is one extract of a manifest.
type ManifestEntry struct {
	Year  int    `yaml:"year" validate:"min=1900,max=2100"`
	File  string `yaml:"file" validate:"required"`
	Sheet string `yaml:"sheet"`
}

var validate = validator.New()

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read manifest %s", path), err)
	}
	var m Manifest
	if err := yaml.UnmarshalStrict(data, &m); err != nil {
		return nil, apperrors.NewConfigError("failed to decode manifest", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, apperrors.NewConfigError("invalid manifest", err)
	}
	return &m, nil
}

// FromManifest returns the manifest's extracts, oldest first. File paths are
// relative to the manifest and must exist.
func (d *Discovery) FromManifest(manifestPath string) ([]dataprocessing.Source, error) {
	path := d.resolve(manifestPath)
	m, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	sources := make([]dataprocessing.Source, 0, len(m.Extracts))
	for _, e := range m.Extracts {
		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		if _, err := os.Stat(file); err != nil {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("extract %s for year %d", file, e.Year))
		}
		sources = append(sources, dataprocessing.Source{Year: e.Year, Path: file, Sheet: e.Sheet})
	}

	if err := checkDistinctYears(sources); err != nil {
		return nil, err
	}
	sortByYear(sources)

	d.logger.Info("extracts read from manifest",
		slog.String("manifest", path),
		slog.Int("count", len(sources)))
	return sources, nil
}

func checkDistinctYears(sources []dataprocessing.Source) error {
	seen := make(map[int]string, len(sources))
	for _, s := range sources {
		if prev, dup := seen[s.Year]; dup {
			names := []string{prev, s.Name()}
			sort.Strings(names)
			return &dataprocessing.AmbiguousYearOrderingError{Year: s.Year, Sources: names}
		}
		seen[s.Year] = s.Name()
	}
	return nil
}

func sortByYear(sources []dataprocessing.Source) {
	sort.Slice(sources, func(i, j int) bool { return sources[i].Year < sources[j].Year })
}
