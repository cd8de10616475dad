package dataprocessing

import "path/filepath"

// Source is one yearly extract mapped to its academic year.
type Source struct {
	Year int
	Path string
	// Sheet selects the worksheet of an .xlsx extract; empty means the first.
	Sheet string
}

// Name is the file name of the source, used in logs and errors.
func (s Source) Name() string {
	return filepath.Base(s.Path)
}

// AssignYears maps an explicitly ordered list of extracts (oldest first) to
// consecutive years starting at base. The caller owns the order; nothing here
// looks at the file system.
func AssignYears(paths []string, base int) []Source {
	out := make([]Source, len(paths))
	for i, p := range paths {
		out[i] = Source{Year: base + i, Path: p}
	}
	return out
}
