// Package files discovers yearly extracts and maps each to its academic year.
//
// A year is never inferred from the order in which the file system lists a
// directory. It comes either from a YAML manifest naming every file and its
// year, or from a pattern matched against the file name:
//
//	d := files.NewDiscovery(baseDir, logger)
//	sources, err := d.FromManifest("extracts.yaml")
//	sources, err = d.FromPattern("data/extracts", "*.csv", regexp.MustCompile(`(\d{4})`))
//
// Two files mapping to the same year fail with
// dataprocessing.AmbiguousYearOrderingError.
package files
