// Package dataprocessing turns yearly College Scorecard extracts into one
// longitudinal table.
//
// # Loading
//
// A LoadRequest names the attributes to read. Loader.Load reads one Source
// (a .csv or .xlsx extract mapped to an explicit year) and returns its rows
// with exactly those attributes plus the institution name and state columns.
// A requested column absent from the header fails that year with
// SchemaMismatchError. Loader.LoadAll reads many sources in parallel and
// returns results in source order.
//
//	req := dataprocessing.NewLoadRequest("TUITIONFEE_IN", "UGDS_BLACK")
//	results, err := loader.LoadAll(ctx, sources, req)
//
// # Merging
//
// Merger.Merge sorts results by year, rejects two sources claiming the same
// year, skips (or in strict mode, fails on) schema mismatches, and drops rows
// whose state code is outside the 50 states plus DC.
//
//	table, report, err := dataprocessing.NewMerger(false, logger).Merge(results)
//
// Cell values are normalized at load time: NA tokens and the
// "PrivacySuppressed" sentinel both become missing values.
package dataprocessing
