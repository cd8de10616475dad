// Package exporter is the persistence boundary of the aggregation pipeline.
//
// Aggregates are handed over as Tables (a header row plus string rows) and
// stored under a key through the AggregateStore interface. Three stores are
// provided:
//
// MemoryStore keeps tables in process, for tests and dry runs.
//
// CSVStore writes one <key>.csv file per table, UTF-8 with a BOM so Excel
// opens it correctly.
//
// WorkbookStore writes every table as a sheet of a single .xlsx workbook;
// putting an existing key replaces its sheet.
//
// The converters in format.go turn analytics results into Tables. Undefined
// figures are written as "NA", never as 0.
package exporter
