// Package analytics computes descriptive aggregates over a
// dataprocessing.LongitudinalTable: state means, institution counts,
// null rates, quartile cohorts, correlation matrices and state rankings.
//
// Every result is a value computed in one pass over the table and is never
// modified afterwards. A mean or rate with no data behind it is an undefined
// domain.Figure, never zero.
//
// Null rates take their denominator from an InstitutionCounts built from the
// very same table; passing counts from any other table fails with
// DenominatorMismatchError.
package analytics
