// Package operations runs a report plan as a sequence of steps.
//
// Each dataset in the plan gets a load step that reads every yearly extract,
// merges them by explicit year and publishes the merged table together with
// its institution counts. Each report job (rollup, null rate, cohort,
// correlation, ranking) is a step depending on the load step of its dataset
// and writes its tables to an exporter.AggregateStore.
//
// Errors come in two kinds. Fatal errors (ambiguous year ordering, a strict
// schema mismatch, store failures, cancellation) stop the run. Any other step
// failure is recorded on the step, its dependents are skipped, and the run
// finishes with status partial.
//
//	reg, err := operations.BuildRegistry(operations.PipelineOptions{...})
//	resp, err := operations.NewManager(reg, nil, tracer, logger).Execute(ctx, runID)
package operations
