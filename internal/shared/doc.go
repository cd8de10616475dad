// Package shared holds helpers used by more than one package that belong to
// no single pipeline layer.
//
// The testutil subpackage captures slog output so tests can assert on the
// structured events a run emits:
//
//	logger, logs := testutil.NewTestLogger(t)
//	manager := operations.NewManager(reg, nil, nil, logger)
//	...
//	rec, ok := logs.Find("stage_failed")
package shared
