package operations

import (
	"time"
)

// Step ID prefixes. A step ID is the prefix, a dot, and the dataset or job name.
const (
	StepKindLoad        = "load"
	StepKindRollup      = "rollup"
	StepKindNullRate    = "null_rate"
	StepKindCohort      = "cohort"
	StepKindCorrelation = "correlation"
	StepKindRanking     = "ranking"
	StepKindSeries      = "series"
)

// Default timeouts
const (
	DefaultStepTimeout = 10 * time.Minute
	DefaultLoadTimeout = 30 * time.Minute
)

// StepID builds the ID of a step of the given kind.
func StepID(kind, name string) string {
	return kind + "." + name
}

// OperationResponse summarizes one run
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Tables   []string              `json:"tables"`
	Failed   []string              `json:"failed,omitempty"`
	Error    string                `json:"error,omitempty"`
}
