package operations

import (
	"sort"
	"sync"
	"time"

	"scorecard/internal/analytics"
	"scorecard/internal/dataprocessing"
)

// OperationStatusValue represents the overall operation status enum
type OperationStatusValue string

const (
	OperationStatusPending   OperationStatusValue = "pending"
	OperationStatusRunning   OperationStatusValue = "running"
	OperationStatusCompleted OperationStatusValue = "completed"
	OperationStatusPartial   OperationStatusValue = "partial"
	OperationStatusFailed    OperationStatusValue = "failed"
	OperationStatusCancelled OperationStatusValue = "cancelled"
)

// Dataset is a merged table published by a load step. Counts is always
// computed from Table so null rates can use it as their denominator.
type Dataset struct {
	Name   string
	Table  *dataprocessing.LongitudinalTable
	Counts *analytics.InstitutionCounts
	Report dataprocessing.MergeReport
}

// OperationState represents the complete state of a operation execution
type OperationState struct {
	mu sync.RWMutex

	ID        string               `json:"id"`
	Status    OperationStatusValue `json:"status"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`

	Steps map[string]*StepState `json:"steps"`

	// datasets passes merged tables from load steps to report steps
	datasets map[string]*Dataset

	Error error `json:"-"`
}

// NewOperationState creates a new operation state
func NewOperationState(id string) *OperationState {
	return &OperationState{
		ID:        id,
		Status:    OperationStatusPending,
		StartTime: time.Now(),
		Steps:     make(map[string]*StepState),
		datasets:  make(map[string]*Dataset),
	}
}

// Start marks the operation as running
func (p *OperationState) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Status = OperationStatusRunning
	p.StartTime = time.Now()
}

// Complete marks the operation as completed, or partial when a step failed
func (p *OperationState) Complete() {
	failed := p.HasFailures()

	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCompleted
	if failed {
		p.Status = OperationStatusPartial
	}
}

// Fail marks the operation as failed
func (p *OperationState) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusFailed
	p.Error = err
}

// Cancel marks the operation as cancelled
func (p *OperationState) Cancel(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.EndTime = &now
	p.Status = OperationStatusCancelled
	p.Error = err
}

// GetStage returns the state of a specific Step
func (p *OperationState) GetStage(stepID string) *StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Steps[stepID]
}

// SetStage updates the state of a specific Step
func (p *OperationState) SetStage(stepID string, state *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Steps[stepID] = state
}

// SetDataset publishes a merged dataset
func (p *OperationState) SetDataset(ds *Dataset) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.datasets[ds.Name] = ds
}

// Dataset returns a dataset published by a load step
func (p *OperationState) Dataset(name string) (*Dataset, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ds, ok := p.datasets[name]
	return ds, ok
}

// GetStatus returns the operation status
func (p *OperationState) GetStatus() OperationStatusValue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.Status
}

// Duration returns the duration of the operation execution
func (p *OperationState) Duration() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.EndTime != nil {
		return p.EndTime.Sub(p.StartTime)
	}
	return time.Since(p.StartTime)
}

// stepsWithStatus returns the IDs of steps in status, sorted
func (p *OperationState) stepsWithStatus(status StepStatus) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var ids []string
	for id, step := range p.Steps {
		if step.GetStatus() == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// FailedSteps returns the IDs of failed steps, sorted
func (p *OperationState) FailedSteps() []string {
	return p.stepsWithStatus(StepStatusFailed)
}

// SkippedSteps returns the IDs of skipped steps, sorted
func (p *OperationState) SkippedSteps() []string {
	return p.stepsWithStatus(StepStatusSkipped)
}

// HasFailures returns true if any Step has failed
func (p *OperationState) HasFailures() bool {
	return len(p.FailedSteps()) > 0
}

// Tables returns every table key written by the run, sorted
func (p *OperationState) Tables() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var keys []string
	for _, step := range p.Steps {
		step.mu.RLock()
		keys = append(keys, step.Tables...)
		step.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}
