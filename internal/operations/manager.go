package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scorecard/internal/infrastructure"
)

// Manager orchestrates operation execution
type Manager struct {
	registry *Registry
	config   *Config
	tracer   *OperationTracer
	logger   *slog.Logger
}

// NewManager creates a new operation manager. Nil arguments get defaults.
func NewManager(registry *Registry, config *Config, tracer *OperationTracer, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer, _ = NewOperationTracer(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		registry: registry,
		config:   config,
		tracer:   tracer,
		logger:   logger,
	}
}

// Execute runs every registered step in dependency order. A step whose
// dependency did not complete is skipped. A fatal error stops the run and is
// returned; other step failures are recorded and, with ContinueOnError, the
// run goes on and ends with status partial.
func (m *Manager) Execute(ctx context.Context, id string) (*OperationResponse, error) {
	if id == "" {
		id = infrastructure.GetRunID(ctx)
	}
	if id == "" {
		id = infrastructure.GenerateRunID()
	}
	ctx = infrastructure.WithRunID(ctx, id)

	state := NewOperationState(id)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		err = NewFatalError("", "invalid step graph", err)
		state.Fail(err)
		return m.createResponse(state), err
	}

	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	ctx, span := m.tracer.TraceOperationExecution(ctx, id, len(steps))
	state.Start()
	m.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", id),
		slog.Int("step_count", len(steps)))

	err = m.executeSequential(ctx, state, steps)

	switch {
	case err != nil && GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	case err != nil:
		state.Fail(err)
	default:
		state.Complete()
	}
	m.tracer.RecordOperationCompletion(span, state.GetStatus(), err)

	m.logger.InfoContext(ctx, "operation_finished",
		slog.String("operation_id", id),
		slog.String("status", string(state.GetStatus())),
		slog.Duration("duration", state.Duration()),
		slog.Any("failed_steps", state.FailedSteps()),
		slog.Any("skipped_steps", state.SkippedSteps()))

	return m.createResponse(state), err
}

// executeSequential executes steps one by one
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			m.logger.WarnContext(ctx, "operation_cancelled",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()))
			return NewCancellationError(step.ID(), err)
		}

		stepState := state.GetStage(step.ID())

		if dep, ok := m.unmetDependency(state, step); !ok {
			skipErr := NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s did not complete", dep))
			stepState.Skip(skipErr)
			m.logger.WarnContext(ctx, "stage_skipped",
				slog.String("operation_id", state.ID),
				slog.String("step", step.ID()),
				slog.String("depends_on", dep),
				slog.String("reason", skipErr.Message))
			continue
		}

		m.logger.InfoContext(ctx, "executing_stage",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("stage_number", i+1),
			slog.Int("total_stages", len(steps)))

		err := m.executeStage(ctx, state, step, stepState)
		if err == nil {
			continue
		}

		infrastructure.WithError(m.logger, err).ErrorContext(ctx, "stage_failed",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.String("error_type", string(GetErrorType(err))),
			slog.Any("dependents", m.dependentIDs(step.ID())))

		if IsFatal(err) || !m.config.ContinueOnError {
			return err
		}
	}
	return nil
}

func (m *Manager) dependentIDs(stepID string) []string {
	var ids []string
	for _, d := range m.registry.GetDependents(stepID) {
		ids = append(ids, d.ID())
	}
	return ids
}

// unmetDependency returns the first dependency of step that did not complete
func (m *Manager) unmetDependency(state *OperationState, step Step) (string, bool) {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil || depState.GetStatus() != StepStatusCompleted {
			return dep, false
		}
	}
	return "", true
}

// executeStage validates and runs one step under its timeout
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step, stepState *StepState) error {
	if err := step.Validate(state); err != nil {
		verr := NewValidationError(step.ID(), err.Error())
		stepState.Fail(verr)
		return verr
	}

	timeout := m.config.GetStageTimeout(step.ID())
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stepCtx, span := m.tracer.TraceStageExecution(stepCtx, state.ID, step.ID())
	stepState.Start()
	start := time.Now()

	err := step.Execute(stepCtx, state)
	duration := time.Since(start)
	m.tracer.RecordStageCompletion(stepCtx, span, step.ID(), duration, err)

	if err != nil {
		var wrapped *OperationError
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			wrapped = NewTimeoutError(step.ID(), timeout, err)
		} else {
			wrapped = WrapError(err, step.ID())
		}
		stepState.Fail(wrapped)
		return wrapped
	}

	stepState.Complete()
	m.logger.InfoContext(ctx, "stage_completed",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", duration),
		slog.Int("tables", len(stepState.Tables)))
	return nil
}

// createResponse creates a operation response from state
func (m *Manager) createResponse(state *OperationState) *OperationResponse {
	resp := &OperationResponse{
		ID:       state.ID,
		Status:   state.GetStatus(),
		Duration: state.Duration(),
		Steps:    state.Steps,
		Tables:   state.Tables(),
		Failed:   state.FailedSteps(),
	}
	if state.Error != nil {
		resp.Error = state.Error.Error()
	}
	return resp
}
