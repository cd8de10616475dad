package operations

import (
	"strings"
	"time"
)

// Config represents the operation execution configuration
type Config struct {
	// Step timeouts keyed by step kind (load, rollup, ...)
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Whether non-fatal step failures let the run go on. Fatal errors
	// always stop it.
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default operation configuration
func NewConfig() *Config {
	return &Config{
		StageTimeouts: map[string]time.Duration{
			StepKindLoad: DefaultLoadTimeout,
		},
		ContinueOnError: true,
	}
}

// GetStageTimeout returns the timeout for a step, looked up by its kind
func (c *Config) GetStageTimeout(stepID string) time.Duration {
	kind, _, _ := strings.Cut(stepID, ".")
	if timeout, ok := c.StageTimeouts[kind]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStageTimeout sets the timeout for a step kind
func (c *Config) SetStageTimeout(kind string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[kind] = timeout
}
