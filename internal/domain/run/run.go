// Package run defines the result shapes and chained context for one
// orchestration run.
package run

// Status represents the final state of an orchestration run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StepStatus represents the outcome of one handler invocation.
type StepStatus string

const (
	StepOK    StepStatus = "ok"
	StepError StepStatus = "error"
)

// StepResult is the uniform shape every handler invocation produces, whether
// the handler returned normally, reported failure itself, or faulted and was
// caught at the engine boundary.
type StepResult struct {
	Status       StepStatus     `json:"status"`
	Summary      string         `json:"summary,omitempty"`
	Fields       map[string]any `json:"result_fields,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// Result is the single value an orchestration run delivers to its caller,
// shaped identically on success and on failure.
type Result struct {
	RunID          string   `json:"run_id,omitempty"`
	Status         Status   `json:"status"`
	Summary        string   `json:"summary"`
	Query          string   `json:"query"`
	AgentsExecuted []string `json:"agents_executed"`
	Metadata       Metadata `json:"metadata"`
}

// Metadata carries run diagnostics: the executed plan and, on failure, which
// step failed and its raw step result.
type Metadata struct {
	Plan            []string    `json:"plan"`
	WasChained      bool        `json:"was_chained,omitempty"`
	FailedStepIndex *int        `json:"failed_step_index,omitempty"`
	ErrorDetails    *StepResult `json:"error_details,omitempty"`
}
