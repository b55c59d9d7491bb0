package messagequeue

// RunStartedPayload is the schema for orchestration.started messages.
type RunStartedPayload struct {
	RunID string   `json:"run_id"`
	Query string   `json:"query"`
	Plan  []string `json:"plan"`
}

// StepExecutedPayload is the schema for orchestration.step messages.
type StepExecutedPayload struct {
	RunID     string `json:"run_id"`
	StepIndex int    `json:"step_index"`
	TaskType  string `json:"task_type"`
	Handler   string `json:"handler"`
	Status    string `json:"status"`
	Summary   string `json:"summary"`
}

// RunCompletedPayload is the schema for orchestration.completed messages.
type RunCompletedPayload struct {
	RunID          string   `json:"run_id"`
	Summary        string   `json:"summary"`
	AgentsExecuted []string `json:"agents_executed"`
	DurationMS     int64    `json:"duration_ms"`
}

// RunFailedPayload is the schema for orchestration.failed messages.
// FailedStepIndex is -1 when the run failed during planning, before any
// step executed.
type RunFailedPayload struct {
	RunID           string `json:"run_id"`
	FailedStepIndex int    `json:"failed_step_index"`
	TaskType        string `json:"task_type,omitempty"`
	Error           string `json:"error"`
}
