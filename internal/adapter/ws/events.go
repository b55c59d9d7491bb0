package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventRunAccepted   = "orchestration.accepted"
	EventRunCompleted  = "orchestration.completed"
	EventRunFailed     = "orchestration.failed"
	EventStepStarted   = "step.started"
	EventStepCompleted = "step.completed"
	EventStepFailed    = "step.failed"
)

// RunAcceptedEvent is broadcast when a request passes validation and a run
// begins.
type RunAcceptedEvent struct {
	RunID string `json:"run_id"`
	Query string `json:"query"`
}

// RunCompletedEvent is broadcast when every step of a run succeeds.
type RunCompletedEvent struct {
	RunID          string   `json:"run_id"`
	Summary        string   `json:"summary"`
	AgentsExecuted []string `json:"agents_executed"`
}

// RunFailedEvent is broadcast when planning fails or a step aborts the run.
// FailedStepIndex is nil for planning failures.
type RunFailedEvent struct {
	RunID           string `json:"run_id"`
	Summary         string `json:"summary"`
	FailedStepIndex *int   `json:"failed_step_index,omitempty"`
}

// StepStartedEvent is broadcast before a plan step executes.
type StepStartedEvent struct {
	RunID     string `json:"run_id"`
	StepIndex int    `json:"step_index"`
	TaskType  string `json:"task_type"`
}

// StepCompletedEvent is broadcast when a plan step succeeds.
type StepCompletedEvent struct {
	RunID     string `json:"run_id"`
	StepIndex int    `json:"step_index"`
	TaskType  string `json:"task_type"`
	Handler   string `json:"handler"`
	Summary   string `json:"summary,omitempty"`
}

// StepFailedEvent is broadcast when a plan step fails.
type StepFailedEvent struct {
	RunID     string `json:"run_id"`
	StepIndex int    `json:"step_index"`
	TaskType  string `json:"task_type"`
	Handler   string `json:"handler,omitempty"`
	Error     string `json:"error"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
