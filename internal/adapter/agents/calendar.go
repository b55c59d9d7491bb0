package agents

import (
	"context"
	"fmt"

	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

const proposedSlot = "Tomorrow 9:00 AM"

// CalendarHandler proposes meeting slots and answers availability checks.
type CalendarHandler struct{}

// NewCalendarHandler creates the calendar handler.
func NewCalendarHandler() *CalendarHandler { return &CalendarHandler{} }

// Name implements taskhandler.Handler.
func (h *CalendarHandler) Name() string { return "calendar" }

// Capabilities implements taskhandler.Handler.
func (h *CalendarHandler) Capabilities() []plan.TaskType {
	return []plan.TaskType{plan.TypeScheduleMeeting, plan.TypeAvailabilityCheck}
}

// CanHandle implements taskhandler.Handler.
func (h *CalendarHandler) CanHandle(taskType plan.TaskType) bool {
	return hasCapability(h.Capabilities(), taskType)
}

// Execute proposes a slot or reports availability, depending on task type.
func (h *CalendarHandler) Execute(_ context.Context, in *taskhandler.Input) (*run.StepResult, error) {
	if in.TaskType == plan.TypeAvailabilityCheck {
		return &run.StepResult{
			Status:  run.StepOK,
			Summary: "Availability check completed",
			Fields: map[string]any{
				"action": "availability_check",
				"available_slots": []string{
					proposedSlot,
					"Tomorrow 2:00 PM",
					"Wednesday 10:00 AM",
				},
				"status": "3 open slots found this week",
			},
		}, nil
	}

	return &run.StepResult{
		Status:  run.StepOK,
		Summary: fmt.Sprintf("Proposed meeting for %s", proposedSlot),
		Fields: map[string]any{
			"action":        "schedule_meeting",
			"proposed_slot": proposedSlot,
			"alternative_slots": []string{
				"Tomorrow 2:00 PM",
				"Wednesday 10:00 AM",
			},
			"attendees": []string{"team@company.com"},
			"status":    "Meeting slot proposed, awaiting confirmation",
		},
	}, nil
}
