package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

// MailHandler covers the email task family. The concrete operation is
// chosen by the step's task type first, query keywords second, defaulting
// to inbox analysis.
type MailHandler struct{}

// NewMailHandler creates the mail handler.
func NewMailHandler() *MailHandler { return &MailHandler{} }

// Name implements taskhandler.Handler.
func (h *MailHandler) Name() string { return "mail" }

// Capabilities implements taskhandler.Handler.
func (h *MailHandler) Capabilities() []plan.TaskType {
	return []plan.TaskType{
		plan.TypeEmailAnalysis,
		plan.TypeDraftEmail,
		plan.TypeScheduleEmail,
		plan.TypeEmailInsights,
		plan.TypeExtractActionItems,
	}
}

// CanHandle implements taskhandler.Handler.
func (h *MailHandler) CanHandle(taskType plan.TaskType) bool {
	return hasCapability(h.Capabilities(), taskType)
}

// Execute dispatches to the matching email operation.
func (h *MailHandler) Execute(_ context.Context, in *taskhandler.Input) (*run.StepResult, error) {
	query := in.Query()
	lower := strings.ToLower(query)

	var fields map[string]any
	switch {
	case in.TaskType == plan.TypeDraftEmail || strings.Contains(lower, "draft"):
		fields = draftEmail(query)
	case in.TaskType == plan.TypeExtractActionItems ||
		strings.Contains(lower, "action") || strings.Contains(lower, "todo"):
		fields = extractActionItems(query)
	case in.TaskType == plan.TypeScheduleEmail || strings.Contains(lower, "schedule"):
		fields = scheduleEmail(query)
	default:
		fields = analyzeEmails(query)
	}

	return &run.StepResult{
		Status:  run.StepOK,
		Summary: fmt.Sprintf("Email operation completed: %s", in.TaskType),
		Fields:  fields,
	}, nil
}

func draftEmail(query string) map[string]any {
	return map[string]any{
		"action":  "draft_email",
		"subject": fmt.Sprintf("Re: %s", query),
		"draft_content": fmt.Sprintf(
			"Based on your request '%s', here's a professional email draft:\n\n"+
				"Dear [Recipient],\n\n"+
				"I hope this email finds you well. Regarding %s, I wanted to provide you with an update...\n\n"+
				"Best regards,\n[Your Name]",
			query, query),
		"suggestions": []string{
			"Add specific details about the topic",
			"Include relevant attachments",
			"Set appropriate priority level",
		},
	}
}

func extractActionItems(query string) map[string]any {
	return map[string]any{
		"action": "extract_action_items",
		"action_items": []string{
			fmt.Sprintf("Follow up on %s by end of week", query),
			"Schedule meeting with stakeholders",
			"Prepare summary report",
			"Send updates to team members",
		},
		"priority_items": []string{
			fmt.Sprintf("High priority: Review %s documents", query),
			"Medium priority: Coordinate with external partners",
		},
		"deadlines": []string{
			"This week: Initial review",
			"Next week: Final deliverables",
		},
	}
}

func scheduleEmail(query string) map[string]any {
	return map[string]any{
		"action":         "schedule_email",
		"scheduled_time": "Tomorrow 9:00 AM",
		"recipients":     []string{"team@company.com"},
		"subject":        fmt.Sprintf("Scheduled update: %s", query),
		"status":         "Email scheduled successfully",
	}
}

func analyzeEmails(query string) map[string]any {
	return map[string]any{
		"action": "analyze_emails",
		"email_summary": map[string]any{
			"total_emails":    47,
			"unread_count":    12,
			"priority_emails": 5,
			"action_required": 8,
		},
		"key_insights": []string{
			fmt.Sprintf("3 emails mention '%s' requiring immediate attention", query),
			"2 meeting requests pending response",
			"1 urgent deadline approaching this week",
		},
		"recommendations": []string{
			"Prioritize emails from key stakeholders",
			"Batch process non-urgent emails",
			"Set up filters for automated organization",
		},
	}
}
