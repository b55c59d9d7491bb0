// Package plan defines the execution plan built for one orchestration run.
package plan

// TaskType identifies a kind of work a handler performs. Handlers declare
// the task types they support as capability tags; plan steps name exactly one.
type TaskType string

// Task types the planner emits.
const (
	TypeFileProcessing  TaskType = "file_processing"
	TypeWebResearch     TaskType = "web_research"
	TypeAnalysis        TaskType = "analysis"
	TypeEmailAnalysis   TaskType = "email_analysis"
	TypeScheduleMeeting TaskType = "schedule_meeting"
)

// Additional capability tags declared by the built-in handlers. The planner
// never emits these directly; they exist so callers can route explicit task
// types at the registry without going through classification.
const (
	TypePDFAnalysis        TaskType = "pdf_analysis"
	TypeDocumentExtraction TaskType = "document_extraction"
	TypeCompetitorAnalysis TaskType = "competitor_analysis"
	TypeMarketResearch     TaskType = "market_research"
	TypeInsights           TaskType = "insights"
	TypeSummary            TaskType = "summary"
	TypeReportGeneration   TaskType = "report_generation"
	TypeDraftEmail         TaskType = "draft_email"
	TypeScheduleEmail      TaskType = "schedule_email"
	TypeEmailInsights      TaskType = "email_insights"
	TypeExtractActionItems TaskType = "extract_action_items"
	TypeAvailabilityCheck  TaskType = "availability_check"
)

// Plan is the ordered sequence of steps for one orchestration run. It is
// built once by the planner and never modified afterwards.
type Plan struct {
	Steps []Step `json:"steps"`
}

// Step names one task type to execute, with the classification rule that
// selected it.
type Step struct {
	Type   TaskType `json:"type"`
	Reason string   `json:"reason,omitempty"`
}

// TaskTypes returns the step task types in plan order.
func (p *Plan) TaskTypes() []string {
	types := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		types[i] = string(s.Type)
	}
	return types
}

// PlanningError reports that a request could not be translated into a plan
// (missing required attachment, insufficient content, unrecognized intent).
// It is surfaced before any handler runs.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string { return e.Reason }
