package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

// AnalysisHandler generates insights and recommendations over the bound
// content: extracted document text when a file step ran earlier, the raw
// query otherwise.
type AnalysisHandler struct{}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler() *AnalysisHandler { return &AnalysisHandler{} }

// Name implements taskhandler.Handler.
func (h *AnalysisHandler) Name() string { return "analysis" }

// Capabilities implements taskhandler.Handler.
func (h *AnalysisHandler) Capabilities() []plan.TaskType {
	return []plan.TaskType{plan.TypeAnalysis, plan.TypeInsights, plan.TypeSummary, plan.TypeReportGeneration}
}

// CanHandle implements taskhandler.Handler.
func (h *AnalysisHandler) CanHandle(taskType plan.TaskType) bool {
	return hasCapability(h.Capabilities(), taskType)
}

// Execute produces the placeholder analysis payload.
func (h *AnalysisHandler) Execute(_ context.Context, in *taskhandler.Input) (*run.StepResult, error) {
	content := in.Content()

	subject := strings.TrimSpace(in.Query())
	if subject == "" {
		subject = "the provided content"
	}

	return &run.StepResult{
		Status:  run.StepOK,
		Summary: "Generated comprehensive analysis with strategic recommendations",
		Fields: map[string]any{
			"key_insights": []string{
				fmt.Sprintf("Primary insight: %s shows strong potential", subject),
				"Data patterns indicate growth opportunities",
				"Strategic recommendations available",
			},
			"analysis_summary": fmt.Sprintf(
				"Analysis of '%s' reveals significant strategic opportunities with actionable recommendations.",
				subject),
			"recommendations": []string{
				"Implement multi-agent coordination",
				"Leverage existing platform integrations",
				"Focus on privacy-first approach",
			},
			"confidence_score": 0.85,
			"content_length":   len(content),
		},
	}, nil
}
