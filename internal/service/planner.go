package service

import (
	"strings"

	"github.com/tbellamy/maestro/internal/domain/intent"
	"github.com/tbellamy/maestro/internal/domain/plan"
)

// Classification rule names recorded on plan steps.
const (
	reasonAttachments     = "attachments present"
	reasonChainedAnalysis = "analysis chained after extraction"
	reasonResearch        = "research keywords"
	reasonResearchReport  = "report requested with research"
	reasonAnalysis        = "analysis keywords"
	reasonMessaging       = "messaging keywords"
	reasonScheduling      = "scheduling keywords"
	reasonDefault         = "default analysis for long query"
)

// IntentPlanner turns request text and attachment presence into an ordered
// plan of task types. Classification is lexical: case-insensitive matching
// against the policy vocabularies, applied in a fixed priority order with
// validation rules evaluated before any plan is built. Plan is a pure
// function of its inputs.
type IntentPlanner struct {
	policy intent.Policy
}

// NewIntentPlanner creates a planner over the given keyword policy.
func NewIntentPlanner(policy intent.Policy) *IntentPlanner {
	return &IntentPlanner{policy: policy}
}

// Plan builds the execution plan for a query. A *plan.PlanningError return
// means the request could not be translated into a plan; its Reason is the
// user-facing diagnostic and no step should run.
func (p *IntentPlanner) Plan(query string, hasAttachments bool) (*plan.Plan, error) {
	_, wantsFile := intent.Matches(p.policy.File, query)
	_, wantsResearch := intent.Matches(p.policy.Research, query)
	_, wantsAnalysis := intent.Matches(p.policy.Analysis, query)
	_, wantsMessaging := intent.Matches(p.policy.Messaging, query)
	_, wantsScheduling := intent.Matches(p.policy.Scheduling, query)

	// Validation first: a dangling "summarize this file" with no attachment
	// must not degrade into analyzing the command phrase itself.
	if wantsFile && !hasAttachments {
		return nil, &plan.PlanningError{Reason: "mentioned a document but none attached"}
	}
	if wantsAnalysis && !hasAttachments && len(p.policy.ResidualTokens(query)) < p.policy.MinContentTokens {
		return nil, &plan.PlanningError{Reason: "not enough content to analyze"}
	}

	var steps []plan.Step
	switch {
	case hasAttachments:
		steps = append(steps, plan.Step{Type: plan.TypeFileProcessing, Reason: reasonAttachments})
		if wantsAnalysis || strings.TrimSpace(query) == "" {
			steps = append(steps, plan.Step{Type: plan.TypeAnalysis, Reason: reasonChainedAnalysis})
		}
	case wantsResearch:
		steps = append(steps, plan.Step{Type: plan.TypeWebResearch, Reason: reasonResearch})
		if wantsAnalysis {
			steps = append(steps, plan.Step{Type: plan.TypeAnalysis, Reason: reasonResearchReport})
		}
	case wantsAnalysis:
		steps = append(steps, plan.Step{Type: plan.TypeAnalysis, Reason: reasonAnalysis})
	case wantsMessaging:
		steps = append(steps, plan.Step{Type: plan.TypeEmailAnalysis, Reason: reasonMessaging})
	case wantsScheduling:
		steps = append(steps, plan.Step{Type: plan.TypeScheduleMeeting, Reason: reasonScheduling})
	case len(strings.Fields(query)) > 3:
		steps = append(steps, plan.Step{Type: plan.TypeAnalysis, Reason: reasonDefault})
	default:
		return nil, &plan.PlanningError{Reason: "could not understand request"}
	}

	return &plan.Plan{Steps: steps}, nil
}
