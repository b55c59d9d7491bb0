package service_test

import (
	"errors"
	"testing"

	"github.com/tbellamy/maestro/internal/domain/intent"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/service"
)

func newPlanner() *service.IntentPlanner {
	return service.NewIntentPlanner(intent.DefaultPolicy())
}

func planTypes(t *testing.T, query string, hasAttachments bool) []string {
	t.Helper()
	p, err := newPlanner().Plan(query, hasAttachments)
	if err != nil {
		t.Fatalf("Plan(%q, %v) failed: %v", query, hasAttachments, err)
	}
	return p.TaskTypes()
}

func planError(t *testing.T, query string, hasAttachments bool) *plan.PlanningError {
	t.Helper()
	_, err := newPlanner().Plan(query, hasAttachments)
	if err == nil {
		t.Fatalf("Plan(%q, %v) succeeded, want planning error", query, hasAttachments)
	}
	var perr *plan.PlanningError
	if !errors.As(err, &perr) {
		t.Fatalf("Plan(%q, %v) error = %T, want *plan.PlanningError", query, hasAttachments, err)
	}
	return perr
}

func TestPlan_InsufficientContent(t *testing.T) {
	// A bare command word carries nothing to analyze.
	perr := planError(t, "summarize", false)
	if perr.Reason != "not enough content to analyze" {
		t.Errorf("reason = %q, want %q", perr.Reason, "not enough content to analyze")
	}
}

func TestPlan_FileMentionWithoutAttachment(t *testing.T) {
	perr := planError(t, "analyze this document", false)
	if perr.Reason != "mentioned a document but none attached" {
		t.Errorf("reason = %q, want %q", perr.Reason, "mentioned a document but none attached")
	}
}

func TestPlan_FileValidationBeforeContentCheck(t *testing.T) {
	// "summarize the pdf" trips both validation rules; the attachment rule
	// wins because it names the real problem.
	perr := planError(t, "summarize the pdf", false)
	if perr.Reason != "mentioned a document but none attached" {
		t.Errorf("reason = %q, want %q", perr.Reason, "mentioned a document but none attached")
	}
}

func TestPlan_AttachmentsWithEmptyQuery(t *testing.T) {
	got := planTypes(t, "", true)
	want := []string{"file_processing", "analysis"}
	assertTypes(t, got, want)
}

func TestPlan_AttachmentsWithAnalysisQuery(t *testing.T) {
	got := planTypes(t, "summarize the attached contract terms", true)
	assertTypes(t, got, []string{"file_processing", "analysis"})
}

func TestPlan_AttachmentsWithoutAnalysisQuery(t *testing.T) {
	// A non-analysis query alongside attachments extracts only.
	got := planTypes(t, "process these for later", true)
	assertTypes(t, got, []string{"file_processing"})
}

func TestPlan_ResearchWithReport(t *testing.T) {
	p, err := newPlanner().Plan("research AI automation market and create competitive analysis report", false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertTypes(t, p.TaskTypes(), []string{"web_research", "analysis"})
	if p.Steps[0].Reason != "research keywords" {
		t.Errorf("step 0 reason = %q, want %q", p.Steps[0].Reason, "research keywords")
	}
	if p.Steps[1].Reason != "report requested with research" {
		t.Errorf("step 1 reason = %q, want %q", p.Steps[1].Reason, "report requested with research")
	}
}

func TestPlan_ResearchOnly(t *testing.T) {
	got := planTypes(t, "research quantum computing vendors", false)
	assertTypes(t, got, []string{"web_research"})
}

func TestPlan_AnalysisOnly(t *testing.T) {
	got := planTypes(t, "analyze our churn numbers in detail", false)
	assertTypes(t, got, []string{"analysis"})
}

func TestPlan_Messaging(t *testing.T) {
	got := planTypes(t, "draft an email to the sales team", false)
	assertTypes(t, got, []string{"email_analysis"})
}

func TestPlan_MessagingWinsOverScheduling(t *testing.T) {
	// Both vocabularies match; messaging sits higher in the priority order.
	got := planTypes(t, "email the team about the meeting schedule", false)
	assertTypes(t, got, []string{"email_analysis"})
}

func TestPlan_Scheduling(t *testing.T) {
	got := planTypes(t, "schedule a meeting tomorrow", false)
	assertTypes(t, got, []string{"schedule_meeting"})
}

func TestPlan_DefaultLongQuery(t *testing.T) {
	p, err := newPlanner().Plan("review the numbers from yesterday and decide", false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertTypes(t, p.TaskTypes(), []string{"analysis"})
	if p.Steps[0].Reason != "default analysis for long query" {
		t.Errorf("reason = %q, want %q", p.Steps[0].Reason, "default analysis for long query")
	}
}

func TestPlan_UnrecognizedShortQuery(t *testing.T) {
	perr := planError(t, "hello there", false)
	if perr.Reason != "could not understand request" {
		t.Errorf("reason = %q, want %q", perr.Reason, "could not understand request")
	}
}

func TestPlan_EmptyQueryNoAttachments(t *testing.T) {
	perr := planError(t, "", false)
	if perr.Reason != "could not understand request" {
		t.Errorf("reason = %q, want %q", perr.Reason, "could not understand request")
	}
}

func TestPlan_ResidualCountBoundary(t *testing.T) {
	// Exactly MinContentTokens residual tokens is sufficient; one fewer is
	// not. Vocabulary and stopword tokens never count.
	tests := []struct {
		query   string
		wantErr bool
	}{
		{"analyze churn revenue margins", false}, // churn, revenue, margins
		{"analyze churn revenue", true},          // churn, revenue
		{"summarize", true},
		{"analyze the quarterly revenue figures", false},
	}

	for _, tc := range tests {
		_, err := newPlanner().Plan(tc.query, false)
		if tc.wantErr && err == nil {
			t.Errorf("Plan(%q) succeeded, want insufficient-content error", tc.query)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("Plan(%q) failed: %v", tc.query, err)
		}
	}
}

func TestPlan_AttachmentsSkipContentCheck(t *testing.T) {
	// With an attachment present the analysis content check does not apply:
	// the content is the document, not the query.
	got := planTypes(t, "summarize", true)
	assertTypes(t, got, []string{"file_processing", "analysis"})
}

func TestPlan_CustomPolicy(t *testing.T) {
	policy := intent.Policy{
		Research:         []string{"investigate"},
		MinContentTokens: 1,
	}
	p, err := service.NewIntentPlanner(policy).Plan("investigate outage", false)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	assertTypes(t, p.TaskTypes(), []string{"web_research"})
}

func assertTypes(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("plan = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("plan = %v, want %v", got, want)
		}
	}
}
