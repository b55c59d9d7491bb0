package service

import "github.com/tbellamy/maestro/internal/domain/run"

// Default summaries substituted when a result arrives without one.
const (
	defaultCompletedSummary = "Task completed successfully"
	defaultErrorSummary     = "Task failed"
)

// ResponseNormalizer guarantees the fixed result shape every caller relies
// on: status, summary, query, and agents executed are always present.
// Normalize is idempotent.
type ResponseNormalizer struct{}

// NewResponseNormalizer creates a normalizer.
func NewResponseNormalizer() *ResponseNormalizer {
	return &ResponseNormalizer{}
}

// Normalize fills missing fields in place and returns the result. A nil
// result becomes a fully populated error result.
func (n *ResponseNormalizer) Normalize(res *run.Result, query string) *run.Result {
	if res == nil {
		res = &run.Result{Status: run.StatusError}
	}
	if res.Status == "" {
		res.Status = run.StatusError
	}
	if res.Summary == "" {
		if res.Status == run.StatusCompleted {
			res.Summary = defaultCompletedSummary
		} else {
			res.Summary = defaultErrorSummary
		}
	}
	if res.Query == "" {
		res.Query = query
	}
	if res.AgentsExecuted == nil {
		res.AgentsExecuted = []string{}
	}
	if res.Metadata.Plan == nil {
		res.Metadata.Plan = []string{}
	}
	return res
}
