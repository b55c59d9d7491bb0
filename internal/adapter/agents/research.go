package agents

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tbellamy/maestro/internal/config"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/port/cache"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
	"github.com/tbellamy/maestro/internal/resilience"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
)

// ResearchHandler produces research findings for a query. With a search URL
// configured it queries the external service; otherwise it returns canned
// findings. Results are cached by query so repeated research within the TTL
// is free.
type ResearchHandler struct {
	searchURL string
	ttl       time.Duration
	cache     cache.Cache
	client    *http.Client
	breaker   *resilience.Breaker
}

// researchPayload is the response shape of the external search service and
// the cached value format.
type researchPayload struct {
	Query    string   `json:"query"`
	Findings []string `json:"findings"`
	Sources  []string `json:"sources"`
}

// NewResearchHandler creates the research handler. c may be nil, which
// disables caching.
func NewResearchHandler(cfg config.Research, ttl time.Duration, c cache.Cache) *ResearchHandler {
	return &ResearchHandler{
		searchURL: cfg.SearchURL,
		ttl:       ttl,
		cache:     c,
		client:    &http.Client{Timeout: cfg.Timeout},
		breaker:   resilience.NewBreaker(breakerFailures, breakerTimeout),
	}
}

// Name implements taskhandler.Handler.
func (h *ResearchHandler) Name() string { return "research" }

// Capabilities implements taskhandler.Handler.
func (h *ResearchHandler) Capabilities() []plan.TaskType {
	return []plan.TaskType{plan.TypeWebResearch, plan.TypeCompetitorAnalysis, plan.TypeMarketResearch}
}

// CanHandle implements taskhandler.Handler.
func (h *ResearchHandler) CanHandle(taskType plan.TaskType) bool {
	return hasCapability(h.Capabilities(), taskType)
}

// Execute looks up cached findings for the query, then falls back to the
// external search service when configured, then to canned findings.
func (h *ResearchHandler) Execute(ctx context.Context, in *taskhandler.Input) (*run.StepResult, error) {
	query := in.Query()
	key := researchKey(query)

	if h.cache != nil {
		if data, ok, err := h.cache.Get(ctx, key); err == nil && ok {
			var payload researchPayload
			if err := json.Unmarshal(data, &payload); err == nil {
				slog.Debug("research cache hit", "key", key)
				return payload.stepResult(), nil
			}
		}
	}

	payload := h.search(ctx, query)

	if h.cache != nil {
		if data, err := json.Marshal(payload); err == nil {
			if err := h.cache.Set(ctx, key, data, h.ttl); err != nil {
				slog.Warn("research cache store failed", "error", err)
			}
		}
	}

	return payload.stepResult(), nil
}

// search queries the external service when one is configured. Any failure
// falls back to canned findings so the step never depends on the service
// being up. A circuit breaker skips the call entirely while the service is
// failing repeatedly.
func (h *ResearchHandler) search(ctx context.Context, query string) researchPayload {
	if h.searchURL == "" {
		return cannedFindings(query)
	}

	var payload researchPayload
	err := h.breaker.Execute(func() error {
		var fetchErr error
		payload, fetchErr = h.fetchRemote(ctx, query)
		return fetchErr
	})
	if err != nil {
		slog.Warn("external search failed, using canned findings",
			"error", err, "breaker_state", h.breaker.State())
		return cannedFindings(query)
	}
	return payload
}

func (h *ResearchHandler) fetchRemote(ctx context.Context, query string) (researchPayload, error) {
	u, err := url.Parse(h.searchURL)
	if err != nil {
		return researchPayload{}, fmt.Errorf("search url: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return researchPayload{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return researchPayload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return researchPayload{}, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var payload researchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return researchPayload{}, fmt.Errorf("decode search response: %w", err)
	}
	if len(payload.Findings) == 0 {
		return researchPayload{}, fmt.Errorf("search returned no findings")
	}
	payload.Query = query
	return payload, nil
}

func cannedFindings(query string) researchPayload {
	return researchPayload{
		Query: query,
		Findings: []string{
			fmt.Sprintf("Research finding 1 for: %s", query),
			fmt.Sprintf("Market analysis shows significant opportunity in: %s", query),
			fmt.Sprintf("Competitive landscape indicates: %s is growing rapidly", query),
		},
		Sources: []string{
			"https://example.com/research1",
			"https://example.com/research2",
			"https://example.com/research3",
		},
	}
}

func (p researchPayload) stepResult() *run.StepResult {
	return &run.StepResult{
		Status:  run.StepOK,
		Summary: fmt.Sprintf("Found %d research insights", len(p.Findings)),
		Fields: map[string]any{
			"query":    p.Query,
			"findings": p.Findings,
			"sources":  p.Sources,
		},
	}
}

// researchKey hashes the query into a key safe for every cache backend
// (NATS KV rejects spaces and most punctuation).
func researchKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("research.%x", sum[:8])
}
