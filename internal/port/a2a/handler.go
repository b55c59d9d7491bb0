package a2a

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tbellamy/maestro/internal/domain/plan"
)

// CapabilityLister supplies the current handler capability map for the card.
type CapabilityLister func() map[string][]plan.TaskType

// Handler serves the A2A discovery endpoint. Runs are one-shot, so the
// card is the whole surface and there is no task submission route.
type Handler struct {
	baseURL      string
	capabilities CapabilityLister
}

// NewHandler creates an A2A handler. capabilities is consulted on every
// card request, so handlers registered later still appear.
func NewHandler(baseURL string, capabilities CapabilityLister) *Handler {
	return &Handler{baseURL: baseURL, capabilities: capabilities}
}

// MountRoutes registers the A2A discovery route on the given chi router.
// It is mounted at the root level, not under /api/v1.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/.well-known/agent.json", h.handleAgentCard)
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, _ *http.Request) {
	var caps map[string][]plan.TaskType
	if h.capabilities != nil {
		caps = h.capabilities()
	}
	card := BuildAgentCard(h.baseURL, caps)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(card)
}
