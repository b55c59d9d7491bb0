package a2a

import (
	"maps"
	"slices"
	"strings"

	"github.com/tbellamy/maestro/internal/domain/plan"
)

// AgentCard is the discovery document served under /.well-known.
// Field names are fixed by the A2A protocol.
type AgentCard struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	Version      string       `json:"version"`
	Skills       []Skill      `json:"skills"`
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities flags optional protocol features this agent supports.
type Capabilities struct {
	Streaming bool `json:"streaming"`
}

// Skill advertises one callable capability.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	InputModes  []string `json:"inputModes"`
	OutputModes []string `json:"outputModes"`
}

// BuildAgentCard assembles the card from the registered handlers'
// declared capabilities, one skill per handler. Skills are sorted by
// handler name so the card is stable across restarts.
func BuildAgentCard(baseURL string, capabilities map[string][]plan.TaskType) AgentCard {
	skills := make([]Skill, 0, len(capabilities))
	for _, name := range slices.Sorted(maps.Keys(capabilities)) {
		types := make([]string, 0, len(capabilities[name]))
		for _, tt := range capabilities[name] {
			types = append(types, string(tt))
		}
		skills = append(skills, Skill{
			ID:          name,
			Name:        name + " handler",
			Description: "Executes task types: " + strings.Join(types, ", "),
			InputModes:  []string{"text"},
			OutputModes: []string{"text"},
		})
	}

	return AgentCard{
		Name:         "Maestro",
		Description:  "Multi-agent task orchestration service",
		URL:          baseURL,
		Version:      "0.1.0",
		Skills:       skills,
		Capabilities: Capabilities{Streaming: true},
	}
}
