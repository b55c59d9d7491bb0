package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

// registerResources exposes read-only views of the registry over MCP.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"maestro://capabilities",
			"Agent Capabilities",
			mcplib.WithResourceDescription("Registered agent handlers and the task types each one can execute"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleCapabilitiesResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			"maestro://agents",
			"Registered Agents",
			mcplib.WithResourceDescription("Names of the registered agent handlers, in registration order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)
}

// jsonResource marshals v into the single-document JSON envelope that
// MCP resource reads return.
func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCapabilitiesResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Capabilities == nil {
		return jsonResource(req.Params.URI, map[string]string{"error": "capability lister not configured"})
	}
	return jsonResource(req.Params.URI, capabilitiesPayload(s.deps.Capabilities))
}

func (s *Server) handleAgentsResource(_ context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Capabilities == nil {
		return jsonResource(req.Params.URI, map[string]string{"error": "capability lister not configured"})
	}
	return jsonResource(req.Params.URI, s.deps.Capabilities.HandlerNames())
}
