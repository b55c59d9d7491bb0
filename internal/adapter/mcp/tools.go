package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tbellamy/maestro/internal/domain/task"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.runOrchestrationTool(),
		s.listCapabilitiesTool(),
	)
}

func (s *Server) runOrchestrationTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("run_orchestration",
		mcplib.WithDescription("Run a natural language request through the agent orchestration pipeline and return the aggregated result"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The natural language request to orchestrate"),
		),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRunOrchestration,
	}
}

func (s *Server) listCapabilitiesTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("list_capabilities",
		mcplib.WithDescription("List the registered agent handlers and the task types each one can execute"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleListCapabilities,
	}
}

func (s *Server) handleRunOrchestration(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Runner == nil {
		return mcplib.NewToolResultError("orchestration runner not configured"), nil
	}
	args := req.GetArguments()
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcplib.NewToolResultError("query is required"), nil
	}

	// Domain failures (planning errors, failed steps) come back inside the
	// result with an error status; only request validation fails here.
	res, err := s.deps.Runner.RunOrchestration(ctx, &task.Request{Query: query})
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("orchestration rejected", err), nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return toolResultJSON(string(data)), nil
}

func (s *Server) handleListCapabilities(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Capabilities == nil {
		return mcplib.NewToolResultError("capability lister not configured"), nil
	}
	data, err := json.Marshal(capabilitiesPayload(s.deps.Capabilities))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal capabilities", err), nil
	}
	return toolResultJSON(string(data)), nil
}

// capabilitiesPayload builds the document served by both the
// list_capabilities tool and the capabilities resource. It mirrors the
// shape of the HTTP capabilities endpoint.
func capabilitiesPayload(lister CapabilityLister) map[string]any {
	return map[string]any{
		"agents":       lister.HandlerNames(),
		"capabilities": lister.GetCapabilities(),
	}
}
