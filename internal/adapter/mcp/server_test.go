package mcp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	maestromcp "github.com/tbellamy/maestro/internal/adapter/mcp"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/domain/task"
)

// --- Mocks ---

type mockRunner struct {
	lastReq *task.Request
	result  *run.Result
	err     error
}

func (m *mockRunner) RunOrchestration(_ context.Context, req *task.Request) (*run.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

type mockCapabilities struct {
	caps  map[string][]plan.TaskType
	names []string
}

func (m *mockCapabilities) GetCapabilities() map[string][]plan.TaskType { return m.caps }

func (m *mockCapabilities) HandlerNames() []string { return m.names }

// --- Tests ---

func TestNewServer(t *testing.T) {
	cfg := maestromcp.ServerConfig{
		Addr:    ":3001",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := maestromcp.NewServer(cfg, maestromcp.ServerDeps{})
	if s == nil {
		t.Fatal("NewServer returned nil")
	}
	if s.MCPServer() == nil {
		t.Fatal("MCPServer() returned nil")
	}
}

func TestServerStartStop(t *testing.T) {
	cfg := maestromcp.ServerConfig{
		Addr:    ":0",
		Name:    "test-server",
		Version: "0.1.0",
	}
	s := maestromcp.NewServer(cfg, maestromcp.ServerDeps{})

	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestToolRegistration(t *testing.T) {
	deps := maestromcp.ServerDeps{
		Runner: &mockRunner{result: &run.Result{Status: run.StatusCompleted}},
		Capabilities: &mockCapabilities{
			names: []string{"file", "analysis"},
			caps: map[string][]plan.TaskType{
				"file":     {plan.TypeFileProcessing},
				"analysis": {plan.TypeAnalysis},
			},
		},
	}
	s := maestromcp.NewServer(maestromcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	tools := s.MCPServer().ListTools()
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}

	expectedTools := map[string]bool{
		"run_orchestration": false,
		"list_capabilities": false,
	}
	for name := range tools {
		if _, ok := expectedTools[name]; ok {
			expectedTools[name] = true
		} else {
			t.Errorf("unexpected tool: %s", name)
		}
	}
	for name, found := range expectedTools {
		if !found {
			t.Errorf("expected tool %q not registered", name)
		}
	}
}

func TestHandleRunOrchestration(t *testing.T) {
	runner := &mockRunner{
		result: &run.Result{
			RunID:          "run-1",
			Status:         run.StatusCompleted,
			Summary:        "analysis done",
			Query:          "analyze our churn numbers",
			AgentsExecuted: []string{"analysis"},
			Metadata:       run.Metadata{Plan: []string{"analysis"}},
		},
	}
	s := maestromcp.NewServer(maestromcp.ServerConfig{Name: "test", Version: "0.1.0"}, maestromcp.ServerDeps{Runner: runner})

	tools := s.MCPServer().ListTools()
	runTool, ok := tools["run_orchestration"]
	if !ok {
		t.Fatal("run_orchestration tool not found")
	}

	ctx := context.Background()
	result, err := runTool.Handler(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "run_orchestration",
			Arguments: map[string]any{"query": "analyze our churn numbers"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	if runner.lastReq == nil || runner.lastReq.Query != "analyze our churn numbers" {
		t.Fatalf("runner received request %+v", runner.lastReq)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var res run.Result
	if err := json.Unmarshal([]byte(text.Text), &res); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if res.RunID != "run-1" {
		t.Errorf("run ID = %q, want %q", res.RunID, "run-1")
	}
	if res.Status != run.StatusCompleted {
		t.Errorf("status = %q, want %q", res.Status, run.StatusCompleted)
	}
}

func TestHandleRunOrchestrationMissingQuery(t *testing.T) {
	s := maestromcp.NewServer(
		maestromcp.ServerConfig{Name: "test", Version: "0.1.0"},
		maestromcp.ServerDeps{Runner: &mockRunner{}},
	)

	tools := s.MCPServer().ListTools()
	runTool, ok := tools["run_orchestration"]
	if !ok {
		t.Fatal("run_orchestration tool not found")
	}

	ctx := context.Background()
	result, err := runTool.Handler(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "run_orchestration"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result for missing query")
	}
}

func TestHandleRunOrchestrationRejected(t *testing.T) {
	runner := &mockRunner{err: errors.New("invalid request: attachment name is required")}
	s := maestromcp.NewServer(
		maestromcp.ServerConfig{Name: "test", Version: "0.1.0"},
		maestromcp.ServerDeps{Runner: runner},
	)

	tools := s.MCPServer().ListTools()
	runTool, ok := tools["run_orchestration"]
	if !ok {
		t.Fatal("run_orchestration tool not found")
	}

	ctx := context.Background()
	result, err := runTool.Handler(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "run_orchestration",
			Arguments: map[string]any{"query": "analyze this"},
		},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result when the runner rejects the request")
	}
}

func TestHandleNilDeps(t *testing.T) {
	s := maestromcp.NewServer(maestromcp.ServerConfig{Name: "test", Version: "0.1.0"}, maestromcp.ServerDeps{})

	tools := s.MCPServer().ListTools()
	for _, name := range []string{"run_orchestration", "list_capabilities"} {
		tool, ok := tools[name]
		if !ok {
			t.Fatalf("%s tool not found", name)
		}
		args := map[string]any{}
		if name == "run_orchestration" {
			args["query"] = "analyze this"
		}
		result, err := tool.Handler(context.Background(), mcplib.CallToolRequest{
			Params: mcplib.CallToolParams{Name: name, Arguments: args},
		})
		if err != nil {
			t.Fatalf("%s handler error: %v", name, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected error result when deps are nil", name)
		}
	}
}

func TestHandleListCapabilities(t *testing.T) {
	deps := maestromcp.ServerDeps{
		Capabilities: &mockCapabilities{
			names: []string{"file", "research"},
			caps: map[string][]plan.TaskType{
				"file":     {plan.TypeFileProcessing, plan.TypePDFAnalysis},
				"research": {plan.TypeWebResearch},
			},
		},
	}
	s := maestromcp.NewServer(maestromcp.ServerConfig{Name: "test", Version: "0.1.0"}, deps)

	tools := s.MCPServer().ListTools()
	capTool, ok := tools["list_capabilities"]
	if !ok {
		t.Fatal("list_capabilities tool not found")
	}

	ctx := context.Background()
	result, err := capTool.Handler(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: "list_capabilities"},
	})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %v", result.Content)
	}

	text, ok := result.Content[0].(mcplib.TextContent)
	if !ok {
		t.Fatal("expected TextContent")
	}
	var payload struct {
		Agents       []string                   `json:"agents"`
		Capabilities map[string][]plan.TaskType `json:"capabilities"`
	}
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if len(payload.Agents) != 2 || payload.Agents[0] != "file" {
		t.Errorf("agents = %v, want [file research]", payload.Agents)
	}
	if len(payload.Capabilities["file"]) != 2 {
		t.Errorf("file capabilities = %v, want 2 entries", payload.Capabilities["file"])
	}
}
