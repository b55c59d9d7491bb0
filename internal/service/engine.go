package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	maestrotel "github.com/tbellamy/maestro/internal/adapter/otel"
	"github.com/tbellamy/maestro/internal/adapter/ws"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/domain/task"
	"github.com/tbellamy/maestro/internal/logger"
	"github.com/tbellamy/maestro/internal/port/broadcast"
	"github.com/tbellamy/maestro/internal/port/messagequeue"
	"github.com/tbellamy/maestro/internal/port/taskhandler"
)

// ExecutionEngine runs a plan step by step: exactly one handler per step,
// outputs merged forward into the run context, first failure aborts. The
// engine holds no cross-run state; the hub, queue, and metrics side channels
// are best-effort and never alter control flow.
type ExecutionEngine struct {
	registry *CapabilityRegistry
	planner  *IntentPlanner
	hub      broadcast.Broadcaster
	queue    messagequeue.Queue
	metrics  *maestrotel.Metrics
}

// NewExecutionEngine creates an engine. hub, queue, and metrics may be nil.
func NewExecutionEngine(
	registry *CapabilityRegistry,
	planner *IntentPlanner,
	hub broadcast.Broadcaster,
	queue messagequeue.Queue,
	metrics *maestrotel.Metrics,
) *ExecutionEngine {
	return &ExecutionEngine{
		registry: registry,
		planner:  planner,
		hub:      hub,
		queue:    queue,
		metrics:  metrics,
	}
}

// Execute plans and runs one request. Failures are reported inside the
// Result, never as a Go error: a planning failure returns an error-status
// Result with no agents executed, a step failure returns the agents executed
// so far plus the failing step's diagnostics. The run ID, when the caller
// set one, travels in ctx.
func (e *ExecutionEngine) Execute(ctx context.Context, req *task.Request) *run.Result {
	runID := logger.RunID(ctx)

	rctx := run.NewContext(seedFields(req))

	pl, err := e.planner.Plan(req.Query, req.HasAttachments())
	if err != nil {
		var perr *plan.PlanningError
		if !errors.As(err, &perr) {
			perr = &plan.PlanningError{Reason: err.Error()}
		}
		slog.Warn("planning failed", "run_id", runID, "reason", perr.Reason)
		return &run.Result{
			Status:         run.StatusError,
			Summary:        perr.Reason,
			Query:          req.Query,
			AgentsExecuted: []string{},
			Metadata:       run.Metadata{Plan: []string{}},
		}
	}

	planTypes := pl.TaskTypes()
	slog.Info("plan built", "run_id", runID, "plan", planTypes)
	if e.metrics != nil {
		e.metrics.PlanSteps.Record(ctx, int64(len(pl.Steps)))
	}
	publishEvent(ctx, e.queue, messagequeue.SubjectRunStarted, messagequeue.RunStartedPayload{
		RunID: runID,
		Query: req.Query,
		Plan:  planTypes,
	})

	var (
		executed  []string
		summaries []string
	)

	for i, step := range pl.Steps {
		broadcastEvent(ctx, e.hub, ws.EventStepStarted, ws.StepStartedEvent{
			RunID:     runID,
			StepIndex: i,
			TaskType:  string(step.Type),
		})

		input := buildStepInput(rctx, step.Type, req.Query)
		handlerName, res := e.executeStep(ctx, i, step.Type, input)
		if handlerName != "" {
			executed = append(executed, handlerName)
		}

		publishEvent(ctx, e.queue, messagequeue.SubjectStepExecuted, messagequeue.StepExecutedPayload{
			RunID:     runID,
			StepIndex: i,
			TaskType:  string(step.Type),
			Handler:   handlerName,
			Status:    string(res.Status),
			Summary:   res.Summary,
		})
		if e.metrics != nil {
			e.metrics.StepsExecuted.Add(ctx, 1, metric.WithAttributes(
				attribute.String("task_type", string(step.Type)),
				attribute.String("status", string(res.Status)),
			))
		}

		if res.Status != run.StepOK {
			broadcastEvent(ctx, e.hub, ws.EventStepFailed, ws.StepFailedEvent{
				RunID:     runID,
				StepIndex: i,
				TaskType:  string(step.Type),
				Handler:   handlerName,
				Error:     res.ErrorMessage,
			})
			slog.Error("step failed",
				"run_id", runID, "step", i, "task_type", step.Type,
				"handler", handlerName, "error", res.ErrorMessage)

			failed := i
			if executed == nil {
				executed = []string{}
			}
			return &run.Result{
				Status:         run.StatusError,
				Summary:        fmt.Sprintf("Step %d (%s) failed: %s", i+1, step.Type, res.ErrorMessage),
				Query:          req.Query,
				AgentsExecuted: executed,
				Metadata: run.Metadata{
					Plan:            planTypes,
					FailedStepIndex: &failed,
					ErrorDetails:    res,
				},
			}
		}

		rctx.Merge(res.Fields)
		if res.Summary != "" {
			summaries = append(summaries, res.Summary)
		}
		broadcastEvent(ctx, e.hub, ws.EventStepCompleted, ws.StepCompletedEvent{
			RunID:     runID,
			StepIndex: i,
			TaskType:  string(step.Type),
			Handler:   handlerName,
			Summary:   res.Summary,
		})
		slog.Info("step completed",
			"run_id", runID, "step", i, "task_type", step.Type, "handler", handlerName)
	}

	return &run.Result{
		Status:         run.StatusCompleted,
		Summary:        strings.Join(summaries, " | "),
		Query:          req.Query,
		AgentsExecuted: executed,
		Metadata: run.Metadata{
			Plan:       planTypes,
			WasChained: len(executed) > 1,
		},
	}
}

// executeStep resolves and invokes the handler for one step. The returned
// name is "" when no registered handler was capable. Panics and returned
// errors are converted to error step results here, never propagated raw.
func (e *ExecutionEngine) executeStep(ctx context.Context, index int, taskType plan.TaskType, input *taskhandler.Input) (string, *run.StepResult) {
	capable := e.registry.FindCapable(taskType)
	if len(capable) == 0 {
		return "", &run.StepResult{
			Status:       run.StepError,
			ErrorMessage: fmt.Sprintf("no handler for %s", taskType),
		}
	}

	h := capable[0]
	name := h.Name()

	sctx, span := maestrotel.StartStepSpan(ctx, index, string(taskType), name)
	defer span.End()

	res := e.invoke(sctx, h, input)
	span.SetAttributes(attribute.String("step.status", string(res.Status)))
	if res.Status == run.StepError {
		span.SetStatus(codes.Error, res.ErrorMessage)
	}
	return name, res
}

// invoke runs one handler inside the failure boundary.
func (e *ExecutionEngine) invoke(ctx context.Context, h taskhandler.Handler, input *taskhandler.Input) (res *run.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panic", "handler", h.Name(), "panic", r)
			res = &run.StepResult{
				Status:       run.StepError,
				ErrorMessage: fmt.Sprintf("handler %s panicked: %v", h.Name(), r),
			}
		}
	}()

	out, err := h.Execute(ctx, input)
	if err != nil {
		return &run.StepResult{
			Status:       run.StepError,
			ErrorMessage: fmt.Sprintf("handler %s failed: %v", h.Name(), err),
		}
	}
	if out == nil {
		return &run.StepResult{
			Status:       run.StepError,
			ErrorMessage: fmt.Sprintf("handler %s returned no result", h.Name()),
		}
	}
	return out
}

// seedFields builds the initial run context: request metadata first, then
// the query and attachments so reserved keys cannot be shadowed.
func seedFields(req *task.Request) map[string]any {
	fields := make(map[string]any, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		fields[k] = v
	}
	fields[run.KeyQuery] = req.Query
	if req.HasAttachments() {
		fields[run.KeyAttachments] = req.Attachments
	}
	return fields
}

// buildStepInput snapshots the run context for one step. Analysis-family
// steps get a canonical content field bound to the latest extracted text,
// falling back to the original query, so analysis never runs on empty input.
func buildStepInput(rctx *run.Context, taskType plan.TaskType, query string) *taskhandler.Input {
	fields := rctx.Snapshot()
	fields[run.KeyTaskType] = string(taskType)

	if isAnalysisStep(taskType) {
		content := rctx.GetString(run.KeyExtractedText)
		if content == "" {
			content = query
		}
		fields[run.KeyContent] = content
	}
	return &taskhandler.Input{TaskType: taskType, Fields: fields}
}

func isAnalysisStep(t plan.TaskType) bool {
	switch t {
	case plan.TypeAnalysis, plan.TypeInsights, plan.TypeSummary, plan.TypeReportGeneration:
		return true
	}
	return false
}

// publishEvent marshals and publishes a lifecycle payload. Best-effort: a
// nil queue or a failed publish never affects the run.
func publishEvent(ctx context.Context, q messagequeue.Queue, subject string, payload any) {
	if q == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := q.Publish(ctx, subject, data); err != nil {
		slog.Warn("publish lifecycle event", "subject", subject, "error", err)
	}
}

// broadcastEvent pushes a progress event to the hub, when one is wired.
func broadcastEvent(ctx context.Context, hub broadcast.Broadcaster, eventType string, payload any) {
	if hub == nil {
		return
	}
	hub.BroadcastEvent(ctx, eventType, payload)
}
