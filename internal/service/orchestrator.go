package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	maestrotel "github.com/tbellamy/maestro/internal/adapter/otel"
	"github.com/tbellamy/maestro/internal/adapter/ws"
	"github.com/tbellamy/maestro/internal/domain"
	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/domain/task"
	"github.com/tbellamy/maestro/internal/logger"
	"github.com/tbellamy/maestro/internal/port/broadcast"
	"github.com/tbellamy/maestro/internal/port/messagequeue"
)

// OrchestratorService is the facade boundary adapters call. One
// RunOrchestration delivers a single normalized result regardless of how
// many handler invocations happened underneath.
type OrchestratorService struct {
	engine     *ExecutionEngine
	registry   *CapabilityRegistry
	normalizer *ResponseNormalizer
	hub        broadcast.Broadcaster
	queue      messagequeue.Queue
	metrics    *maestrotel.Metrics
}

// NewOrchestratorService creates the facade. hub, queue, and metrics may be nil.
func NewOrchestratorService(
	engine *ExecutionEngine,
	registry *CapabilityRegistry,
	normalizer *ResponseNormalizer,
	hub broadcast.Broadcaster,
	queue messagequeue.Queue,
	metrics *maestrotel.Metrics,
) *OrchestratorService {
	return &OrchestratorService{
		engine:     engine,
		registry:   registry,
		normalizer: normalizer,
		hub:        hub,
		queue:      queue,
		metrics:    metrics,
	}
}

// RunOrchestration executes one request end to end: validate, assign a run
// ID, delegate to the engine, normalize. The error return covers only nil
// or invalid requests; planning and step failures come back as error-status
// results, never as Go errors.
func (s *OrchestratorService) RunOrchestration(ctx context.Context, req *task.Request) (*run.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	ctx, span := maestrotel.StartRunSpan(ctx, runID, len(req.Query))
	defer span.End()

	if s.metrics != nil {
		s.metrics.RunsStarted.Add(ctx, 1)
	}
	broadcastEvent(ctx, s.hub, ws.EventRunAccepted, ws.RunAcceptedEvent{
		RunID: runID,
		Query: req.Query,
	})
	slog.Info("orchestration accepted",
		"run_id", runID, "query_len", len(req.Query), "attachments", len(req.Attachments))

	start := time.Now()
	res := s.engine.Execute(ctx, req)
	res.RunID = runID
	res = s.normalizer.Normalize(res, req.Query)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.String("run.status", string(res.Status)),
		attribute.Int("run.plan_size", len(res.Metadata.Plan)),
	)
	if s.metrics != nil {
		s.metrics.RunDuration.Record(ctx, duration.Seconds())
	}

	if res.Status == run.StatusCompleted {
		s.finishCompleted(ctx, runID, res, duration)
	} else {
		span.SetStatus(codes.Error, res.Summary)
		s.finishFailed(ctx, runID, res)
	}
	return res, nil
}

func (s *OrchestratorService) finishCompleted(ctx context.Context, runID string, res *run.Result, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RunsCompleted.Add(ctx, 1)
	}
	broadcastEvent(ctx, s.hub, ws.EventRunCompleted, ws.RunCompletedEvent{
		RunID:          runID,
		Summary:        res.Summary,
		AgentsExecuted: res.AgentsExecuted,
	})
	publishEvent(ctx, s.queue, messagequeue.SubjectRunCompleted, messagequeue.RunCompletedPayload{
		RunID:          runID,
		Summary:        res.Summary,
		AgentsExecuted: res.AgentsExecuted,
		DurationMS:     duration.Milliseconds(),
	})
	slog.Info("orchestration completed",
		"run_id", runID, "agents", res.AgentsExecuted,
		"chained", res.Metadata.WasChained, "duration_ms", duration.Milliseconds())
}

func (s *OrchestratorService) finishFailed(ctx context.Context, runID string, res *run.Result) {
	if s.metrics != nil {
		s.metrics.RunsFailed.Add(ctx, 1)
	}

	// FailedStepIndex is nil for planning failures; the queue payload
	// encodes those as index -1.
	failedIndex := -1
	failedType := ""
	if res.Metadata.FailedStepIndex != nil {
		failedIndex = *res.Metadata.FailedStepIndex
		if failedIndex >= 0 && failedIndex < len(res.Metadata.Plan) {
			failedType = res.Metadata.Plan[failedIndex]
		}
	}
	errMsg := res.Summary
	if res.Metadata.ErrorDetails != nil && res.Metadata.ErrorDetails.ErrorMessage != "" {
		errMsg = res.Metadata.ErrorDetails.ErrorMessage
	}

	broadcastEvent(ctx, s.hub, ws.EventRunFailed, ws.RunFailedEvent{
		RunID:           runID,
		Summary:         res.Summary,
		FailedStepIndex: res.Metadata.FailedStepIndex,
	})
	publishEvent(ctx, s.queue, messagequeue.SubjectRunFailed, messagequeue.RunFailedPayload{
		RunID:           runID,
		FailedStepIndex: failedIndex,
		TaskType:        failedType,
		Error:           errMsg,
	})
	slog.Warn("orchestration failed", "run_id", runID, "failed_step", failedIndex, "error", errMsg)
}

// GetCapabilities returns each registered handler's declared task types.
func (s *OrchestratorService) GetCapabilities() map[string][]plan.TaskType {
	return s.registry.ListCapabilities()
}

// HandlerNames returns registered handler names in registration order.
func (s *OrchestratorService) HandlerNames() []string {
	return s.registry.Names()
}
