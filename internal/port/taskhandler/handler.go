// Package taskhandler defines the contract every task handler must satisfy.
package taskhandler

import (
	"context"

	"github.com/tbellamy/maestro/internal/domain/plan"
	"github.com/tbellamy/maestro/internal/domain/run"
	"github.com/tbellamy/maestro/internal/domain/task"
)

// Handler is the port interface for a capability-declaring task handler.
// Implementations hold only configuration fixed at construction (plus
// long-lived resources such as a reusable client) and must be safe under
// concurrent Execute invocations.
type Handler interface {
	// Name returns the unique identifier for this handler (e.g. "file", "mail").
	Name() string

	// Capabilities returns every task type this handler declares support for.
	Capabilities() []plan.TaskType

	// CanHandle reports whether this handler services the given task type.
	// It is pure: no side effects, no I/O.
	CanHandle(taskType plan.TaskType) bool

	// Execute performs one step. It may do I/O (file decoding, an outbound
	// call). A returned error or a panic is caught at the engine boundary and
	// converted to an error step result; neither ever reaches callers raw.
	Execute(ctx context.Context, input *Input) (*run.StepResult, error)
}

// Input is the per-step view a handler receives: a shallow copy of the run
// context plus the step's task type. Mutating Fields never affects the run
// context; outputs travel back through StepResult.Fields.
type Input struct {
	TaskType plan.TaskType
	Fields   map[string]any
}

// Query returns the original request text.
func (in *Input) Query() string { return in.str(run.KeyQuery) }

// Content returns the canonical content bound for analysis-family steps:
// previously extracted text when present, the original query otherwise.
func (in *Input) Content() string { return in.str(run.KeyContent) }

// Attachments returns the request attachments, if any.
func (in *Input) Attachments() []task.Attachment {
	if v, ok := in.Fields[run.KeyAttachments]; ok {
		if atts, ok := v.([]task.Attachment); ok {
			return atts
		}
	}
	return nil
}

func (in *Input) str(key string) string {
	if v, ok := in.Fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
