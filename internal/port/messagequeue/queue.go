// Package messagequeue defines the port for the event stream carrying
// run lifecycle messages between the API process and its consumers.
package messagequeue

import "context"

// Handler processes one delivered message. The context carries the
// publisher's request ID when one was attached.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue publishes and subscribes on named subjects.
type Queue interface {
	// Publish sends data to subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers handler for subject. The returned function
	// stops delivery.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain finishes in-flight deliveries, then closes the connection.
	Drain() error

	// Close drops the connection without waiting.
	Close() error

	// IsConnected reports whether the underlying connection is up.
	IsConnected() bool
}

// Subject constants for the orchestration lifecycle stream. Publishing to
// these is best-effort throughout: a failed publish is logged and the run
// proceeds.
const (
	SubjectRunStarted   = "orchestration.started"
	SubjectRunCompleted = "orchestration.completed"
	SubjectRunFailed    = "orchestration.failed"
	SubjectStepExecuted = "orchestration.step"
)
