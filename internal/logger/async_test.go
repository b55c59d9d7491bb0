package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// captureHandler records the message text of every record it handles.
type captureHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.mu.Lock()
	h.msgs = append(h.msgs, rec.Message)
	h.mu.Unlock()
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func (h *captureHandler) first() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.msgs) == 0 {
		return ""
	}
	return h.msgs[0]
}

// gatedHandler signals on entered when a worker reaches it, then holds
// the worker until release is closed. It lets tests pin a worker
// mid-record without sleeping.
type gatedHandler struct {
	captureHandler
	entered chan struct{}
	release chan struct{}
}

func (h *gatedHandler) Handle(ctx context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	h.entered <- struct{}{}
	<-h.release
	return h.captureHandler.Handle(ctx, rec)
}

func record(msg string) slog.Record {
	return slog.NewRecord(time.Now(), slog.LevelInfo, msg, 0)
}

func TestAsyncHandlerDeliversInBackground(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 16, 1)

	if err := ah.Handle(context.Background(), record("deferred write")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	ah.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("records written = %d, want 1", got)
	}
	if got := inner.first(); got != "deferred write" {
		t.Errorf("message = %q, want %q", got, "deferred write")
	}
}

func TestAsyncHandlerFanIn(t *testing.T) {
	const producers = 50
	const perProducer = 40

	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, producers*perProducer, 4)

	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				_ = ah.Handle(context.Background(), record("fan-in"))
			}
		}()
	}
	wg.Wait()
	ah.Close()

	if got, want := inner.count(), producers*perProducer; got != want {
		t.Fatalf("records written = %d, want %d", got, want)
	}
}

func TestAsyncHandlerDropsWhenSaturated(t *testing.T) {
	inner := &gatedHandler{
		entered: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	ah := NewAsyncHandler(inner, 1, 1)

	// First record: the worker picks it up and parks inside the inner
	// handler. Second record: sits in the single queue slot. Third
	// record: nowhere to go.
	_ = ah.Handle(context.Background(), record("in flight"))
	<-inner.entered
	_ = ah.Handle(context.Background(), record("queued"))
	_ = ah.Handle(context.Background(), record("overflow"))

	if got := ah.DroppedCount(); got != 1 {
		t.Fatalf("DroppedCount() = %d, want 1", got)
	}

	close(inner.release)
	ah.Close()

	if got := inner.count(); got != 2 {
		t.Errorf("records written = %d, want 2", got)
	}
}

func TestAsyncHandlerCloseDrainsBacklog(t *testing.T) {
	inner := &captureHandler{}
	ah := NewAsyncHandler(inner, 512, 3)

	const total = 300
	for range total {
		_ = ah.Handle(context.Background(), record("backlog"))
	}

	// Close returns only after every queued record reached the inner
	// handler.
	ah.Close()

	if got := inner.count(); got != total {
		t.Fatalf("records written after Close = %d, want %d", got, total)
	}
}

func TestAsyncHandlerKeepsDerivedAttrs(t *testing.T) {
	var buf bytes.Buffer
	ah := NewAsyncHandler(slog.NewJSONHandler(&buf, nil), 16, 1)
	derived := ah.WithAttrs([]slog.Attr{slog.String("component", "ws")})

	_ = ah.Handle(context.Background(), record("from parent"))
	_ = derived.Handle(context.Background(), record("from derived"))

	// Closing the parent drains records enqueued through the derived
	// handler as well. With one worker, write order matches enqueue
	// order.
	ah.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2\n%s", len(lines), buf.String())
	}
	var parent, child map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &parent); err != nil {
		t.Fatalf("parse parent line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &child); err != nil {
		t.Fatalf("parse derived line: %v", err)
	}
	if _, ok := parent["component"]; ok {
		t.Errorf("parent record carries component attr: %v", parent)
	}
	if child["component"] != "ws" {
		t.Errorf("derived record component = %v, want %q", child["component"], "ws")
	}
}
