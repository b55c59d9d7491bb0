package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	asyncQueueSize = 4096
	asyncWorkers   = 2
)

// Closer allows flushing and stopping a buffering handler.
type Closer interface {
	Close()
}

// nopCloser is a no-op Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples log emission from serialization: Handle
// enqueues the record and returns immediately, background workers
// write it out. When the queue is full the record is dropped rather
// than blocking the caller.
type AsyncHandler struct {
	inner slog.Handler
	queue chan asyncItem
	wg    *sync.WaitGroup
	drops *atomic.Int64
}

// asyncItem pairs a record with the handler that accepted it, so a
// record enqueued through a derived handler keeps that handler's
// attributes and groups when a shared worker writes it out.
type asyncItem struct {
	handler slog.Handler
	rec     slog.Record
}

// NewAsyncHandler starts workers goroutines draining a queue of the
// given capacity into inner.
func NewAsyncHandler(inner slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner: inner,
		queue: make(chan asyncItem, capacity),
		wg:    &sync.WaitGroup{},
		drops: &atomic.Int64{},
	}
	for range workers {
		h.wg.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.wg.Done()
	for item := range h.queue {
		_ = item.handler.Handle(context.Background(), item.rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record. Drops if the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- asyncItem{handler: h.inner, rec: rec}:
	default:
		h.drops.Add(1)
	}
	return nil
}

// WithAttrs returns a new AsyncHandler sharing the same queue but wrapping a new inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{
		inner: h.inner.WithAttrs(attrs),
		queue: h.queue,
		wg:    h.wg,
		drops: h.drops,
	}
}

// WithGroup returns a new AsyncHandler sharing the same queue but wrapping a new inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{
		inner: h.inner.WithGroup(name),
		queue: h.queue,
		wg:    h.wg,
		drops: h.drops,
	}
}

// DroppedCount returns the number of dropped records.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.drops.Load()
}

// Close closes the queue and waits for all workers to drain.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.wg.Wait()
}
