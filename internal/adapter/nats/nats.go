// Package nats implements the message queue port using NATS JetStream.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tbellamy/maestro/internal/logger"
	"github.com/tbellamy/maestro/internal/port/messagequeue"
)

const (
	streamName = "MAESTRO"

	// headerRequestID carries the request ID across the queue so
	// subscribers log under the same ID as the publisher.
	headerRequestID = "Request-Id"

	// headerRetryCount tracks how many times a message has been
	// redelivered after handler failures.
	headerRetryCount = "Retry-Count"

	// maxRetries is the number of handler attempts before a message
	// moves to its dead letter subject.
	maxRetries = 3

	// dlqSuffix is appended to a subject to form its dead letter subject.
	dlqSuffix = ".dlq"

	// internalPublishTimeout bounds requeue and DLQ publishes, which run
	// outside any caller context.
	internalPublishTimeout = 5 * time.Second
)

// Queue implements messagequeue.Queue using NATS JetStream.
type Queue struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream exists.
func Connect(ctx context.Context, url string) (*Queue, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	// The single wildcard also captures the per-subject DLQ subjects
	// (orchestration.<topic>.dlq).
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"orchestration.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Queue{nc: nc, js: js}, nil
}

// Publish sends a message to the given subject. The request ID from ctx,
// if any, travels with the message as a header.
func (q *Queue) Publish(ctx context.Context, subject string, data []byte) error {
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	if id := logger.RequestID(ctx); id != "" {
		msg.Header.Set(headerRequestID, id)
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for messages on the given subject.
// Payloads are validated against the subject's schema before dispatch;
// invalid messages go straight to the DLQ. Handler failures are retried
// up to maxRetries times, then the message moves to the DLQ as well.
func (q *Queue) Subscribe(ctx context.Context, subject string, handler messagequeue.Handler) (func(), error) {
	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		q.dispatch(msg, handler)
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}

	return cons.Stop, nil
}

// dispatch validates and handles a single delivered message.
func (q *Queue) dispatch(msg jetstream.Msg, handler messagequeue.Handler) {
	subject := msg.Subject()

	// A malformed payload can never succeed, so it skips retries.
	if err := messagequeue.Validate(subject, msg.Data()); err != nil {
		slog.Warn("message failed validation", "subject", subject, "error", err)
		q.moveToDLQ(msg)
		return
	}

	ctx := context.Background()
	if id := msg.Headers().Get(headerRequestID); id != "" {
		ctx = logger.WithRequestID(ctx, id)
	}

	if err := handler(ctx, subject, msg.Data()); err != nil {
		retries := retryCount(msg.Headers())
		if retries >= maxRetries {
			slog.Error("message handler failed, retries exhausted",
				"subject", subject, "retries", retries, "error", err)
			q.moveToDLQ(msg)
			return
		}
		slog.Error("message handler failed, requeueing",
			"subject", subject, "attempt", retries+1, "error", err)
		q.requeue(msg, retries+1)
		return
	}

	if ackErr := msg.Ack(); ackErr != nil {
		slog.Error("nats ack failed", "subject", subject, "error", ackErr)
	}
}

// requeue republishes the message with an incremented retry count and
// acks the original so JetStream does not redeliver it on its own.
func (q *Queue) requeue(msg jetstream.Msg, retries int) {
	out := &nats.Msg{
		Subject: msg.Subject(),
		Data:    msg.Data(),
		Header:  nats.Header{},
	}
	if id := msg.Headers().Get(headerRequestID); id != "" {
		out.Header.Set(headerRequestID, id)
	}
	out.Header.Set(headerRetryCount, strconv.Itoa(retries))

	ctx, cancel := context.WithTimeout(context.Background(), internalPublishTimeout)
	defer cancel()

	if _, err := q.js.PublishMsg(ctx, out); err != nil {
		slog.Error("nats requeue failed", "subject", msg.Subject(), "error", err)
		// Fall back to broker redelivery of the original message.
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "subject", msg.Subject(), "error", err)
	}
}

// moveToDLQ publishes the message payload to the subject's dead letter
// subject and acks the original.
func (q *Queue) moveToDLQ(msg jetstream.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), internalPublishTimeout)
	defer cancel()

	dlqSubject := msg.Subject() + dlqSuffix
	if _, err := q.js.Publish(ctx, dlqSubject, msg.Data()); err != nil {
		slog.Error("nats dlq publish failed", "subject", dlqSubject, "error", err)
		if nakErr := msg.Nak(); nakErr != nil {
			slog.Error("nats nak failed", "error", nakErr)
		}
		return
	}
	if err := msg.Ack(); err != nil {
		slog.Error("nats ack failed", "subject", msg.Subject(), "error", err)
	}
}

// retryCount reads the retry counter header, defaulting to zero when the
// header is absent or malformed.
func retryCount(hdrs nats.Header) int {
	n, err := strconv.Atoi(hdrs.Get(headerRetryCount))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// KeyValue creates or opens a JetStream key-value bucket with the given
// per-entry TTL. Callers wrap the returned bucket in a cache adapter.
func (q *Queue) KeyValue(ctx context.Context, bucket string, ttl time.Duration) (jetstream.KeyValue, error) {
	kv, err := q.js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: bucket,
		TTL:    ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("nats kv bucket %s: %w", bucket, err)
	}
	return kv, nil
}

// Drain processes buffered messages and pending callbacks before closing.
func (q *Queue) Drain() error {
	if err := q.nc.Drain(); err != nil {
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}

// Close shuts down the NATS connection immediately.
func (q *Queue) Close() error {
	q.nc.Close()
	return nil
}

// IsConnected reports whether the NATS connection is currently up.
func (q *Queue) IsConnected() bool {
	return q.nc.IsConnected()
}
