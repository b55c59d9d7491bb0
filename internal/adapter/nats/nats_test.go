package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tbellamy/maestro/internal/logger"
	"github.com/tbellamy/maestro/internal/port/messagequeue"
)

// Most tests in this file talk to a live broker and are skipped unless
// NATS_URL points at a JetStream-enabled server.
func startQueue(t *testing.T) *Queue {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("set NATS_URL to run NATS integration tests")
	}

	q, err := Connect(context.Background(), url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := q.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return q
}

// testSubject returns a subject unique to this test run under the
// orchestration.test. prefix. The stream wildcard captures it, and no
// schema is registered for it, so any well-formed JSON passes validation.
// The nonce keeps messages retained from earlier runs away from the
// fresh ephemeral consumers these tests create.
func testSubject(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("orchestration.test.%s.%d", t.Name(), time.Now().UnixNano())
}

// watchDLQ consumes the dead letter subject for subj through a raw
// JetStream consumer. Going under Subscribe keeps the dead letter copy
// from being validated a second time, and DeliverNewPolicy hides
// anything parked there before the watch started.
func watchDLQ(t *testing.T, q *Queue, subj string) <-chan []byte {
	t.Helper()

	out := make(chan []byte, 1)
	cons, err := q.js.CreateOrUpdateConsumer(context.Background(), streamName, jetstream.ConsumerConfig{
		FilterSubject: subj + dlqSuffix,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		t.Fatalf("dlq consumer: %v", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		select {
		case out <- msg.Data():
		default:
		}
		_ = msg.Ack()
	})
	if err != nil {
		t.Fatalf("dlq consume: %v", err)
	}
	t.Cleanup(cc.Stop)
	return out
}

// awaitBytes receives one payload from ch or fails the test.
func awaitBytes(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(timeout):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

var errBoom = errors.New("synthetic handler failure")

func TestPublishDeliversToSubscriber(t *testing.T) {
	q := startQueue(t)
	subject := testSubject(t)
	ctx := context.Background()

	type note struct {
		Text string `json:"text"`
	}
	payload, err := json.Marshal(note{Text: "round trip"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got := make(chan []byte, 1)
	subjects := make(chan string, 1)
	stop, err := q.Subscribe(ctx, subject, func(_ context.Context, subj string, data []byte) error {
		select {
		case got <- data:
			subjects <- subj
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(ctx, subject, payload); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	data := awaitBytes(t, got, 5*time.Second)
	var delivered note
	if err := json.Unmarshal(data, &delivered); err != nil {
		t.Fatalf("unmarshal delivered payload: %v", err)
	}
	if delivered.Text != "round trip" {
		t.Errorf("delivered text = %q, want %q", delivered.Text, "round trip")
	}
	if subj := <-subjects; subj != subject {
		t.Errorf("handler subject = %q, want %q", subj, subject)
	}
}

func TestRequestIDTravelsWithMessage(t *testing.T) {
	q := startQueue(t)
	subject := testSubject(t)

	const reqID = "req-7f3a"
	ids := make(chan string, 1)
	stop, err := q.Subscribe(context.Background(), subject, func(ctx context.Context, _ string, _ []byte) error {
		select {
		case ids <- logger.RequestID(ctx):
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	ctx := logger.WithRequestID(context.Background(), reqID)
	if err := q.Publish(ctx, subject, []byte(`{"ping":1}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-ids:
		if got != reqID {
			t.Errorf("request ID in handler = %q, want %q", got, reqID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestFailingHandlerIsRetried(t *testing.T) {
	q := startQueue(t)
	subject := testSubject(t)
	ctx := context.Background()

	var attempts atomic.Int32
	done := make(chan struct{})
	stop, err := q.Subscribe(ctx, subject, func(_ context.Context, _ string, _ []byte) error {
		n := attempts.Add(1)
		if n < 3 {
			return errBoom
		}
		if n == 3 {
			close(done)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(ctx, subject, []byte(`{"flaky":true}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out after %d attempts, want 3", attempts.Load())
	}
	if n := attempts.Load(); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestMalformedPayloadSkipsRetries(t *testing.T) {
	q := startQueue(t)
	ctx := context.Background()

	// orchestration.started carries a registered schema, so a payload
	// that is not JSON at all fails validation on first delivery and
	// moves straight to the dead letter subject.
	subject := messagequeue.SubjectRunStarted
	dlq := watchDLQ(t, q, subject)

	// The stream retains messages from earlier runs, and a fresh
	// consumer replays them. Every payload this test expects on the
	// subject is invalid, so the handler stays untouched either way.
	stop, err := q.Subscribe(ctx, subject, func(_ context.Context, _ string, _ []byte) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	if err := q.Publish(ctx, subject, []byte("not-json")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if data := awaitBytes(t, dlq, 10*time.Second); string(data) != "not-json" {
		t.Errorf("dead letter payload = %q, want %q", data, "not-json")
	}
}

func TestExhaustedRetriesLandInDLQ(t *testing.T) {
	q := startQueue(t)
	subject := testSubject(t)
	ctx := context.Background()

	dlq := watchDLQ(t, q, subject)

	stop, err := q.Subscribe(ctx, subject, func(_ context.Context, _ string, _ []byte) error {
		return errBoom
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	// Seed the retry counter at the cap so the first handler failure
	// sends the message to the dead letter subject instead of requeueing.
	msg := &nats.Msg{
		Subject: subject,
		Data:    []byte(`{"exhausted":true}`),
		Header:  nats.Header{},
	}
	msg.Header.Set(headerRetryCount, "3")
	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		t.Fatalf("PublishMsg: %v", err)
	}

	if data := awaitBytes(t, dlq, 10*time.Second); string(data) != `{"exhausted":true}` {
		t.Errorf("dead letter payload = %q, want %q", data, `{"exhausted":true}`)
	}
}

func TestKeyValueBucketRoundTrip(t *testing.T) {
	q := startQueue(t)
	ctx := context.Background()

	kv, err := q.KeyValue(ctx, "test-kv-"+t.Name(), 30*time.Second)
	if err != nil {
		t.Fatalf("KeyValue: %v", err)
	}

	if _, err := kv.Put(ctx, "greeting", []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entry, err := kv.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := string(entry.Value()); got != "hello" {
		t.Errorf("value = %q, want %q", got, "hello")
	}

	if _, err := kv.Put(ctx, "greeting", []byte("world")); err != nil {
		t.Fatalf("Put update: %v", err)
	}
	entry, err = kv.Get(ctx, "greeting")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if got := string(entry.Value()); got != "world" {
		t.Errorf("updated value = %q, want %q", got, "world")
	}

	if err := kv.Delete(ctx, "greeting"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := kv.Get(ctx, "greeting"); !errors.Is(err, jetstream.ErrKeyNotFound) {
		t.Errorf("Get after delete = %v, want ErrKeyNotFound", err)
	}
}

func TestIsConnectedReportsLiveConnection(t *testing.T) {
	q := startQueue(t)

	if !q.IsConnected() {
		t.Error("IsConnected() = false after Connect, want true")
	}
}

// retryCount needs no broker, so these cases always run.
func TestRetryCountHeader(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{name: "absent", value: "", want: 0},
		{name: "valid", value: "2", want: 2},
		{name: "garbage", value: "many", want: 0},
		{name: "negative", value: "-1", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hdrs := nats.Header{}
			if tt.value != "" {
				hdrs.Set(headerRetryCount, tt.value)
			}
			if got := retryCount(hdrs); got != tt.want {
				t.Errorf("retryCount(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
