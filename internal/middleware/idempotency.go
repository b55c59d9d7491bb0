package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nats-io/nats.go/jetstream"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "X-Idempotent-Replay"
	maxStoredBody        = 1 << 20
)

// storedResponse is the KV value kept for one completed execute request.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Idempotency replays the stored response for a POST carrying an
// Idempotency-Key the bucket has already seen, instead of starting a second
// run. 5xx responses are never stored, so retrying after a server fault
// executes for real. The bucket's TTL bounds how long a key is remembered.
func Idempotency(kv jetstream.KeyValue) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(headerIdempotencyKey)
			if r.Method != http.MethodPost || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := bucketKey(clientKey)

			if entry, err := kv.Get(r.Context(), key); err == nil {
				var stored storedResponse
				if err := json.Unmarshal(entry.Value(), &stored); err == nil {
					replay(w, stored)
					return
				}
				slog.Warn("unreadable idempotency entry, executing anew", "key", key)
			}

			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(cw, r)

			if cw.status >= http.StatusInternalServerError || cw.overflowed {
				return
			}
			data, err := json.Marshal(storedResponse{
				Status:      cw.status,
				ContentType: cw.Header().Get("Content-Type"),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return
			}
			// Create, not Put: with two duplicates in flight the first
			// finisher wins and the loser's store is dropped.
			if _, err := kv.Create(r.Context(), key, data); err != nil && !errors.Is(err, jetstream.ErrKeyExists) {
				slog.Warn("idempotency store failed", "key", key, "error", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, stored storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(headerReplayed, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// bucketKey hashes the client-chosen key into the character set JetStream KV
// accepts, whatever the client sent.
func bucketKey(clientKey string) string {
	sum := sha256.Sum256([]byte(clientKey))
	return fmt.Sprintf("idem.%x", sum[:12])
}

// captureWriter tees the response into a buffer while it streams to the
// client, giving up once the body exceeds the storable size.
type captureWriter struct {
	http.ResponseWriter
	status     int
	buf        bytes.Buffer
	overflowed bool
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if !c.overflowed {
		if c.buf.Len()+len(b) > maxStoredBody {
			c.overflowed = true
			c.buf.Reset()
		} else {
			c.buf.Write(b)
		}
	}
	return c.ResponseWriter.Write(b)
}
