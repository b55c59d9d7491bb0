package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// Upper bound on tracked clients before idle entries are pruned inline.
	defaultMaxClients = 100000
	defaultMaxIdle    = 10 * time.Minute
)

// RateLimiter enforces a per-client token bucket on the endpoints it wraps.
// Clients are keyed by connection IP; proxy headers are not consulted because
// a client could set them freely and dodge its own bucket.
type RateLimiter struct {
	mu         sync.Mutex
	clients    map[string]*clientState
	rate       float64
	burst      float64
	maxClients int
	maxIdle    time.Duration
	now        func() time.Time
}

// clientState is one client's bucket. Tokens are refilled lazily from the
// time of the last take, so idle clients cost nothing between requests.
type clientState struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter that sustains rate requests per second
// per client and absorbs bursts up to burst requests.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:    make(map[string]*clientState),
		rate:       rate,
		burst:      float64(burst),
		maxClients: defaultMaxClients,
		maxIdle:    defaultMaxIdle,
		now:        time.Now,
	}
}

// Handler wraps next with the limit. Rejected requests get 429 with a
// Retry-After hint; every response carries the limit headers.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, wait := rl.take(clientKey(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(rl.burst)))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for key. When the bucket is empty it reports how
// long until the next token accrues. A full client table is pruned inline;
// if it is still full the request passes untracked rather than letting table
// pressure turn into denied service for new clients.
func (rl *RateLimiter) take(key string) (ok bool, remaining int, wait time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	st, tracked := rl.clients[key]
	if !tracked {
		if len(rl.clients) >= rl.maxClients {
			rl.pruneLocked(now.Add(-rl.maxIdle))
		}
		if len(rl.clients) >= rl.maxClients {
			return true, int(rl.burst) - 1, 0
		}
		rl.clients[key] = &clientState{tokens: rl.burst - 1, seen: now}
		return true, int(rl.burst) - 1, 0
	}

	st.tokens = math.Min(rl.burst, st.tokens+now.Sub(st.seen).Seconds()*rl.rate)
	st.seen = now

	if st.tokens < 1 {
		return false, 0, time.Duration((1 - st.tokens) / rl.rate * float64(time.Second))
	}
	st.tokens--
	return true, int(st.tokens), 0
}

// StartCleanup drops clients idle longer than maxIdle, checking every
// interval. The returned stop function ends the loop.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	rl.mu.Lock()
	rl.maxIdle = maxIdle
	rl.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.mu.Lock()
				rl.pruneLocked(rl.now().Add(-maxIdle))
				rl.mu.Unlock()
			}
		}
	}()
	return cancel
}

// pruneLocked removes clients not seen since cutoff. Caller holds mu.
func (rl *RateLimiter) pruneLocked(cutoff time.Time) {
	for key, st := range rl.clients {
		if st.seen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Len reports the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientKey is the connection IP without the port. RemoteAddr comes from the
// accepted connection, so it cannot be forged the way forwarding headers can.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
