package mcp

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// KeySource supplies the API key to check on each request. Reading the key
// per request lets operators rotate it without restarting the server.
type KeySource func() string

// StaticKey returns a KeySource for a fixed key.
func StaticKey(key string) KeySource { return func() string { return key } }

// AuthMiddleware wraps an http.Handler and validates the Authorization
// header against the key source. Both "Bearer <key>" and a bare key are
// accepted. A nil source, or one returning an empty key, disables auth and
// passes all requests through.
func AuthMiddleware(key KeySource, next http.Handler) http.Handler {
	if key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := key()
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			http.Error(w, "invalid credentials", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
