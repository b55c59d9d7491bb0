// Package domain carries sentinel errors shared across the service and
// adapter layers. Subpackages define the orchestration model itself.
package domain

import "errors"

// ErrNotFound marks lookups for handlers, runs, or other entities that
// are not registered.
var ErrNotFound = errors.New("not found")

// ErrInvalidRequest marks requests rejected before any work starts.
// Callers wrap it with the offending detail.
var ErrInvalidRequest = errors.New("invalid request")
