// Package broadcast defines the port for pushing progress events to
// connected clients.
package broadcast

import "context"

// Broadcaster sends a typed event to every connected client. Delivery is
// best-effort: orchestration never waits on, or fails because of, a
// broadcast.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Nop is a Broadcaster that discards every event. It stands in when the
// websocket hub is not wired (tests, MCP-only deployments).
type Nop struct{}

// BroadcastEvent implements Broadcaster.
func (Nop) BroadcastEvent(context.Context, string, any) {}
