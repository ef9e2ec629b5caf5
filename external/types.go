// Package external implements the bidirectional External-MCP Integration:
// supervising subprocess/HTTP/websocket/streamable-HTTP connections to
// upstream MCP servers, correlating requests, and forwarding capability
// calls (sampling, elicitation) back toward the originating client within
// the bounds of ProxyCapabilities.Intersect.
package external

import (
	"context"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

// State tracks one external server's connection lifecycle.
type State string

const (
	StateStarting   State = "starting"
	StateReady      State = "ready"
	StateDegraded   State = "degraded"
	StateRestarting State = "restarting"
	StateStopped    State = "stopped"
)

// InboundHandler answers a request an external server pushed toward the
// proxy (sampling/createMessage, elicitation/request). The router and
// session layers supply the concrete implementation; this package only
// needs the shape to wire a transport's inbound channel to it.
type InboundHandler func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error)

// Hooks are the lifecycle callbacks a supervisor invokes. Every field is
// optional; a nil hook is simply not called.
type Hooks struct {
	OnServerReady        func(serverID string)
	OnServerDisconnected func(serverID string, err error)
	OnCapabilityChange   func(serverID string, caps magictunnel.ClientCapabilities)
}

// Transport is the common seam every wire format (stdio, http, websocket,
// streamable-http) implements. Connect establishes the underlying channel;
// Call sends a proxy-initiated request and waits for its correlated
// response; SetInboundHandler registers the callback for server-initiated
// requests arriving on transports that support them (stdio, websocket,
// streamable-http — not plain http, which is request/response only).
type Transport interface {
	Connect(ctx context.Context) error
	Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error)
	SetInboundHandler(h InboundHandler)
	SupportsInbound() bool
	Close() error
}

// ServerStatus is the read-only snapshot of a supervised server exposed to
// the composition root (for a diagnostics/validate-capabilities command).
type ServerStatus struct {
	ID                 string
	State              State
	ConsecutiveFailures int
	LastError          error
	LastTransition     time.Time
}
