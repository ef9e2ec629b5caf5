package magictunnel

import (
	"context"
	"time"
)

// ToolListMode controls which tools a session sees in tools/list.
type ToolListMode string

const (
	// ToolListModeDefault lists native tools plus smart_tool_discovery when
	// any discoverable tools are registered.
	ToolListModeDefault ToolListMode = ""

	// ToolListModeForceOnDemand is stored with a session like the other
	// modes; tools/list does not act on it and lists tools as in the
	// default mode.
	ToolListModeForceOnDemand ToolListMode = "force_on_demand"

	// ToolListModeShowAll lists every registered tool regardless of visibility.
	ToolListModeShowAll ToolListMode = "show_all"
)

// SessionManager defines the interface for session storage and validation.
// A session tracks the negotiated protocol version, the client's declared
// capabilities (used for bidirectional forwarding gating, see capabilities.go)
// and the tool list mode for one MCP connection.
type SessionManager interface {
	// CreateSession creates a new session and returns its ID.
	CreateSession(ctx context.Context, protocolVersion string, toolMode ToolListMode, clientCaps ClientCapabilities) (sessionID string, err error)

	// ValidateSession checks if a session exists and is valid.
	ValidateSession(ctx context.Context, sessionID string) (valid bool, err error)

	// GetProtocolVersion returns the negotiated protocol version for a session.
	GetProtocolVersion(ctx context.Context, sessionID string) (version string, err error)

	// GetToolMode returns the tool mode for a session.
	GetToolMode(ctx context.Context, sessionID string) (ToolListMode, error)

	// GetClientCapabilities returns the capabilities the client declared at
	// initialize time, used to gate bidirectional forwarding.
	GetClientCapabilities(ctx context.Context, sessionID string) (ClientCapabilities, error)

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes sessions older than maxIdleTime.
	CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error
}
