package server

import (
	"context"
	"fmt"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

// forwardToClient is the session-layer half of bidirectional forwarding:
// external.Manager calls this when an upstream MCP server pushes a
// sampling/createMessage or elicitation/request toward the proxy. The
// capability-intersection gate already ran in external.Manager before this
// is reached, so by the time we're here the request is known to be within
// what the proxy and the originating client both support — what's left is
// actually delivering it and waiting for the answer.
//
// Correlating the inbound push to "the" client session relies on ctx
// carrying the session ID set at the top of ServeHTTP for the tools/call
// still in flight when the external server decided to ask. Delivery itself
// goes through that session's pushChannel, populated only while the client
// has an open Streamable HTTP GET stream (handleDuplexStream); a client that
// never opened one, or a push arriving with no session on ctx, has nowhere
// to go and is rejected rather than guessed at.
func (s *Server) forwardToClient(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	sessionID := sessionIDFromContext(ctx)
	if sessionID == "" {
		return &magictunnel.MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &magictunnel.MCPError{Code: magictunnel.ErrorCodeInternalError, Message: "no originating client session to forward to"},
		}, nil
	}

	pc, ok := s.pushChannelFor(sessionID)
	if !ok {
		return &magictunnel.MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &magictunnel.MCPError{
				Code:    magictunnel.ErrorCodeInternalError,
				Message: fmt.Sprintf("session %s has no open duplex stream to receive %s; the client must GET with Accept: text/event-stream first", sessionID, req.Method),
			},
		}, nil
	}

	resp, err := pc.send(ctx, req, s.forwardTimeout())
	if err != nil {
		return &magictunnel.MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &magictunnel.MCPError{Code: magictunnel.ErrorCodeInternalError, Message: fmt.Sprintf("forwarding %s to client: %v", req.Method, err)},
		}, nil
	}

	resp.ID = req.ID
	return resp, nil
}

// forwardTimeout bounds how long forwardToClient waits for the client's
// correlated response: ExternalMCP.CorrelationTimeout when set, else 30s.
func (s *Server) forwardTimeout() time.Duration {
	if s.cfg != nil && s.cfg.ExternalMCP.CorrelationTimeout > 0 {
		return s.cfg.ExternalMCP.CorrelationTimeout
	}
	return 30 * time.Second
}

// wireForwarding connects the external manager's bidirectional callback to
// this server's session layer. Call once after constructing both.
func (s *Server) wireForwarding() {
	if s.external != nil {
		s.external.SetForwarder(s.forwardToClient)
	}
}

// ClientCapabilitiesForContext resolves the declared capabilities of the
// session on ctx, if any. Handed to external.NewManager as its clientCaps
// callback so the capability-intersection gate always reflects whichever
// session's in-flight call reached the external server.
func (s *Server) ClientCapabilitiesForContext(ctx context.Context) magictunnel.ClientCapabilities {
	sessionID := sessionIDFromContext(ctx)
	if sessionID == "" || s.sessions == nil {
		return magictunnel.ClientCapabilities{}
	}
	caps, err := s.sessions.GetClientCapabilities(ctx, sessionID)
	if err != nil {
		return magictunnel.ClientCapabilities{}
	}
	return caps
}
