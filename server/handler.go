package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
)

const (
	protocolVersionLatest  = "2025-06-18"
	protocolVersionDefault = "2025-03-26" // assumed when a non-initialize request omits the header
)

var supportedProtocolVersions = []string{
	"2024-11-05",
	"2025-03-26",
	"2025-06-18",
}

func isSupportedProtocolVersion(v string) bool {
	v = strings.TrimSpace(v)
	for _, s := range supportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

type sessionContextKey struct{}

func sessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionContextKey{}).(string)
	return id
}

func withSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, id)
}

// ServeHTTP implements the MCP JSON-RPC transport: CORS, session lifecycle
// via DELETE, the Streamable HTTP duplex stream via GET, and the JSON-RPC
// method dispatch for POST. A POST body with no "method" field is not a new
// request but the client's correlated response to something the server
// pushed down the duplex stream, and is routed there instead of dispatched.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, MCP-Protocol-Version, MCP-Session-Id")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == http.MethodDelete {
		s.handleSessionDelete(w, r)
		return
	}

	if r.Method == http.MethodGet {
		s.handleDuplexStream(w, r)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, nil, magictunnel.ErrorCodeParseError, "parse error", map[string]interface{}{"details": err.Error()})
		return
	}

	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		writeError(w, nil, magictunnel.ErrorCodeParseError, "parse error", map[string]interface{}{"details": err.Error()})
		return
	}
	if probe.Method == nil {
		s.handlePushResponse(w, r, body)
		return
	}

	var req magictunnel.MCPRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, nil, magictunnel.ErrorCodeParseError, "parse error", map[string]interface{}{"details": err.Error()})
		return
	}
	if req.JSONRPC != "2.0" {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidRequest, "invalid request", map[string]interface{}{"details": "jsonrpc must be \"2.0\""})
		return
	}
	if req.ID == nil {
		req.ID = ""
	}

	ctx := magictunnel.WithToolProviders(r.Context(), &diagnosticsProvider{server: s})
	if req.Method != magictunnel.MethodInitialize {
		protocolVersion := r.Header.Get("MCP-Protocol-Version")
		if protocolVersion == "" {
			protocolVersion = protocolVersionDefault
		}
		if !isSupportedProtocolVersion(protocolVersion) {
			http.Error(w, fmt.Sprintf("unsupported MCP-Protocol-Version: %s", protocolVersion), http.StatusBadRequest)
			return
		}

		if s.sessions != nil {
			sessionID := r.Header.Get("MCP-Session-Id")
			if sessionID == "" {
				http.Error(w, "MCP-Session-Id header required", http.StatusBadRequest)
				return
			}
			valid, err := s.sessions.ValidateSession(ctx, sessionID)
			if err != nil {
				http.Error(w, fmt.Sprintf("session validation error: %v", err), http.StatusInternalServerError)
				return
			}
			if !valid {
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
			ctx = withSessionID(ctx, sessionID)

			mode, err := s.sessions.GetToolMode(ctx, sessionID)
			if err == nil && mode == magictunnel.ToolListModeShowAll {
				ctx = magictunnel.WithShowAllTools(ctx)
			}
		} else if magictunnel.GetShowAllFromRequest(r) {
			ctx = magictunnel.WithShowAllTools(ctx)
		}
	}
	r = r.WithContext(ctx)

	switch req.Method {
	case magictunnel.MethodInitialize:
		s.handleInitialize(w, r, &req)
	case magictunnel.MethodPing:
		writeResponse(w, req.ID, map[string]interface{}{})
	case magictunnel.MethodToolsList:
		s.handleToolsList(w, r, &req)
	case magictunnel.MethodToolsCall:
		s.handleToolsCall(w, r, &req)
	case magictunnel.MethodPromptsList:
		s.handlePromptsList(w, r, &req)
	case magictunnel.MethodPromptsGet:
		s.handlePromptsGet(w, r, &req)
	case magictunnel.MethodResourcesList:
		s.handleResourcesList(w, r, &req)
	case magictunnel.MethodResourcesRead:
		s.handleResourcesRead(w, r, &req)
	case magictunnel.MethodLoggingSetLevel:
		writeResponse(w, req.ID, map[string]interface{}{})
	case magictunnel.NotificationInitialized:
		w.WriteHeader(http.StatusAccepted)
	case magictunnel.NotificationCancelled:
		s.handleCancelled(w, r, &req)
	default:
		writeError(w, req.ID, magictunnel.ErrorCodeMethodNotFound, "method not found", map[string]interface{}{"method": req.Method})
	}
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		http.Error(w, "session management not enabled", http.StatusMethodNotAllowed)
		return
	}
	sessionID := r.Header.Get("MCP-Session-Id")
	if sessionID == "" {
		http.Error(w, "MCP-Session-Id header required", http.StatusBadRequest)
		return
	}
	if err := s.sessions.DeleteSession(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("failed to delete session: %v", err), http.StatusInternalServerError)
		return
	}
	s.dropSession(sessionID)
	w.WriteHeader(http.StatusOK)
}

type cancelledParams struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

// handleCancelled aborts the named in-flight request for this session. It's
// a notification, not a request, so it always returns 202 with no body
// regardless of whether the request ID was still tracked.
func (s *Server) handleCancelled(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var params cancelledParams
	_ = parseParams(req, &params)

	sessionID := sessionIDFromContext(r.Context())
	if sessionID != "" && params.RequestID != "" {
		s.groupFor(sessionID).cancel(params.RequestID)
		s.logger.Debug("cancelled in-flight request", zap.String("session", sessionID), zap.String("request_id", params.RequestID))
	}
	w.WriteHeader(http.StatusAccepted)
}
