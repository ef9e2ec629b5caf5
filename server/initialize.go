package server

import (
	"fmt"
	"net/http"

	magictunnel "github.com/paularlott/magictunnel"
)

type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Instructions string `json:"instructions,omitempty"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var params initializeParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}

	version := protocolVersionLatest
	if params.ProtocolVersion != "" {
		if !isSupportedProtocolVersion(params.ProtocolVersion) {
			writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, "unsupported protocol version", map[string]interface{}{
				"requested": params.ProtocolVersion,
				"supported": supportedProtocolVersions,
			})
			return
		}
		version = params.ProtocolVersion
	}

	clientCaps := magictunnel.ParseClientCapabilities(params.Capabilities)
	toolMode := magictunnel.ToolListModeDefault
	if magictunnel.GetShowAllFromRequest(r) {
		toolMode = magictunnel.ToolListModeShowAll
	}

	result := initializeResult{
		ProtocolVersion: version,
		Capabilities:    buildCapabilities(version),
		Instructions:    s.instructions,
	}
	result.ServerInfo.Name = s.cfg.Server.Name
	result.ServerInfo.Version = s.cfg.Server.Version

	if s.sessions != nil {
		sessionID, err := s.sessions.CreateSession(r.Context(), version, toolMode, clientCaps)
		if err != nil {
			writeError(w, req.ID, magictunnel.ErrorCodeInternalError, fmt.Sprintf("failed to create session: %v", err), nil)
			return
		}
		w.Header().Set("MCP-Session-Id", sessionID)
	}

	writeResponse(w, req.ID, result)
}

// buildCapabilities reports the tools, resources and prompts capabilities,
// leaving prompts out for protocol version 2024-11-05. Sampling and
// elicitation are not advertised here.
func buildCapabilities(protocolVersion string) map[string]interface{} {
	caps := map[string]interface{}{
		"tools": map[string]interface{}{
			"listChanged": true,
		},
		"resources": map[string]interface{}{
			"subscribe":   false,
			"listChanged": true,
		},
		"prompts": map[string]interface{}{
			"listChanged": true,
		},
	}
	switch protocolVersion {
	case "2024-11-05":
		delete(caps, "prompts")
	}
	return caps
}
