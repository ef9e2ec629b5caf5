package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/registry"
)

func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	tools := s.listTools(r.Context())
	writeResponse(w, req.ID, map[string]interface{}{"tools": tools})
}

// listTools merges native (non-hidden, enabled) registry tools, the
// smart_tool_discovery virtual tool (when discovery is configured and any
// registry tool is hidden, or in show-all mode), and any native tools
// contributed by context-attached ToolProviders. Show-all mode lists
// everything regardless of visibility, for MCP-server chaining. A
// force_on_demand session is listed the same way as the default mode.
func (s *Server) listTools(ctx context.Context) []magictunnel.MCPTool {
	showAll := magictunnel.GetShowAllTools(ctx)

	var snap *registry.Snapshot
	if s.reg != nil {
		snap = s.reg.Snapshot()
	}

	seen := make(map[string]bool)
	var result []magictunnel.MCPTool
	hasDiscoverable := false

	if snap != nil {
		for _, tool := range snap.List() {
			if !tool.Enabled {
				continue
			}
			visible := !tool.Hidden
			discoverable := tool.Hidden
			if discoverable {
				hasDiscoverable = true
			}
			if !showAll && !visible {
				continue
			}
			if seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true
			result = append(result, toMCPTool(tool))
		}
	}

	if providerTools := providerToolsFor(ctx, seen); len(providerTools) > 0 {
		result = append(result, providerTools...)
	}

	if s.discovery != nil && (hasDiscoverable || showAll) && !seen[magictunnel.SmartToolDiscoveryName] {
		result = append(result, smartDiscoveryTool())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func toMCPTool(tool registry.ToolDefinition) magictunnel.MCPTool {
	vis := magictunnel.ToolVisibilityNative
	if tool.Hidden {
		vis = magictunnel.ToolVisibilityDiscoverable
	}
	return magictunnel.MCPTool{
		Name:         tool.Name,
		Description:  tool.Description,
		InputSchema:  tool.InputSchema,
		OutputSchema: tool.OutputSchema,
		Keywords:     tool.Keywords,
		Visibility:   vis,
	}
}

func providerToolsFor(ctx context.Context, seen map[string]bool) []magictunnel.MCPTool {
	showAll := magictunnel.GetShowAllTools(ctx)
	var out []magictunnel.MCPTool
	for _, provider := range magictunnel.GetToolProviders(ctx) {
		tools, err := provider.GetTools(ctx)
		if err != nil {
			continue
		}
		for _, t := range tools {
			if seen[t.Name] {
				continue
			}
			if showAll || t.Visibility == magictunnel.ToolVisibilityNative {
				out = append(out, t)
				seen[t.Name] = true
			}
		}
	}
	return out
}

func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req *magictunnel.MCPRequest) {
	var params magictunnel.ToolCallParams
	if err := parseParams(req, &params); err != nil {
		writeError(w, req.ID, magictunnel.ErrorCodeInvalidParams, "invalid params", nil)
		return
	}

	ctx := r.Context()
	sessionID := sessionIDFromContext(ctx)
	var release func()
	if sessionID != "" {
		var ok bool
		release, ok = s.acquireSlot(ctx, sessionID)
		if !ok {
			writeError(w, req.ID, magictunnel.ErrorCodeInternalError, "too many concurrent requests for this session, retry shortly", nil)
			return
		}
		defer release()

		callCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		reqKey := requestIDKey(req.ID)
		group := s.groupFor(sessionID)
		group.track(reqKey, cancel)
		defer group.untrack(reqKey)
		ctx = callCtx
	}

	result, err := s.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if magictunnel.IsCancelled(err) {
			writeError(w, req.ID, magictunnel.ErrorCodeInternalError, "cancelled", nil)
			return
		}
		if toolErr, ok := err.(*magictunnel.ToolError); ok {
			writeError(w, req.ID, toolErr.Code, toolErr.Message, toolErr.Data)
			return
		}
		writeError(w, req.ID, magictunnel.ErrorCodeInternalError, fmt.Sprintf("tool execution failed: %v", err), nil)
		return
	}

	writeResponse(w, req.ID, result)
}

func requestIDKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// CallTool dispatches a single tools/call by name: the smart_tool_discovery
// virtual tool first, then a registry-routed tool, then context-attached
// ToolProviders as a last resort.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (*magictunnel.ToolResult, error) {
	if name == magictunnel.SmartToolDiscoveryName {
		return s.callSmartDiscovery(ctx, args)
	}

	if s.reg != nil {
		snap := s.reg.Snapshot()
		if tool, ok := snap.Lookup(name); ok {
			if !tool.Enabled {
				return nil, magictunnel.ErrToolFiltered
			}
			if s.router == nil {
				return nil, fmt.Errorf("server: tool %q found but no router configured", name)
			}
			result, err := s.router.Route(ctx, tool, args)
			if err == nil && s.discovery != nil {
				s.discovery.NoteSuccess(name)
			}
			return result, err
		}
	}

	result, err := callToolFromProviders(ctx, name, args)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// callToolFromProviders adapts the root package's provider-based dispatch
// (ToolResponse) onto the ToolResult shape the rest of this package uses.
func callToolFromProviders(ctx context.Context, name string, args map[string]interface{}) (*magictunnel.ToolResult, error) {
	for _, provider := range magictunnel.GetToolProviders(ctx) {
		result, err := provider.ExecuteTool(ctx, name, args)
		if err == magictunnel.ErrUnknownTool {
			continue
		}
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		switch v := result.(type) {
		case *magictunnel.ToolResult:
			return v, nil
		case *magictunnel.ToolResponse:
			return &magictunnel.ToolResult{Content: v.Content, StructuredContent: v.StructuredContent}, nil
		default:
			return nil, fmt.Errorf("server: unexpected provider result type %T", v)
		}
	}
	return nil, magictunnel.ErrUnknownTool
}
