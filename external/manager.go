package external

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/registry"
)

// Manager owns every supervised external MCP server, keeps the capability
// registry's "external" source in sync with what each server reports, and
// routes proxy-initiated tools/call requests to the owning server by
// namespace prefix.
type Manager struct {
	logger *zap.Logger
	reg    *registry.Registry
	cfg    config.ExternalMCPConfig
	proxy  magictunnel.ProxyCapabilities

	mu          sync.RWMutex
	supervisors map[string]*Supervisor
	clientCaps  func(ctx context.Context) magictunnel.ClientCapabilities
	forward     func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error)
}

// SetForwarder installs the session-layer callback used to forward a
// server-initiated sampling/createMessage or elicitation/request toward
// whichever client session owns the in-flight call that reached this
// external server. Until a forwarder is set, inbound requests are rejected
// with an internal error rather than silently dropped.
func (m *Manager) SetForwarder(fn func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forward = fn
}

// NewManager builds a Manager. clientCaps is consulted on every inbound
// forwarding attempt so the intersection with ProxyCapabilities always
// reflects the capabilities of whichever client session triggered the call.
func NewManager(logger *zap.Logger, reg *registry.Registry, cfg config.ExternalMCPConfig, proxy magictunnel.ProxyCapabilities, clientCaps func(ctx context.Context) magictunnel.ClientCapabilities) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:      logger,
		reg:         reg,
		cfg:         cfg,
		proxy:       proxy,
		clientCaps:  clientCaps,
		supervisors: make(map[string]*Supervisor),
	}
}

// Statuses returns the current ServerStatus of every supervised server, for
// diagnostics surfaces such as the server_status built-in tool.
func (m *Manager) Statuses() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	statuses := make([]ServerStatus, 0, len(m.supervisors))
	for _, sup := range m.supervisors {
		statuses = append(statuses, sup.Status())
	}
	return statuses
}

// buildTransport constructs the Transport named by cfg.Transport.
func buildTransport(cfg config.ExternalServerConfig) (Transport, error) {
	auth, err := buildAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("external: server %q: %w", cfg.ID, err)
	}

	switch cfg.Transport {
	case "stdio":
		if cfg.Command == "" {
			return nil, fmt.Errorf("external: server %q: stdio transport requires command", cfg.ID)
		}
		return newStdioTransport(cfg.Command, cfg.Args), nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("external: server %q: http transport requires url", cfg.ID)
		}
		return newHTTPTransport(cfg.URL, auth, cfg.ID), nil
	case "websocket":
		if cfg.URL == "" {
			return nil, fmt.Errorf("external: server %q: websocket transport requires url", cfg.ID)
		}
		return newWebsocketTransport(cfg.URL, headersWithAuth(cfg.Headers, auth)), nil
	case "streamable_http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("external: server %q: streamable_http transport requires url", cfg.ID)
		}
		return newStreamableHTTPTransport(cfg.URL, headersWithAuth(cfg.Headers, auth)), nil
	default:
		return nil, fmt.Errorf("external: server %q: unknown transport %q", cfg.ID, cfg.Transport)
	}
}

// buildAuthProvider resolves an ExternalAuthConfig into the AuthProvider the
// http transport attaches to its outbound client. An empty Type is valid and
// means no auth header is added.
func buildAuthProvider(cfg config.ExternalAuthConfig) (magictunnel.AuthProvider, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "bearer":
		if cfg.Token == "" {
			return nil, fmt.Errorf("bearer auth requires token")
		}
		return magictunnel.NewBearerTokenAuth(cfg.Token), nil
	case "oauth2_client_credentials":
		if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.TokenURL == "" {
			return nil, fmt.Errorf("oauth2_client_credentials auth requires client_id, client_secret and token_url")
		}
		return magictunnel.NewOAuth2Auth(cfg.ClientID, cfg.ClientSecret, cfg.TokenURL, cfg.Scopes), nil
	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// headersWithAuth merges a resolved AuthProvider's header into a static
// header map, for the duplex transports that only take headers up front
// rather than an AuthProvider they could re-consult per request.
func headersWithAuth(headers map[string]string, auth magictunnel.AuthProvider) map[string]string {
	if auth == nil {
		return headers
	}
	value, err := auth.GetAuthHeader()
	if err != nil {
		return headers
	}
	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Authorization"] = value
	return merged
}

// Start dials every configured server concurrently. A single server failing
// to ever come up does not stop the others — its supervisor settles in
// Stopped and is reported, matching the registry's per-source error
// isolation contract.
func (m *Manager) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, serverCfg := range m.cfg.Servers {
		serverCfg := serverCfg
		transport, err := buildTransport(serverCfg)
		if err != nil {
			m.logger.Error("external: failed to build transport", zap.String("server", serverCfg.ID), zap.Error(err))
			continue
		}

		hooks := Hooks{
			OnServerReady:        m.onServerReady,
			OnServerDisconnected: m.onServerDisconnected,
		}
		sup := NewSupervisor(serverCfg.ID, transport, m.cfg, hooks, m.logger)
		transport.SetInboundHandler(m.inboundHandlerFor(serverCfg.ID))

		m.mu.Lock()
		m.supervisors[serverCfg.ID] = sup
		m.mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sup.Run(ctx); err != nil {
				m.logger.Warn("external: server never became ready", zap.String("server", serverCfg.ID), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

func (m *Manager) onServerReady(serverID string) {
	m.mu.RLock()
	sup, ok := m.supervisors[serverID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	ctx := context.Background()
	resp, err := sup.Transport().Call(ctx, &magictunnel.MCPRequest{JSONRPC: "2.0", Method: magictunnel.MethodToolsList})
	if err != nil {
		m.logger.Warn("external: failed to list tools after connect", zap.String("server", serverID), zap.Error(err))
		return
	}
	tools := parseToolsResult(resp)
	defs := make([]registry.ToolDefinition, len(tools))
	for i, tool := range tools {
		defs[i] = registry.ToolDefinition{
			Name:        serverID + "__" + tool.Name,
			Description: tool.Description,
			InputSchema: toSchemaMap(tool.InputSchema),
			Enabled:     true,
		}
	}
	if err := m.reg.InstallExternal(serverID, defs); err != nil {
		m.logger.Warn("external: failed to install tools into registry", zap.String("server", serverID), zap.Error(err))
	}
}

func (m *Manager) onServerDisconnected(serverID string, err error) {
	m.reg.RemoveSource(serverID)
	m.logger.Info("external: server removed from registry after disconnect", zap.String("server", serverID), zap.Error(err))
}

// parseToolsResult extracts the tool list from a tools/list response,
// regardless of whether the transport handed back an already-typed
// []MCPTool (the http transport, whose underlying client decodes JSON
// itself) or a raw map[string]interface{} (stdio/websocket/streamable-http,
// which decode MCPResponse.Result generically).
func parseToolsResult(resp *magictunnel.MCPResponse) []magictunnel.MCPTool {
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		return nil
	}

	if typed, ok := result["tools"].([]magictunnel.MCPTool); ok {
		return typed
	}

	rawTools, ok := result["tools"].([]interface{})
	if !ok {
		return nil
	}
	tools := make([]magictunnel.MCPTool, 0, len(rawTools))
	for _, raw := range rawTools {
		m, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := m["name"].(string)
		desc, _ := m["description"].(string)
		tools = append(tools, magictunnel.MCPTool{Name: name, Description: desc, InputSchema: m["inputSchema"]})
	}
	return tools
}

func toSchemaMap(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// CallTool routes a proxy-initiated tools/call to the server named by the
// namespace-prefixed tool name (serverID__toolName).
func (m *Manager) CallTool(ctx context.Context, namespacedName string, args map[string]interface{}) (*magictunnel.ToolResult, error) {
	serverID, toolName, ok := splitNamespace(namespacedName)
	if !ok {
		return nil, fmt.Errorf("external: tool name %q is not namespace-prefixed", namespacedName)
	}

	m.mu.RLock()
	sup, ok := m.supervisors[serverID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("external: unknown server %q", serverID)
	}

	resp, err := sup.Transport().Call(ctx, &magictunnel.MCPRequest{
		JSONRPC: "2.0",
		Method:  magictunnel.MethodToolsCall,
		Params:  &magictunnel.ToolCallParams{Name: toolName, Arguments: args},
	})
	if err != nil {
		sup.Degrade(err)
		return nil, err
	}
	if resp.Error != nil {
		return nil, &magictunnel.ToolError{Code: resp.Error.Code, Message: resp.Error.Message, Data: resp.Error.Data}
	}

	return coerceToolResult(resp.Result)
}

// coerceToolResult normalises a tools/call result into *ToolResult
// regardless of which concrete shape the originating transport produced:
// the http transport's client returns a *ToolResponse, while stdio,
// websocket and streamable-http decode raw JSON into map[string]interface{}.
func coerceToolResult(v interface{}) (*magictunnel.ToolResult, error) {
	switch t := v.(type) {
	case *magictunnel.ToolResult:
		return t, nil
	case *magictunnel.ToolResponse:
		return &magictunnel.ToolResult{Content: t.Content, StructuredContent: t.StructuredContent}, nil
	case map[string]interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("external: re-marshalling tool result: %w", err)
		}
		var result magictunnel.ToolResult
		if err := json.Unmarshal(b, &result); err != nil {
			return nil, fmt.Errorf("external: decoding tool result: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("external: unexpected tools/call result type %T", v)
	}
}

func splitNamespace(name string) (server, tool string, ok bool) {
	const sep = "__"
	idx := indexOf(name, sep)
	if idx < 0 {
		return "", "", false
	}
	return name[:idx], name[idx+len(sep):], true
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// inboundHandlerFor builds the InboundHandler a transport invokes when
// serverID pushes a server-initiated request (sampling/createMessage,
// elicitation/request) toward the proxy. It checks the method against the
// intersection of ProxyCapabilities and the originating client's declared
// capabilities before forwarding; anything outside that intersection is
// rejected with CapabilityMissingError rather than attempted and left to
// fail downstream.
func (m *Manager) inboundHandlerFor(serverID string) InboundHandler {
	return func(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
		var clientCaps magictunnel.ClientCapabilities
		if m.clientCaps != nil {
			clientCaps = m.clientCaps(ctx)
		}
		effective := m.proxy.Intersect(clientCaps)

		var missing string
		switch req.Method {
		case magictunnel.MethodSamplingCreate:
			if !effective.Sampling {
				missing = "sampling"
			}
		case magictunnel.MethodElicitationAsk:
			if !effective.Elicitation {
				missing = "elicitation"
			}
		default:
			return errorResponse(req.ID, -32601, fmt.Sprintf("method not forwarded: %s", req.Method)), nil
		}

		if missing != "" {
			m.logger.Info("external: rejecting forwarded request outside capability intersection",
				zap.String("server", serverID), zap.String("capability", missing))
			return errorResponse(req.ID, -32601, (&magictunnel.CapabilityMissingError{Feature: missing}).Error()), nil
		}

		m.mu.RLock()
		forward := m.forward
		m.mu.RUnlock()
		if forward == nil {
			return errorResponse(req.ID, -32603, "bidirectional forwarding not wired to a session"), nil
		}
		return forward(ctx, req)
	}
}

func errorResponse(id interface{}, code int, message string) *magictunnel.MCPResponse {
	return &magictunnel.MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &magictunnel.MCPError{Code: code, Message: message},
	}
}
