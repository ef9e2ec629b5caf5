package external

import (
	"context"
	"fmt"

	magictunnel "github.com/paularlott/magictunnel"
)

// httpTransport wraps the root package's plain request/response MCP client.
// It has no channel for the server to push a request back, so it never
// supports inbound forwarding — a server on this transport asking for
// sampling or elicitation gets CapabilityMissingError.
type httpTransport struct {
	client *magictunnel.Client
}

func newHTTPTransport(baseURL string, auth magictunnel.AuthProvider, namespace string) *httpTransport {
	return &httpTransport{client: magictunnel.NewClient(baseURL, auth, namespace)}
}

func (t *httpTransport) SupportsInbound() bool          { return false }
func (t *httpTransport) SetInboundHandler(InboundHandler) {}

func (t *httpTransport) Connect(ctx context.Context) error {
	return t.client.Initialize(ctx)
}

func (t *httpTransport) Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	switch req.Method {
	case magictunnel.MethodToolsList:
		tools, err := t.client.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		return &magictunnel.MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": tools}}, nil
	case magictunnel.MethodToolsCall:
		params, ok := req.Params.(*magictunnel.ToolCallParams)
		if !ok {
			return nil, fmt.Errorf("external: http transport: unexpected tools/call params type %T", req.Params)
		}
		result, err := t.client.CallTool(ctx, params.Name, params.Arguments)
		if err != nil {
			return nil, err
		}
		return &magictunnel.MCPResponse{JSONRPC: "2.0", ID: req.ID, Result: result}, nil
	default:
		return nil, fmt.Errorf("external: http transport does not support method %q", req.Method)
	}
}

func (t *httpTransport) Close() error { return nil }
