package external

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	magictunnel "github.com/paularlott/magictunnel"
)

// streamableHTTPTransport speaks the streamable-HTTP MCP variant: a POST
// per outbound request whose response body is read as NDJSON (one JSON-RPC
// message per line), kept open so the server can push additional JSON-RPC
// messages (including server-initiated sampling/elicitation requests) after
// the immediate response. SSE-framed ("data:") bodies are not decoded.
type streamableHTTPTransport struct {
	url     string
	headers map[string]string
	client  *http.Client

	mu      sync.Mutex
	corr    *correlator
	inbound InboundHandler
}

func newStreamableHTTPTransport(url string, headers map[string]string) *streamableHTTPTransport {
	return &streamableHTTPTransport{
		url:     url,
		headers: headers,
		client:  &http.Client{},
		corr:    newCorrelator(),
	}
}

func (t *streamableHTTPTransport) SupportsInbound() bool { return true }

func (t *streamableHTTPTransport) SetInboundHandler(h InboundHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = h
}

func (t *streamableHTTPTransport) Connect(ctx context.Context) error {
	return nil
}

func (t *streamableHTTPTransport) Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	id := t.corr.nextID()
	req.ID = id

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("external: streamable_http marshal: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("external: streamable_http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")
	for k, v := range t.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("external: streamable_http do: %w", err)
	}

	ch := t.corr.register(id)
	go t.readStream(resp.Body)

	select {
	case r, ok := <-ch:
		if !ok || r == nil {
			return nil, fmt.Errorf("external: streamable_http stream closed while awaiting response")
		}
		return r, nil
	case <-ctx.Done():
		t.corr.cancel(id)
		resp.Body.Close()
		return nil, ctx.Err()
	}
}

// readStream consumes the NDJSON response body line by line for as long as
// the connection stays open: the first line is ordinarily the correlated
// reply to the Call that opened this stream, and any further lines are
// server-initiated requests pushed on the same connection.
func (t *streamableHTTPTransport) readStream(body io.ReadCloser) {
	defer body.Close()
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t.dispatch(line)
	}
	t.corr.abortAll()
}

func (t *streamableHTTPTransport) dispatch(line []byte) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return
	}
	if probe.Method != nil {
		var req magictunnel.MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			return
		}
		t.handleInbound(&req)
		return
	}
	var resp magictunnel.MCPResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return
	}
	t.corr.deliver(&resp)
}

func (t *streamableHTTPTransport) handleInbound(req *magictunnel.MCPRequest) {
	t.mu.Lock()
	handler := t.inbound
	t.mu.Unlock()
	if handler == nil {
		return
	}
	go func() {
		_, _ = handler(context.Background(), req)
		// Responses to server-initiated requests on this transport would
		// need a dedicated push channel back to the server; streamable-http
		// servers that expect one are out of scope until a concrete one
		// shows up in the wild.
	}()
}

func (t *streamableHTTPTransport) Close() error { return nil }
