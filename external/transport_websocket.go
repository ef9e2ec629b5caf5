package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	magictunnel "github.com/paularlott/magictunnel"
)

// websocketTransport talks MCP over a single long-lived websocket
// connection, one JSON-RPC message per text frame in both directions.
type websocketTransport struct {
	url     string
	headers http.Header

	mu      sync.Mutex
	conn    *websocket.Conn
	corr    *correlator
	inbound InboundHandler
}

func newWebsocketTransport(url string, headers map[string]string) *websocketTransport {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return &websocketTransport{url: url, headers: h, corr: newCorrelator()}
}

func (t *websocketTransport) SupportsInbound() bool { return true }

func (t *websocketTransport) SetInboundHandler(h InboundHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inbound = h
}

func (t *websocketTransport) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, t.url, t.headers)
	if err != nil {
		return fmt.Errorf("external: websocket dial: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *websocketTransport) readLoop(conn *websocket.Conn) {
	defer t.corr.abortAll()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		t.dispatch(data)
	}
}

func (t *websocketTransport) dispatch(data []byte) {
	var probe struct {
		Method *string `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return
	}
	if probe.Method != nil {
		var req magictunnel.MCPRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return
		}
		t.handleInbound(&req)
		return
	}
	var resp magictunnel.MCPResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	t.corr.deliver(&resp)
}

func (t *websocketTransport) handleInbound(req *magictunnel.MCPRequest) {
	t.mu.Lock()
	handler := t.inbound
	conn := t.conn
	t.mu.Unlock()
	if handler == nil || conn == nil {
		return
	}
	go func() {
		resp, err := handler(context.Background(), req)
		if err != nil || resp == nil {
			return
		}
		t.send(resp)
	}()
}

func (t *websocketTransport) send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return fmt.Errorf("external: websocket transport not connected")
	}
	return t.conn.WriteMessage(websocket.TextMessage, b)
}

func (t *websocketTransport) Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	id := t.corr.nextID()
	req.ID = id
	ch := t.corr.register(id)

	if err := t.send(req); err != nil {
		t.corr.cancel(id)
		return nil, fmt.Errorf("external: websocket send: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok || resp == nil {
			return nil, fmt.Errorf("external: websocket transport closed while awaiting response")
		}
		return resp, nil
	case <-ctx.Done():
		t.corr.cancel(id)
		return nil, ctx.Err()
	}
}

func (t *websocketTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return conn.Close()
}
