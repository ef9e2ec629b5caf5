package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	magictunnel "github.com/paularlott/magictunnel"
)

// websocketDispatcher opens a short-lived websocket connection, sends one
// JSON request frame, waits for the first response frame, and closes. It
// does not keep a supervised connection the way external.Transport does —
// one routed call, one socket.
type websocketDispatcher struct {
	dialTimeout time.Duration
}

func (d *websocketDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *websocketDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	url := routingString(routing, "url")
	if url == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "websocket"}
	}

	headers := http.Header{}
	for k, v := range routingStringMap(routing, "headers") {
		resolved, err := Substitute(v, params, true)
		if err != nil {
			return nil, err
		}
		headers.Set(k, resolved)
	}

	timeout := d.dialTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	start := time.Now()
	conn, _, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: url, Err: err}
	}
	defer conn.Close()

	payload := params
	if bodyTemplate := routingString(routing, "message"); bodyTemplate != "" {
		resolved, err := Substitute(bodyTemplate, params, false)
		if err != nil {
			return nil, err
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(resolved)); err != nil {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Server: url, Err: err}
		}
	} else {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("router: marshalling websocket message: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Server: url, Err: err}
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: time.Since(start).Milliseconds()}
		}
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Server: url, Err: err}
	}

	return structuredTextResult(msg), nil
}
