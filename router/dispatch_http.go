package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/pool"
)

// httpDispatcher issues a single HTTP request built from a tool's routing
// config, substituting params into the URL, headers and body templates.
type httpDispatcher struct {
	client *http.Client
}

func newHTTPDispatcher(httpPool pool.HTTPPool) *httpDispatcher {
	client := &http.Client{Timeout: 30 * time.Second}
	if httpPool != nil {
		client = httpPool.GetHTTPClient()
	}
	return &httpDispatcher{client: client}
}

func (d *httpDispatcher) Idempotent(routing map[string]interface{}) bool {
	method := strings.ToUpper(routingString(routing, "method"))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	default:
		return false
	}
}

func (d *httpDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	urlTemplate := routingString(routing, "url")
	if urlTemplate == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "http"}
	}
	url, err := Substitute(urlTemplate, params, false)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(routingString(routing, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if bodyTemplate := routingString(routing, "body"); bodyTemplate != "" {
		resolvedBody, err := Substitute(bodyTemplate, params, false)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(resolvedBody)
	} else if method != http.MethodGet && method != http.MethodHead {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("router: marshalling default body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("router: building http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range routingStringMap(routing, "headers") {
		resolved, err := Substitute(v, params, true)
		if err != nil {
			return nil, err
		}
		req.Header.Set(k, resolved)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: time.Since(start).Milliseconds()}
		}
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("router: reading http response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &magictunnel.RoutingError{
			Kind:   magictunnel.RoutingUpstream,
			Status: resp.StatusCode,
			Body:   string(respBody),
		}
	}

	return structuredTextResult(respBody), nil
}

// structuredTextResult returns the body as text content, plus structured
// content if it happens to parse as JSON — most HTTP tool backends return
// JSON, and callers that want it structured shouldn't have to re-parse text.
func structuredTextResult(body []byte) *magictunnel.ToolResult {
	result := textResult(string(body))
	var parsed interface{}
	if json.Unmarshal(body, &parsed) == nil {
		result.StructuredContent = parsed
	}
	return result
}
