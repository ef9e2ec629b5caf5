package router

import (
	"bufio"
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

// sseDispatcher opens a text/event-stream response and collects "data:"
// lines until the stream closes or a terminal "[DONE]" sentinel appears,
// concatenating them into the tool's text content.
type sseDispatcher struct {
	client *http.Client
}

func newSSEDispatcher(httpPool pool.HTTPPool) *sseDispatcher {
	client := &http.Client{Timeout: 2 * time.Minute}
	if httpPool != nil {
		client = httpPool.GetHTTPClient()
	}
	return &sseDispatcher{client: client}
}

func (d *sseDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *sseDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	urlTemplate := routingString(routing, "url")
	if urlTemplate == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "sse"}
	}
	url, err := Substitute(urlTemplate, params, false)
	if err != nil {
		return nil, err
	}

	method := strings.ToUpper(routingString(routing, "method"))
	if method == "" {
		method = http.MethodGet
	}

	var body *bytes.Reader
	if method != http.MethodGet {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("router: marshalling sse request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	var req *http.Request
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("router: building sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
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

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Status: resp.StatusCode, Body: string(raw)}
	}

	var collected strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		collected.WriteString(data)
		collected.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil && ctx.Err() != nil {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: time.Since(start).Milliseconds()}
	}

	return textResult(strings.TrimRight(collected.String(), "\n")), nil
}
