package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/pool"
)

// graphqlDispatcher posts a query/variables document to a single GraphQL
// endpoint. GraphQL always answers over HTTP POST, so there is no GraphQL
// client library in play here beyond the standard envelope; this is the one
// dispatcher documented in DESIGN.md as intentionally stdlib-only.
type graphqlDispatcher struct {
	client *http.Client
}

func newGraphQLDispatcher(httpPool pool.HTTPPool) *graphqlDispatcher {
	client := &http.Client{Timeout: 30 * time.Second}
	if httpPool != nil {
		client = httpPool.GetHTTPClient()
	}
	return &graphqlDispatcher{client: client}
}

type graphqlRequestBody struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphqlResponseBody struct {
	Data   interface{}      `json:"data"`
	Errors []graphqlRespErr `json:"errors,omitempty"`
}

type graphqlRespErr struct {
	Message string `json:"message"`
}

func (d *graphqlDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *graphqlDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	endpoint := routingString(routing, "url")
	if endpoint == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "graphql"}
	}
	query := routingString(routing, "query")
	if query == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "graphql"}
	}

	variables := params
	if mapping := routingStringMap(routing, "variable_map"); mapping != nil {
		variables = make(map[string]interface{}, len(mapping))
		for gqlVar, paramName := range mapping {
			if v, ok := params[paramName]; ok {
				variables[gqlVar] = v
			}
		}
	}

	reqBody, err := json.Marshal(graphqlRequestBody{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("router: marshalling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("router: building graphql request: %w", err)
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
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("router: reading graphql response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Status: resp.StatusCode, Body: string(raw)}
	}

	var parsed graphqlResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return textResult(string(raw)), nil
	}
	if len(parsed.Errors) > 0 {
		msgs := make([]string, len(parsed.Errors))
		for i, e := range parsed.Errors {
			msgs[i] = e.Message
		}
		return errorResult(fmt.Sprintf("graphql errors: %v", msgs)), nil
	}

	dataJSON, err := json.Marshal(parsed.Data)
	if err != nil {
		return textResult(string(raw)), nil
	}
	result := textResult(string(dataJSON))
	result.StructuredContent = parsed.Data
	return result, nil
}
