package router

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

// subprocessDispatcher runs a local command, substituting parameters into
// its argv, and returns combined stdout as the tool's text content.
type subprocessDispatcher struct {
	timeout time.Duration
}

func (d *subprocessDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *subprocessDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	command := routingString(routing, "command")
	if command == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "subprocess"}
	}

	argTemplates := routingStringSlice(routing, "args")
	args := make([]string, len(argTemplates))
	for i, tmpl := range argTemplates {
		resolved, err := Substitute(tmpl, params, false)
		if err != nil {
			return nil, err
		}
		args[i] = resolved
	}

	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if runCtx.Err() != nil {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: time.Since(start).Milliseconds()}
	}
	if err != nil {
		return errorResult(fmt.Sprintf("%s\n%s", err, stderr.String())), nil
	}

	return textResult(stdout.String()), nil
}
