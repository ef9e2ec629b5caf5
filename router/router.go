package router

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/pool"
	"github.com/paularlott/magictunnel/registry"
)

// Router resolves a tool's routing config plus extracted parameters into a
// single dispatch, retrying idempotent variants on transport failure.
type Router struct {
	logger      *zap.Logger
	dispatchers map[string]Dispatcher
}

// Options configures the dispatchers a Router wires up. ExternalCaller may
// be nil if external MCP routing isn't in use; any tool routed to
// "external_mcp" without one fails with RoutingTransportUnavailable.
type Options struct {
	Logger          *zap.Logger
	HTTPPool        pool.HTTPPool
	ExternalCaller  externalCaller
	SubprocessLimit time.Duration
	GRPCDialTimeout time.Duration
	WebsocketDial   time.Duration
}

func New(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	subprocessTimeout := opts.SubprocessLimit
	if subprocessTimeout <= 0 {
		subprocessTimeout = 30 * time.Second
	}

	r := &Router{
		logger:      logger,
		dispatchers: make(map[string]Dispatcher, 7),
	}
	r.dispatchers["subprocess"] = &subprocessDispatcher{timeout: subprocessTimeout}
	r.dispatchers["http"] = newHTTPDispatcher(opts.HTTPPool)
	r.dispatchers["graphql"] = newGraphQLDispatcher(opts.HTTPPool)
	r.dispatchers["grpc"] = &grpcDispatcher{dialTimeout: opts.GRPCDialTimeout}
	r.dispatchers["sse"] = newSSEDispatcher(opts.HTTPPool)
	r.dispatchers["websocket"] = &websocketDispatcher{dialTimeout: opts.WebsocketDial}
	r.dispatchers["external_mcp"] = &externalMCPDispatcher{manager: opts.ExternalCaller}
	return r
}

// Route dispatches one tool call: resolves the dispatcher named by the
// tool's routing.type, substitutes params into the routing config is left
// to each dispatcher (they know which fields are templated), and retries
// once-or-twice on transport failure when the variant says it's safe to.
func (r *Router) Route(ctx context.Context, tool registry.ToolDefinition, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	kind := routingType(tool.Routing)
	if kind == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: tool.Name}
	}

	dispatcher, ok := r.dispatchers[kind]
	if !ok {
		return nil, fmt.Errorf("router: tool %q names unknown routing type %q", tool.Name, kind)
	}

	attempt := func() (interface{}, error) {
		return dispatcher.Dispatch(ctx, tool.Routing, params)
	}

	if !dispatcher.Idempotent(tool.Routing) {
		result, err := attempt()
		if err != nil {
			return nil, err
		}
		return result.(*magictunnel.ToolResult), nil
	}

	result, err := withRetry(ctx, attempt)
	if err != nil {
		r.logger.Warn("routed call failed after retries",
			zap.String("tool", tool.Name), zap.String("routing_type", kind), zap.Error(err))
		return nil, err
	}
	return result.(*magictunnel.ToolResult), nil
}
