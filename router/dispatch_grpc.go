package router

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	magictunnel "github.com/paularlott/magictunnel"
)

// grpcDispatcher invokes a single unary RPC against a routing-config-named
// service/method using structpb.Struct request/response messages, so tool
// routing never needs a compiled .proto for the target service — the same
// dynamic-JSON-over-protobuf shape grpc-gateway and friends use for generic
// proxying.
type grpcDispatcher struct {
	dialTimeout time.Duration
}

const structCodecName = "magictunnel-struct"

func init() {
	encoding.RegisterCodec(structCodec{})
}

// structCodec marshals/unmarshals *structpb.Struct payloads as protobuf
// wire bytes, letting grpcDispatcher call arbitrary unary methods without a
// generated client stub.
type structCodec struct{}

func (structCodec) Name() string { return structCodecName }

func (structCodec) Marshal(v interface{}) ([]byte, error) {
	s, ok := v.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("router: grpc codec expects *structpb.Struct, got %T", v)
	}
	return proto.Marshal(s)
}

func (structCodec) Unmarshal(data []byte, v interface{}) error {
	s, ok := v.(*structpb.Struct)
	if !ok {
		return fmt.Errorf("router: grpc codec expects *structpb.Struct, got %T", v)
	}
	return proto.Unmarshal(data, s)
}

func (d *grpcDispatcher) Idempotent(routing map[string]interface{}) bool {
	return routingBool(routing, "idempotent")
}

func (d *grpcDispatcher) Dispatch(ctx context.Context, routing map[string]interface{}, params map[string]interface{}) (*magictunnel.ToolResult, error) {
	target := routingString(routing, "target")
	fullMethod := routingString(routing, "method")
	if target == "" || fullMethod == "" {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "grpc"}
	}

	dialTimeout := d.dialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(structCodecName)),
	)
	if err != nil {
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: target, Err: err}
	}
	defer conn.Close()

	reqStruct, err := structpb.NewStruct(params)
	if err != nil {
		return nil, fmt.Errorf("router: converting params to grpc struct: %w", err)
	}
	respStruct := &structpb.Struct{}

	start := time.Now()
	err = conn.Invoke(ctx, fullMethod, reqStruct, respStruct)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: time.Since(start).Milliseconds()}
		}
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Server: fullMethod, Err: err}
	}

	asMap := respStruct.AsMap()
	result := textResult(fmt.Sprintf("%v", asMap))
	result.StructuredContent = asMap
	return result, nil
}
