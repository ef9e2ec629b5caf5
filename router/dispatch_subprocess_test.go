package router

import (
	"context"
	"testing"
	"time"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestSubprocessDispatcher_RunsCommand(t *testing.T) {
	d := &subprocessDispatcher{timeout: 5 * time.Second}
	routing := map[string]interface{}{
		"command": "echo",
		"args":    []interface{}{"hello", "{name}"},
	}
	result, err := d.Dispatch(context.Background(), routing, map[string]interface{}{"name": "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hello world\n" {
		t.Fatalf("unexpected content: %+v", result.Content)
	}
}

func TestSubprocessDispatcher_MissingCommand(t *testing.T) {
	d := &subprocessDispatcher{}
	_, err := d.Dispatch(context.Background(), map[string]interface{}{}, nil)
	var routingErr *magictunnel.RoutingError
	if err == nil {
		t.Fatal("expected error for missing command")
	}
	if rErr, ok := err.(*magictunnel.RoutingError); !ok || rErr.Kind != magictunnel.RoutingTransportUnavailable {
		t.Fatalf("expected RoutingTransportUnavailable, got %v (%T)", err, routingErr)
	}
}

func TestSubprocessDispatcher_NonZeroExit(t *testing.T) {
	d := &subprocessDispatcher{timeout: 5 * time.Second}
	routing := map[string]interface{}{
		"command": "sh",
		"args":    []interface{}{"-c", "echo failing 1>&2; exit 1"},
	}
	result, err := d.Dispatch(context.Background(), routing, nil)
	if err != nil {
		t.Fatalf("unexpected go error (should be surfaced as tool error): %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError result for non-zero exit")
	}
}

func TestSubprocessDispatcher_Timeout(t *testing.T) {
	d := &subprocessDispatcher{timeout: 10 * time.Millisecond}
	routing := map[string]interface{}{
		"command": "sleep",
		"args":    []interface{}{"5"},
	}
	_, err := d.Dispatch(context.Background(), routing, nil)
	rErr, ok := err.(*magictunnel.RoutingError)
	if !ok || rErr.Kind != magictunnel.RoutingTimeout {
		t.Fatalf("expected RoutingTimeout, got %v", err)
	}
}

func TestSubprocessDispatcher_Idempotent(t *testing.T) {
	d := &subprocessDispatcher{}
	if d.Idempotent(map[string]interface{}{}) {
		t.Fatal("expected false without explicit idempotent flag")
	}
	if !d.Idempotent(map[string]interface{}{"idempotent": true}) {
		t.Fatal("expected true with explicit idempotent flag")
	}
}
