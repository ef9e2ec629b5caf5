package router

import (
	"errors"
	"testing"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestSubstitute_PlainField(t *testing.T) {
	out, err := Substitute("hello {name}", map[string]interface{}{"name": "world"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_ArrayIndex(t *testing.T) {
	params := map[string]interface{}{"items": []interface{}{"a", "b", "c"}}
	out, err := Substitute("{items[1]}", params, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "b" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_NegativeIndexRejected(t *testing.T) {
	params := map[string]interface{}{"items": []interface{}{"a"}}
	_, err := Substitute("{items[-1]}", params, false)
	var routingErr *magictunnel.RoutingError
	if !errors.As(err, &routingErr) || routingErr.Kind != magictunnel.RoutingSubstitution {
		t.Fatalf("expected RoutingSubstitution error, got %v", err)
	}
}

func TestSubstitute_NestedField(t *testing.T) {
	params := map[string]interface{}{"user": map[string]interface{}{"email": "a@b.com"}}
	out, err := Substitute("{user.email}", params, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "a@b.com" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_EnvDisallowedByDefault(t *testing.T) {
	_, err := Substitute("{env.HOME}", nil, false)
	var routingErr *magictunnel.RoutingError
	if !errors.As(err, &routingErr) || routingErr.Kind != magictunnel.RoutingSubstitution {
		t.Fatalf("expected RoutingSubstitution error, got %v", err)
	}
}

func TestSubstitute_DefaultClause(t *testing.T) {
	out, err := Substitute(`{missing|default:"fallback"}`, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "fallback" {
		t.Fatalf("got %q", out)
	}
}

func TestSubstitute_UndefinedRefFailsBeforeOutput(t *testing.T) {
	_, err := Substitute("prefix {missing} suffix", nil, false)
	var routingErr *magictunnel.RoutingError
	if !errors.As(err, &routingErr) || routingErr.Kind != magictunnel.RoutingSubstitution {
		t.Fatalf("expected RoutingSubstitution error, got %v", err)
	}
	if routingErr.MissingRef != "missing" {
		t.Fatalf("expected missing ref 'missing', got %q", routingErr.MissingRef)
	}
}

func TestSubstitute_SinglePassDoesNotRescanOutput(t *testing.T) {
	params := map[string]interface{}{"value": "{name}", "name": "should not appear"}
	out, err := Substitute("{value}", params, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "{name}" {
		t.Fatalf("expected literal '{name}' from single-pass substitution, got %q", out)
	}
}
