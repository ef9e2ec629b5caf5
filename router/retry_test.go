package router

import (
	"context"
	"errors"
	"testing"

	magictunnel "github.com/paularlott/magictunnel"
)

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	result, err := withRetry(context.Background(), func() (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTimeout, AfterMs: 1}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("got %v", result)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestWithRetry_StopsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (interface{}, error) {
		attempts++
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingTransportUnavailable, Server: "x"}
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if attempts != retryMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", retryMaxAttempts, attempts)
	}
}

func TestWithRetry_SubstitutionErrorIsNotRetried(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (interface{}, error) {
		attempts++
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingSubstitution, MissingRef: "foo"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a non-retryable error, got %d", attempts)
	}
}

func TestWithRetry_UpstreamClientErrorIsNotRetried(t *testing.T) {
	attempts := 0
	_, err := withRetry(context.Background(), func() (interface{}, error) {
		attempts++
		return nil, &magictunnel.RoutingError{Kind: magictunnel.RoutingUpstream, Status: 404}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected exactly one attempt for a 4xx upstream error, got %d", attempts)
	}
}

func TestIsRetryable_NonRoutingErrorDefaultsTrue(t *testing.T) {
	if !isRetryable(errors.New("boom")) {
		t.Fatal("expected generic errors to be treated as retryable")
	}
}
