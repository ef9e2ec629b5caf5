package router

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	magictunnel "github.com/paularlott/magictunnel"
)

const (
	retryMaxAttempts    = 3
	retryInitialBackoff = 200 * time.Millisecond
	retryMaxBackoff     = 5 * time.Second
)

// withRetry re-runs a dispatch up to retryMaxAttempts times, doubling the
// backoff from retryInitialBackoff and capping at retryMaxBackoff. Only
// called for dispatchers whose Idempotent() reports true for this routing
// config — a transport error on a non-idempotent call is never retried,
// since the side effect may already have landed.
func withRetry(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialBackoff
	bo.MaxInterval = retryMaxBackoff
	bo.Multiplier = 2

	return backoff.Retry(ctx, func() (interface{}, error) {
		v, err := fn()
		if err != nil && !isRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(retryMaxAttempts))
}

// isRetryable reports whether err is a transport-level failure worth
// retrying. Substitution failures and upstream 4xx-class errors are not:
// the request is malformed or rejected, not merely unlucky.
func isRetryable(err error) bool {
	var routingErr *magictunnel.RoutingError
	if !errors.As(err, &routingErr) {
		return true
	}
	switch routingErr.Kind {
	case magictunnel.RoutingTransportUnavailable, magictunnel.RoutingTimeout:
		return true
	case magictunnel.RoutingUpstream:
		return routingErr.Status == 0 || routingErr.Status >= 500
	default:
		return false
	}
}
