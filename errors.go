package magictunnel

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned when an in-flight discovery or dispatch operation
// was cancelled via context cancellation before it completed.
var ErrCancelled = errors.New("operation cancelled")

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrUnknownParameter = errors.New("parameter not found")
	ErrToolFiltered     = errors.New("tool is filtered out")
)

// RegistryError reports a failure isolated to a single capability source
// (file or external server). Registry errors are logged and the offending
// source is skipped; they never propagate to a client-facing response.
type RegistryError struct {
	Source string
	Reason string
	Err    error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry: %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("registry: %s: %s", e.Source, e.Reason)
}

func (e *RegistryError) Unwrap() error { return e.Err }

// DiscoveryErrorKind enumerates the discoverable failure modes of
// smart_tool_discovery.
type DiscoveryErrorKind string

const (
	DiscoveryNotFound          DiscoveryErrorKind = "not_found"
	DiscoveryMissingParameters DiscoveryErrorKind = "missing_parameters"
	DiscoveryAmbiguous         DiscoveryErrorKind = "ambiguous"
	DiscoveryLlmUnavailable    DiscoveryErrorKind = "llm_unavailable"
)

// DiscoveryError is the structured failure returned by the Smart Discovery
// Engine. It carries enough detail (suggestions, missing parameter names and
// examples, or ambiguous candidates) for a user-visible, actionable message.
type DiscoveryError struct {
	Kind            DiscoveryErrorKind
	Request         string
	Suggestions     []string
	MissingNames    []string
	ParamExamples   map[string]string
	AmbiguousNames  []string
}

func (e *DiscoveryError) Error() string {
	switch e.Kind {
	case DiscoveryNotFound:
		return fmt.Sprintf("discovery: no tool found for %q", e.Request)
	case DiscoveryMissingParameters:
		return fmt.Sprintf("discovery: missing parameters %v for %q", e.MissingNames, e.Request)
	case DiscoveryAmbiguous:
		return fmt.Sprintf("discovery: ambiguous request %q, candidates %v", e.Request, e.AmbiguousNames)
	case DiscoveryLlmUnavailable:
		return "discovery: llm layer unavailable"
	default:
		return "discovery: failed"
	}
}

// RoutingErrorKind enumerates Agent Router failure modes.
type RoutingErrorKind string

const (
	RoutingSubstitution       RoutingErrorKind = "substitution"
	RoutingTransportUnavailable RoutingErrorKind = "transport_unavailable"
	RoutingTimeout            RoutingErrorKind = "timeout"
	RoutingUpstream           RoutingErrorKind = "upstream"
)

// RoutingError is the structured failure returned by the Agent Router.
// Substitution errors are raised before any I/O takes place, per the
// single-pass parameter substitution contract.
type RoutingError struct {
	Kind       RoutingErrorKind
	MissingRef string // RoutingSubstitution
	Server     string // RoutingTransportUnavailable
	AfterMs    int64  // RoutingTimeout
	Status     int    // RoutingUpstream
	Body       string // RoutingUpstream
	Err        error
}

func (e *RoutingError) Error() string {
	switch e.Kind {
	case RoutingSubstitution:
		return fmt.Sprintf("routing: undefined reference %q", e.MissingRef)
	case RoutingTransportUnavailable:
		return fmt.Sprintf("routing: transport unavailable for server %q", e.Server)
	case RoutingTimeout:
		return fmt.Sprintf("routing: timed out after %dms", e.AfterMs)
	case RoutingUpstream:
		return fmt.Sprintf("routing: upstream returned status %d: %s", e.Status, e.Body)
	default:
		return "routing: failed"
	}
}

func (e *RoutingError) Unwrap() error { return e.Err }

// CapabilityMissingError is returned when an external MCP server requests a
// bidirectional forwarding capability (sampling, elicitation) that the
// intersection of proxy and client capabilities does not support.
type CapabilityMissingError struct {
	Feature string
}

func (e *CapabilityMissingError) Error() string {
	return fmt.Sprintf("capability missing: %s", e.Feature)
}

// IsCancelled reports whether err represents a cancellation, unwrapping
// context.Canceled and ErrCancelled alike.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
