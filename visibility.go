package magictunnel

// ToolVisibility defines how a tool is exposed to clients.
// This controls whether tools appear in tools/list or only via smart_tool_discovery.
type ToolVisibility int

const (
	// ToolVisibilityNative means the tool appears in tools/list and is directly callable.
	ToolVisibilityNative ToolVisibility = iota

	// ToolVisibilityDiscoverable means the tool does NOT appear in tools/list but can
	// be found and invoked through smart_tool_discovery. A registry tool has this
	// visibility when its Hidden flag is set; the flag is false unless the tool
	// definition sets it.
	ToolVisibilityDiscoverable
)

// String returns a human-readable name for the visibility level.
func (v ToolVisibility) String() string {
	switch v {
	case ToolVisibilityNative:
		return "native"
	case ToolVisibilityDiscoverable:
		return "discoverable"
	default:
		return "unknown"
	}
}
