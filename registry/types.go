// Package registry implements the Capability Registry: the atomically
// swappable, content-hash-aware store of tool, prompt and resource
// definitions loaded from capability files and external MCP servers.
package registry

// ToolDefinition is one entry in the registry: a tool sourced from a
// capability file or discovered from an external MCP server.
type ToolDefinition struct {
	Name         string                 `yaml:"name" json:"name"`
	Description  string                 `yaml:"description" json:"description"`
	InputSchema  map[string]interface{} `yaml:"input_schema" json:"input_schema"`
	OutputSchema map[string]interface{} `yaml:"output_schema,omitempty" json:"output_schema,omitempty"`
	Keywords     []string               `yaml:"keywords,omitempty" json:"keywords,omitempty"`

	// Routing carries the raw agent-dispatch configuration (subprocess,
	// http, graphql, grpc, sse, websocket, external_mcp) consumed by the
	// router package. Kept untyped here so the registry never needs to know
	// about every dispatch variant's shape.
	Routing map[string]interface{} `yaml:"routing,omitempty" json:"routing,omitempty"`

	// Hidden and Enabled are user-editable flags. External authority is
	// authoritative on Description/InputSchema/OutputSchema but NOT on these
	// two — a rediscovery that finds an unchanged ContentHash must preserve
	// whatever a user has set here.
	Hidden  bool `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Enabled bool `yaml:"enabled" json:"enabled"`

	// UserModified marks that a human edited Hidden/Enabled directly (as
	// opposed to them carrying their zero-value defaults), so a rediscovery
	// knows there's something worth preserving at all.
	UserModified bool `yaml:"-" json:"user_modified,omitempty"`

	// SourceID names the capability file path or external server ID this
	// tool came from. SourceKind is "file" or "external".
	SourceID   string `yaml:"-" json:"source_id"`
	SourceKind string `yaml:"-" json:"source_kind"`

	// ContentHash is computed over Name+Description+InputSchema+OutputSchema+Routing.
	// It is the signal used to decide whether a rediscovery changed anything
	// worth overwriting, independent of the Hidden/Enabled/UserModified flags.
	ContentHash string `yaml:"-" json:"content_hash"`

	// InsertionIndex fixes enumeration order: per the decided ordering
	// question, registry listing and discovery candidate enumeration both
	// walk tools in (source file order, then insertion index) rather than
	// any score- or alphabetical-only order.
	InsertionIndex int `yaml:"-" json:"-"`
}

// PromptDefinition is one entry from a capability file's prompts section.
type PromptDefinition struct {
	Name        string                   `yaml:"name" json:"name"`
	Description string                   `yaml:"description" json:"description"`
	Arguments   []map[string]interface{} `yaml:"arguments,omitempty" json:"arguments,omitempty"`
	SourceID    string                   `yaml:"-" json:"source_id"`
}

// ResourceDefinition is one entry from a capability file's resources section.
type ResourceDefinition struct {
	URI         string `yaml:"uri" json:"uri"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	MimeType    string `yaml:"mime_type,omitempty" json:"mime_type,omitempty"`
	SourceID    string `yaml:"-" json:"source_id"`
}

// CapabilityFileMetadata is the metadata block required at the top of every
// capability file.
type CapabilityFileMetadata struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description,omitempty"`
}

// CapabilityFile is the parsed YAML document format described by the
// external interface. Unknown top-level fields are ignored for forward
// compatibility — gopkg.in/yaml.v3's default (non-strict) decoding already
// gives us that for free.
type CapabilityFile struct {
	Metadata  CapabilityFileMetadata `yaml:"metadata"`
	Tools     []ToolDefinition       `yaml:"tools"`
	Prompts   []PromptDefinition     `yaml:"prompts,omitempty"`
	Resources []ResourceDefinition   `yaml:"resources,omitempty"`
}

// ChangeKind distinguishes the events a SubscribeChanges subscriber receives.
type ChangeKind int

const (
	ChangeInstalled ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
)

// ChangeEvent is published to subscribers whenever a registry snapshot swap
// adds, updates or removes tools belonging to one source.
type ChangeEvent struct {
	Kind     ChangeKind
	SourceID string
	Tools    []string
}
