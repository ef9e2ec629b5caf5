// Package discovery implements the Smart Discovery Engine: mapping a
// free-text request to (tool_name, parameters, confidence) against the
// tools published by the capability registry.
package discovery

import (
	"time"

	"github.com/paularlott/magictunnel/toon"
)

// Mode selects which scoring layers contribute to a discovery call.
type Mode string

const (
	ModeHybrid    Mode = "hybrid"
	ModeRuleBased Mode = "rule_based"
	ModeSemantic  Mode = "semantic"
	ModeLlmBased  Mode = "llm_based"
)

// State tracks a discovery call's progress through the pipeline.
type State string

const (
	StateResolving  State = "resolving"
	StateMatching   State = "matching"
	StateExtracting State = "extracting"
	StateExecuting  State = "executing"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Request is the input to a Discover call.
type Request struct {
	Text                string
	Mode                Mode
	ConfidenceThreshold float64 // 0 means "use the engine default"
	Context             map[string]interface{}
}

// MethodScores reports each layer's contribution to the final score, for
// callers (and the smart_tool_discovery tool's output) that want to show
// their work.
type MethodScores struct {
	Semantic float64 `json:"semantic"`
	Rule     float64 `json:"rule"`
	LLM      float64 `json:"llm"`
	Final    float64 `json:"final"`
}

// Result is the outcome of a successful Discover call.
type Result struct {
	ToolName     string                 `json:"tool_name"`
	Confidence   float64                `json:"confidence"`
	Scores       MethodScores           `json:"method_scores"`
	Parameters   map[string]interface{} `json:"parameters"`
	Reasoning    []string               `json:"reasoning"`
	State        State                  `json:"state"`
	SnapshotVer  uint64                 `json:"-"`
}

// CompactTrace renders Reasoning in TOON format: a dense, token-efficient
// encoding of the reasoning array for embedding in model-facing discovery
// output without repeating JSON array punctuation per entry. Falls back to
// a plain joined line if encoding fails (toon.Encode errors only on values it
// cannot represent, such as channels, funcs or complex numbers, and a
// []string is never one).
func (r *Result) CompactTrace() string {
	if len(r.Reasoning) == 0 {
		return ""
	}
	encoded, err := toon.Encode(r.Reasoning)
	if err != nil {
		out := r.Reasoning[0]
		for _, line := range r.Reasoning[1:] {
			out += " | " + line
		}
		return out
	}
	return encoded
}

// candidate is an internal scoring row carried through the pipeline stages.
type candidate struct {
	name         string
	description  string
	keywords     []string
	inputSchema  map[string]interface{}
	semantic     float64
	semanticOK   bool
	rule         float64
	llm          float64
	llmOK        bool
	insertionIdx int
}

// ToolEmbedding is one entry of the embedding store: a tool's vector plus
// the bookkeeping needed to tell a stale entry from a fresh one.
type ToolEmbedding struct {
	ToolName    string    `json:"tool_name"`
	Vector      []float64 `json:"vector"`
	ContentHash string    `json:"content_hash"`
	Model       string    `json:"model"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EnhancementRecord tracks LLM-authored enrichment of a tool's discovery
// metadata (synonyms, expanded description) on the same lifecycle as a
// ToolEmbedding, stored in a parallel table by the embedding package.
type EnhancementRecord struct {
	ToolName    string    `json:"tool_name"`
	Synonyms    []string  `json:"synonyms,omitempty"`
	Expanded    string    `json:"expanded_description,omitempty"`
	ContentHash string    `json:"content_hash"`
	GeneratedAt time.Time `json:"generated_at"`
}

// EmbeddingLookup is the read-side seam onto the embedding store. The
// discovery engine only ever needs to ask "what's the vector for this tool,
// if we have a fresh one" — it never writes embeddings itself, that's the
// embedding package's reconciliation job.
type EmbeddingLookup interface {
	Lookup(toolName string) (vector []float64, ok bool)
}
