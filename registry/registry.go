package registry

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ConflictPolicy decides what happens when two sources declare a tool with
// the same name.
type ConflictPolicy string

const (
	ConflictReject   ConflictPolicy = "reject"
	ConflictFirstWin ConflictPolicy = "first_wins"
	ConflictLastWin  ConflictPolicy = "last_wins"
)

// Snapshot is an immutable view of the registry at one point in time.
// Readers hold a Snapshot reference for the lifetime of one request and
// never observe a registry mutation mid-read — that's the whole point of
// swapping pointers instead of locking a shared map.
type Snapshot struct {
	Version   uint64
	Tools     []ToolDefinition
	Prompts   []PromptDefinition
	Resources []ResourceDefinition

	byName map[string]*ToolDefinition
}

// Lookup returns a tool definition by name, or false if absent.
func (s *Snapshot) Lookup(name string) (ToolDefinition, bool) {
	t, ok := s.byName[name]
	if !ok {
		return ToolDefinition{}, false
	}
	return *t, true
}

// List returns every tool in insertion order: capability-file tools by
// source path, then external tools by server ID, each source's tools in
// their per-source insertion index order.
func (s *Snapshot) List() []ToolDefinition {
	out := make([]ToolDefinition, len(s.Tools))
	copy(out, s.Tools)
	return out
}

// Registry is the capability registry: an atomically-swappable snapshot plus
// the bookkeeping needed to install, remove and watch capability sources.
type Registry struct {
	logger *zap.Logger
	policy ConflictPolicy

	current atomic.Pointer[Snapshot]

	mu      sync.Mutex // serializes writers; readers never block on this
	version uint64
	nextIdx int

	subsMu sync.Mutex
	subs   []chan ChangeEvent
}

// New creates an empty registry.
func New(logger *zap.Logger, policy ConflictPolicy) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{logger: logger, policy: policy}
	r.current.Store(&Snapshot{byName: map[string]*ToolDefinition{}})
	return r
}

// Snapshot returns the currently published snapshot. Safe for concurrent use
// without any lock — this is the read path every discovery and dispatch
// request goes through.
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// SubscribeChanges registers a channel that receives a ChangeEvent for every
// install/update/remove. The channel is buffered; slow subscribers drop
// events rather than blocking registry writers.
func (r *Registry) SubscribeChanges() <-chan ChangeEvent {
	ch := make(chan ChangeEvent, 32)
	r.subsMu.Lock()
	r.subs = append(r.subs, ch)
	r.subsMu.Unlock()
	return ch
}

func (r *Registry) publish(evt ChangeEvent) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- evt:
		default:
			r.logger.Warn("dropping change event, subscriber channel full", zap.String("source", evt.SourceID))
		}
	}
}

// InstallFile replaces all tools/prompts/resources previously owned by
// sourceID with the contents of file. Each tool not already present gets a
// fresh ContentHash and defaults to Enabled=true, Hidden=false.
func (r *Registry) InstallFile(sourceID string, file *CapabilityFile) error {
	return r.install(sourceID, "file", file.Tools, file.Prompts, file.Resources)
}

// InstallExternal merges tools discovered from an external MCP server into
// the registry. Unlike InstallFile, this path is authoritative only on the
// description/schema/routing fields: if a tool with the same name and source
// already exists and its ContentHash is unchanged, the existing Hidden,
// Enabled and UserModified flags are preserved verbatim rather than reset to
// the incoming definition's zero values. This is the asymmetry the registry
// exists to enforce — losing it is the overwrite-user-edits failure mode the
// content hash was built to prevent.
func (r *Registry) InstallExternal(sourceID string, tools []ToolDefinition) error {
	return r.install(sourceID, "external", tools, nil, nil)
}

func (r *Registry) install(sourceID, kind string, tools []ToolDefinition, prompts []PromptDefinition, resources []ResourceDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()

	newTools := make([]ToolDefinition, 0, len(old.Tools))
	newByName := make(map[string]*ToolDefinition, len(old.Tools))

	// Carry over tools owned by other sources untouched.
	for i := range old.Tools {
		t := old.Tools[i]
		if t.SourceID == sourceID && t.SourceKind == kind {
			continue
		}
		newTools = append(newTools, t)
	}

	var changedNames []string
	for _, incoming := range tools {
		incoming.SourceID = sourceID
		incoming.SourceKind = kind
		incoming.ContentHash = contentHash(incoming)

		if prior, existed := old.byName[incoming.Name]; existed && prior.SourceID == sourceID && prior.SourceKind == kind {
			if kind == "external" && prior.ContentHash == incoming.ContentHash {
				// Nothing an external authority owns actually changed;
				// preserve user-owned flags exactly.
				incoming.Hidden = prior.Hidden
				incoming.Enabled = prior.Enabled
				incoming.UserModified = prior.UserModified
				incoming.InsertionIndex = prior.InsertionIndex
			} else {
				incoming.InsertionIndex = prior.InsertionIndex
			}
		} else if existing, ok := old.byName[incoming.Name]; ok && !(existing.SourceID == sourceID && existing.SourceKind == kind) {
			switch r.policy {
			case ConflictReject:
				return fmt.Errorf("registry: tool %q already provided by source %s", incoming.Name, existing.SourceID)
			case ConflictFirstWin:
				continue // keep the existing one, drop this one
			case ConflictLastWin:
				// fall through, let the new one win below
			}
			incoming.InsertionIndex = r.nextIdx
			r.nextIdx++
		} else {
			if !incoming.Enabled {
				incoming.Enabled = true
			}
			incoming.InsertionIndex = r.nextIdx
			r.nextIdx++
		}

		newTools = append(newTools, incoming)
		changedNames = append(changedNames, incoming.Name)
	}

	// File tools first, by source path; external tools last, by server ID;
	// insertion index within one source.
	sort.SliceStable(newTools, func(i, j int) bool {
		a, b := newTools[i], newTools[j]
		if a.SourceKind != b.SourceKind {
			return a.SourceKind == "file"
		}
		if a.SourceID != b.SourceID {
			return a.SourceID < b.SourceID
		}
		return a.InsertionIndex < b.InsertionIndex
	})

	for i := range newTools {
		newByName[newTools[i].Name] = &newTools[i]
	}

	newPrompts := old.Prompts
	if prompts != nil {
		newPrompts = mergePrompts(old.Prompts, sourceID, prompts)
	}
	newResources := old.Resources
	if resources != nil {
		newResources = mergeResources(old.Resources, sourceID, resources)
	}

	r.version++
	r.current.Store(&Snapshot{
		Version:   r.version,
		Tools:     newTools,
		Prompts:   newPrompts,
		Resources: newResources,
		byName:    newByName,
	})

	r.publish(ChangeEvent{Kind: ChangeUpdated, SourceID: sourceID, Tools: changedNames})
	return nil
}

func mergePrompts(old []PromptDefinition, sourceID string, incoming []PromptDefinition) []PromptDefinition {
	out := make([]PromptDefinition, 0, len(old)+len(incoming))
	for _, p := range old {
		if p.SourceID != sourceID {
			out = append(out, p)
		}
	}
	for _, p := range incoming {
		p.SourceID = sourceID
		out = append(out, p)
	}
	return out
}

func mergeResources(old []ResourceDefinition, sourceID string, incoming []ResourceDefinition) []ResourceDefinition {
	out := make([]ResourceDefinition, 0, len(old)+len(incoming))
	for _, r := range old {
		if r.SourceID != sourceID {
			out = append(out, r)
		}
	}
	for _, r := range incoming {
		r.SourceID = sourceID
		out = append(out, r)
	}
	return out
}

// RemoveSource drops every tool/prompt/resource owned by sourceID, e.g. when
// a capability file is deleted or an external server is torn down.
func (r *Registry) RemoveSource(sourceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	newTools := make([]ToolDefinition, 0, len(old.Tools))
	newByName := make(map[string]*ToolDefinition, len(old.Tools))
	var removed []string

	for _, t := range old.Tools {
		if t.SourceID == sourceID {
			removed = append(removed, t.Name)
			continue
		}
		newTools = append(newTools, t)
	}
	for i := range newTools {
		newByName[newTools[i].Name] = &newTools[i]
	}

	r.version++
	r.current.Store(&Snapshot{
		Version:   r.version,
		Tools:     newTools,
		Prompts:   mergePrompts(old.Prompts, sourceID, nil),
		Resources: mergeResources(old.Resources, sourceID, nil),
		byName:    newByName,
	})

	r.publish(ChangeEvent{Kind: ChangeRemoved, SourceID: sourceID, Tools: removed})
}

// SetUserFlags applies a user edit to a tool's Hidden/Enabled flags and marks
// it UserModified so a future external rediscovery knows to preserve it.
func (r *Registry) SetUserFlags(name string, hidden, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.current.Load()
	t, ok := old.byName[name]
	if !ok {
		return fmt.Errorf("registry: unknown tool %q", name)
	}

	newTools := make([]ToolDefinition, len(old.Tools))
	copy(newTools, old.Tools)
	newByName := make(map[string]*ToolDefinition, len(newTools))
	for i := range newTools {
		if newTools[i].Name == name {
			newTools[i].Hidden = hidden
			newTools[i].Enabled = enabled
			newTools[i].UserModified = true
		}
		newByName[newTools[i].Name] = &newTools[i]
	}
	_ = t

	r.version++
	r.current.Store(&Snapshot{
		Version:   r.version,
		Tools:     newTools,
		Prompts:   old.Prompts,
		Resources: old.Resources,
		byName:    newByName,
	})
	return nil
}
