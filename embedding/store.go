// Package embedding implements the Embedding Store & Persistence component:
// an in-memory, writer-single/reader-many table of tool embeddings and
// enhancement records, snapshotted to disk, kept in sync with the capability
// registry by a background reconciler.
package embedding

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/paularlott/magictunnel/discovery"
)

// document is the on-disk file format: a single JSON document keyed by tool
// name, each entry carrying the fields of discovery.ToolEmbedding, plus a
// parallel table of discovery.EnhancementRecord on the same lifecycle.
type document struct {
	Embeddings   map[string]discovery.ToolEmbedding   `json:"embeddings"`
	Enhancements map[string]discovery.EnhancementRecord `json:"enhancements,omitempty"`
}

// Store is the embedding store: get/put/delete over an in-memory map,
// swapped atomically, with snapshot_to_disk/load_from_disk for persistence.
// It implements discovery.EmbeddingLookup directly, so the discovery engine
// can read through it with no adapter.
type Store struct {
	path string

	mu           sync.RWMutex
	embeddings   map[string]discovery.ToolEmbedding
	enhancements map[string]discovery.EnhancementRecord
}

// New creates a Store backed by path. The store starts empty; call
// LoadFromDisk to populate it from a prior snapshot.
func New(path string) *Store {
	return &Store{
		path:         path,
		embeddings:   make(map[string]discovery.ToolEmbedding),
		enhancements: make(map[string]discovery.EnhancementRecord),
	}
}

// Get returns a tool's embedding, if present.
func (s *Store) Get(toolName string) (discovery.ToolEmbedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[toolName]
	return e, ok
}

// Lookup implements discovery.EmbeddingLookup: the vector only, for the
// discovery engine's semantic-scoring layer.
func (s *Store) Lookup(toolName string) ([]float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[toolName]
	if !ok {
		return nil, false
	}
	return e.Vector, true
}

// Put installs or replaces a tool's embedding.
func (s *Store) Put(embedding discovery.ToolEmbedding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings[embedding.ToolName] = embedding
}

// Delete removes a tool's embedding, if present.
func (s *Store) Delete(toolName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, toolName)
}

// GetEnhancement returns a tool's enhancement record, if present.
func (s *Store) GetEnhancement(toolName string) (discovery.EnhancementRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enhancements[toolName]
	return e, ok
}

// PutEnhancement installs or replaces a tool's enhancement record.
func (s *Store) PutEnhancement(record discovery.EnhancementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enhancements[record.ToolName] = record
}

// DeleteEnhancement removes a tool's enhancement record, if present.
func (s *Store) DeleteEnhancement(toolName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.enhancements, toolName)
}

// SnapshotToDisk writes the current table to disk atomically: the document
// is written to a temp file in the same directory, then renamed over the
// target path, so a crash mid-write never leaves a truncated store.
func (s *Store) SnapshotToDisk() error {
	s.mu.RLock()
	doc := document{
		Embeddings:   make(map[string]discovery.ToolEmbedding, len(s.embeddings)),
		Enhancements: make(map[string]discovery.EnhancementRecord, len(s.enhancements)),
	}
	for k, v := range s.embeddings {
		doc.Embeddings[k] = v
	}
	for k, v := range s.enhancements {
		doc.Enhancements[k] = v
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("embedding: marshalling store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("embedding: creating store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".embeddings-*.tmp")
	if err != nil {
		return fmt.Errorf("embedding: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("embedding: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("embedding: closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("embedding: renaming store into place: %w", err)
	}
	return nil
}

// LoadFromDisk replaces the in-memory table with the contents of the store
// file. A missing file is not an error — the store simply starts empty, as
// it would on a first run.
func (s *Store) LoadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("embedding: reading store: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("embedding: parsing store: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings = doc.Embeddings
	if s.embeddings == nil {
		s.embeddings = make(map[string]discovery.ToolEmbedding)
	}
	s.enhancements = doc.Enhancements
	if s.enhancements == nil {
		s.enhancements = make(map[string]discovery.EnhancementRecord)
	}
	return nil
}
