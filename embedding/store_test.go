package embedding

import (
	"path/filepath"
	"testing"

	"github.com/paularlott/magictunnel/discovery"
)

func TestStore_PutGetDelete(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "embeddings.json"))
	s.Put(discovery.ToolEmbedding{ToolName: "ping_host", Vector: []float64{0.1, 0.2}, ContentHash: "h1"})

	emb, ok := s.Get("ping_host")
	if !ok || emb.ContentHash != "h1" {
		t.Fatalf("expected stored embedding, got %+v ok=%v", emb, ok)
	}

	vec, ok := s.Lookup("ping_host")
	if !ok || len(vec) != 2 {
		t.Fatalf("expected Lookup to return vector, got %v ok=%v", vec, ok)
	}

	s.Delete("ping_host")
	if _, ok := s.Get("ping_host"); ok {
		t.Fatal("expected embedding to be gone after Delete")
	}
}

func TestStore_EnhancementLifecycle(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "embeddings.json"))
	s.PutEnhancement(discovery.EnhancementRecord{ToolName: "ping_host", Synonyms: []string{"ping", "reachability check"}})

	rec, ok := s.GetEnhancement("ping_host")
	if !ok || len(rec.Synonyms) != 2 {
		t.Fatalf("unexpected enhancement record: %+v ok=%v", rec, ok)
	}

	s.DeleteEnhancement("ping_host")
	if _, ok := s.GetEnhancement("ping_host"); ok {
		t.Fatal("expected enhancement to be gone after DeleteEnhancement")
	}
}

func TestStore_SnapshotAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	s := New(path)
	s.Put(discovery.ToolEmbedding{ToolName: "a", Vector: []float64{1, 2, 3}, ContentHash: "ha", Model: "text-embedding-3-small"})
	s.Put(discovery.ToolEmbedding{ToolName: "b", Vector: []float64{4, 5, 6}, ContentHash: "hb"})
	s.PutEnhancement(discovery.EnhancementRecord{ToolName: "a", Expanded: "does a thing"})

	if err := s.SnapshotToDisk(); err != nil {
		t.Fatalf("SnapshotToDisk: %v", err)
	}

	reloaded := New(path)
	if err := reloaded.LoadFromDisk(); err != nil {
		t.Fatalf("LoadFromDisk: %v", err)
	}

	a, ok := reloaded.Get("a")
	if !ok || a.ContentHash != "ha" || len(a.Vector) != 3 {
		t.Fatalf("unexpected reloaded entry a: %+v ok=%v", a, ok)
	}
	b, ok := reloaded.Get("b")
	if !ok || b.ContentHash != "hb" {
		t.Fatalf("unexpected reloaded entry b: %+v ok=%v", b, ok)
	}
	enh, ok := reloaded.GetEnhancement("a")
	if !ok || enh.Expanded != "does a thing" {
		t.Fatalf("unexpected reloaded enhancement: %+v ok=%v", enh, ok)
	}
}

func TestStore_LoadFromDisk_MissingFileIsNotError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err := s.LoadFromDisk(); err != nil {
		t.Fatalf("expected no error for missing store file, got %v", err)
	}
}
