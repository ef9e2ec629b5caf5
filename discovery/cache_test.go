package discovery

import (
	"testing"
	"time"
)

func TestCaches_DiscoveryRoundTrip(t *testing.T) {
	c := newCaches(time.Minute, time.Minute, 16)
	key := discoveryCacheKey{request: "list files", mode: ModeHybrid, snapshotVer: 1}

	if _, ok := c.getDiscovery(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.putDiscovery(key, Result{ToolName: "list_files", Confidence: 0.9, Parameters: map[string]interface{}{"path": "/tmp"}})

	got, ok := c.getDiscovery(key)
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got.ToolName != "list_files" {
		t.Fatalf("expected list_files, got %v", got.ToolName)
	}
	if got.Parameters != nil {
		t.Fatal("expected discovery cache entry to strip Parameters")
	}
}

func TestCaches_DiscoveryExpiry(t *testing.T) {
	c := newCaches(time.Nanosecond, time.Minute, 16)
	key := discoveryCacheKey{request: "x", mode: ModeHybrid, snapshotVer: 1}
	c.putDiscovery(key, Result{ToolName: "x"})

	time.Sleep(time.Millisecond)

	if _, ok := c.getDiscovery(key); ok {
		t.Fatal("expected entry to have expired")
	}
}

func TestCaches_ParamsRoundTrip(t *testing.T) {
	c := newCaches(time.Minute, time.Minute, 16)
	key := paramCacheKey{toolName: "list_files", schemaHash: "abc", request: "list files"}

	c.putParams(key, map[string]interface{}{"path": "/tmp"})

	got, ok := c.getParams(key)
	if !ok || got["path"] != "/tmp" {
		t.Fatalf("expected cached params, got %v ok=%v", got, ok)
	}
}

func TestCaches_NilCachesAreNoops(t *testing.T) {
	var c *caches
	if _, ok := c.getDiscovery(discoveryCacheKey{}); ok {
		t.Fatal("expected nil caches to always miss")
	}
	c.putDiscovery(discoveryCacheKey{}, Result{}) // must not panic
}

func TestNormaliseRequest_CollapsesWhitespaceAndCase(t *testing.T) {
	if got := normaliseRequest("  List   FILES  "); got != "list files" {
		t.Fatalf("expected normalised request, got %q", got)
	}
}

func TestHashSchema_Deterministic(t *testing.T) {
	a := map[string]interface{}{"type": "object", "properties": map[string]interface{}{"x": map[string]interface{}{"type": "string"}}}
	b := map[string]interface{}{"type": "object", "properties": map[string]interface{}{"x": map[string]interface{}{"type": "string"}}}
	if hashSchema(a) != hashSchema(b) {
		t.Fatal("expected identical schemas to hash identically")
	}
}
