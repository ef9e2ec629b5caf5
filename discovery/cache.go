package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// discoveryCacheEntry is what the discovery cache stores: a Result stripped
// of its Parameters map, since parameters are cached separately keyed on the
// tool's schema rather than the registry snapshot version.
type discoveryCacheEntry struct {
	result    Result
	expiresAt time.Time
}

// discoveryCacheKey matches the spec's key: (normalised_request, mode,
// registry_snapshot_version). Any registry change bumps the snapshot
// version, which invalidates every entry keyed on the old one for free —
// stale entries simply age out of the LRU rather than needing an explicit
// sweep.
type discoveryCacheKey struct {
	request     string
	mode        Mode
	snapshotVer uint64
}

// paramCacheKey matches the spec's key: (tool_name, tool_schema_hash,
// normalised_request), independent of registry_snapshot_version so a schema
// rewrite (which changes ContentHash, and so the hash here) invalidates it
// but unrelated registry churn doesn't.
type paramCacheKey struct {
	toolName   string
	schemaHash string
	request    string
}

type paramCacheEntry struct {
	params    map[string]interface{}
	expiresAt time.Time
}

// caches bundles the two independent LRU caches described for the discovery
// engine. A zero-value caches with nil lru fields behaves as "caching
// disabled" — every lookup misses, every store is a no-op.
type caches struct {
	mu          sync.Mutex
	discovery   *lru.Cache[discoveryCacheKey, discoveryCacheEntry]
	params      *lru.Cache[paramCacheKey, paramCacheEntry]
	discoveryTTL time.Duration
	paramTTL     time.Duration
}

func newCaches(discoveryTTL, paramTTL time.Duration, size int) *caches {
	if size <= 0 {
		size = 1024
	}
	d, _ := lru.New[discoveryCacheKey, discoveryCacheEntry](size)
	p, _ := lru.New[paramCacheKey, paramCacheEntry](size)
	return &caches{discovery: d, params: p, discoveryTTL: discoveryTTL, paramTTL: paramTTL}
}

func (c *caches) getDiscovery(key discoveryCacheKey) (Result, bool) {
	if c == nil || c.discovery == nil {
		return Result{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.discovery.Get(key)
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			c.discovery.Remove(key)
		}
		return Result{}, false
	}
	return entry.result, true
}

func (c *caches) putDiscovery(key discoveryCacheKey, result Result) {
	if c == nil || c.discovery == nil {
		return
	}
	stripped := result
	stripped.Parameters = nil
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discovery.Add(key, discoveryCacheEntry{result: stripped, expiresAt: time.Now().Add(c.discoveryTTL)})
}

func (c *caches) getParams(key paramCacheKey) (map[string]interface{}, bool) {
	if c == nil || c.params == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.params.Get(key)
	if !ok || time.Now().After(entry.expiresAt) {
		if ok {
			c.params.Remove(key)
		}
		return nil, false
	}
	return entry.params, true
}

func (c *caches) putParams(key paramCacheKey, params map[string]interface{}) {
	if c == nil || c.params == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params.Add(key, paramCacheEntry{params: params, expiresAt: time.Now().Add(c.paramTTL)})
}

// normaliseRequest collapses whitespace/case differences so equivalent
// requests share a cache entry.
func normaliseRequest(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// hashSchema produces the tool_schema_hash component of paramCacheKey from a
// tool's input schema, deterministic regardless of map iteration order.
func hashSchema(schema map[string]interface{}) string {
	b, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return hashString(string(b))
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
