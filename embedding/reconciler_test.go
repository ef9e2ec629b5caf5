package embedding

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/paularlott/magictunnel/ai"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/registry"
)

// fakeEmbedClient implements ai.Client, only CreateEmbedding does anything
// real — every other method is unreachable from the reconciler.
type fakeEmbedClient struct {
	calls int
	err   error
}

func (f *fakeEmbedClient) Provider() string                      { return "fake" }
func (f *fakeEmbedClient) SupportsCapability(cap string) bool     { return cap == string(ai.ProviderCapabilityEmbedding) }
func (f *fakeEmbedClient) GetModels(ctx context.Context) (*ai.ModelsResponse, error) { return nil, nil }
func (f *fakeEmbedClient) ChatCompletion(ctx context.Context, req ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
	return nil, nil
}
func (f *fakeEmbedClient) StreamChatCompletion(ctx context.Context, req ai.ChatCompletionRequest) *ai.ChatStream {
	return nil
}
func (f *fakeEmbedClient) CreateEmbedding(ctx context.Context, req ai.EmbeddingRequest) (*ai.EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &ai.EmbeddingResponse{Data: []ai.Embedding{{Embedding: []float64{0.1, 0.2, 0.3}}}}, nil
}
func (f *fakeEmbedClient) CreateResponse(ctx context.Context, req ai.CreateResponseRequest) (*ai.ResponseObject, error) {
	return nil, nil
}
func (f *fakeEmbedClient) GetResponse(ctx context.Context, id string) (*ai.ResponseObject, error) {
	return nil, nil
}
func (f *fakeEmbedClient) CancelResponse(ctx context.Context, id string) (*ai.ResponseObject, error) {
	return nil, nil
}
func (f *fakeEmbedClient) DeleteResponse(ctx context.Context, id string) error  { return nil }
func (f *fakeEmbedClient) CompactResponse(ctx context.Context, id string) (*ai.ResponseObject, error) {
	return nil, nil
}
func (f *fakeEmbedClient) Close() error { return nil }

func newTestRegistry() *registry.Registry {
	reg := registry.New(zap.NewNop(), registry.ConflictReject)
	reg.InstallFile("fixture", &registry.CapabilityFile{
		Tools: []registry.ToolDefinition{
			{Name: "ping_host", Description: "Check host reachability", Keywords: []string{"network"}, Enabled: true},
		},
	})
	return reg
}

func TestReconciler_GeneratesEmbeddingForExistingTools(t *testing.T) {
	reg := newTestRegistry()
	store := New(filepath.Join(t.TempDir(), "embeddings.json"))
	client := &fakeEmbedClient{}
	rec := NewReconciler(store, reg, client, config.EmbeddingConfig{GenerationTimeout: time.Second}, zap.NewNop())

	rec.enqueueAll()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go rec.worker(ctx)

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, ok := store.Get("ping_host"); ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected embedding to be generated for ping_host")
}

func TestReconciler_SkipsUnchangedContentHash(t *testing.T) {
	reg := newTestRegistry()
	store := New(filepath.Join(t.TempDir(), "embeddings.json"))
	client := &fakeEmbedClient{}
	rec := NewReconciler(store, reg, client, config.EmbeddingConfig{GenerationTimeout: time.Second}, zap.NewNop())

	snap := reg.Snapshot()
	tool, _ := snap.Lookup("ping_host")

	ctx := context.Background()
	rec.generate(ctx, "ping_host")
	if client.calls != 1 {
		t.Fatalf("expected 1 call after first generate, got %d", client.calls)
	}

	stored, _ := store.Get("ping_host")
	if stored.ContentHash != tool.ContentHash {
		t.Fatalf("expected stored hash to match tool hash")
	}

	rec.generate(ctx, "ping_host")
	if client.calls != 1 {
		t.Fatalf("expected generate to skip unchanged content hash, got %d calls", client.calls)
	}
}

func TestReconciler_HandleChangeRemoved(t *testing.T) {
	reg := newTestRegistry()
	store := New(filepath.Join(t.TempDir(), "embeddings.json"))
	client := &fakeEmbedClient{}
	rec := NewReconciler(store, reg, client, config.EmbeddingConfig{}, zap.NewNop())

	rec.generate(context.Background(), "ping_host")
	if _, ok := store.Get("ping_host"); !ok {
		t.Fatal("expected embedding to exist before removal event")
	}

	rec.handleChange(registry.ChangeEvent{Kind: registry.ChangeRemoved, Tools: []string{"ping_host"}})
	if _, ok := store.Get("ping_host"); ok {
		t.Fatal("expected embedding to be removed after ChangeRemoved event")
	}
}
