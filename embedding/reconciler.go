package embedding

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paularlott/magictunnel/ai"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/discovery"
	"github.com/paularlott/magictunnel/registry"
)

// Reconciler watches the registry for changes and keeps the embedding store
// in sync: generating embeddings for added/changed tools, deleting entries
// for removed ones. It runs as a background task — discovery proceeds
// without a semantic contribution for any tool whose embedding is still
// pending, per the persistence contract.
type Reconciler struct {
	store  *Store
	reg    *registry.Registry
	llm    ai.Client
	cfg    config.EmbeddingConfig
	logger *zap.Logger

	jobs chan string
}

func NewReconciler(store *Store, reg *registry.Registry, llm ai.Client, cfg config.EmbeddingConfig, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:  store,
		reg:    reg,
		llm:    llm,
		cfg:    cfg,
		logger: logger,
		jobs:   make(chan string, 256),
	}
}

// Run reconciles the registry's current contents once, then processes
// SubscribeChanges events and generation jobs until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.enqueueAll()

	changes := r.reg.SubscribeChanges()
	go r.worker(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-changes:
			if !ok {
				return nil
			}
			r.handleChange(evt)
		}
	}
}

func (r *Reconciler) enqueueAll() {
	snap := r.reg.Snapshot()
	for _, tool := range snap.List() {
		r.enqueue(tool.Name)
	}
}

func (r *Reconciler) handleChange(evt registry.ChangeEvent) {
	switch evt.Kind {
	case registry.ChangeRemoved:
		for _, name := range evt.Tools {
			r.store.Delete(name)
			r.store.DeleteEnhancement(name)
		}
	case registry.ChangeInstalled, registry.ChangeUpdated:
		for _, name := range evt.Tools {
			r.enqueue(name)
		}
	}
}

// enqueue drops the job rather than blocking if the queue is full — a
// saturated reconciler simply leaves more tools without semantic
// contribution until it catches up, it never stalls the registry writer.
func (r *Reconciler) enqueue(toolName string) {
	select {
	case r.jobs <- toolName:
	default:
		r.logger.Warn("embedding reconciliation queue full, dropping job", zap.String("tool", toolName))
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case toolName := <-r.jobs:
			r.generate(ctx, toolName)
		}
	}
}

func (r *Reconciler) generate(ctx context.Context, toolName string) {
	snap := r.reg.Snapshot()
	tool, ok := snap.Lookup(toolName)
	if !ok {
		// Tool was removed again before this job ran.
		r.store.Delete(toolName)
		return
	}

	if existing, ok := r.store.Get(toolName); ok && existing.ContentHash == tool.ContentHash {
		return
	}

	timeout := r.cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	genCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text := embeddingText(tool)
	resp, err := r.llm.CreateEmbedding(genCtx, ai.EmbeddingRequest{Input: text, Model: r.cfg.Model})
	if err != nil {
		r.logger.Warn("embedding generation failed, tool stays semantic-blind until next reconciliation",
			zap.String("tool", toolName), zap.Error(err))
		return
	}
	if resp == nil || len(resp.Data) == 0 {
		r.logger.Warn("embedding provider returned no vectors", zap.String("tool", toolName))
		return
	}

	r.store.Put(discovery.ToolEmbedding{
		ToolName:    toolName,
		Vector:      resp.Data[0].Embedding,
		ContentHash: tool.ContentHash,
		Model:       r.cfg.Model,
		GeneratedAt: time.Now(),
	})
}

// embeddingText builds the text embedded for a tool: name, description and
// keywords concatenated. ContentHash does not cover keywords, so a change to
// keywords alone does not trigger regeneration.
func embeddingText(tool registry.ToolDefinition) string {
	parts := []string{tool.Name, tool.Description}
	if len(tool.Keywords) > 0 {
		parts = append(parts, strings.Join(tool.Keywords, " "))
	}
	return strings.Join(parts, "\n")
}
