package discovery

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/ai"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/registry"
)

// Engine is the Smart Discovery Engine: it blends semantic, rule-based and
// LLM-reranked scores into one confidence-ranked answer for a free-text
// request, with caching and a fallback chain for low-confidence results.
type Engine struct {
	logger   *zap.Logger
	reg      *registry.Registry
	embed    EmbeddingLookup
	llm      ai.Client
	cfg      config.SmartDiscoveryConfig
	caches   *caches

	mu          sync.Mutex
	recentTools []string // most-recently-successful tool names, newest first
}

// New builds an Engine. embed and llm may both be nil — the hybrid blend
// degrades gracefully to whichever layers have a usable source, weights
// renormalised over what remains.
func New(logger *zap.Logger, reg *registry.Registry, embed EmbeddingLookup, llm ai.Client, cfg config.SmartDiscoveryConfig) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		logger: logger,
		reg:    reg,
		embed:  embed,
		llm:    llm,
		cfg:    cfg,
		caches: newCaches(cfg.DiscoveryCacheTTL, cfg.ParamCacheTTL, 1024),
	}
}

// Discover runs the full pipeline: Resolving -> Matching -> Extracting ->
// (Succeeded | Failed). Executing is the caller's responsibility once it has
// a tool name and parameters; this engine never invokes a tool itself.
func (e *Engine) Discover(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = Mode(e.cfg.DefaultMode)
	}
	if mode == "" {
		mode = ModeHybrid
	}

	threshold := req.ConfidenceThreshold
	if threshold == 0 {
		threshold = e.cfg.ConfidenceThreshold
	}

	totalTimeout := e.cfg.TotalTimeout
	if totalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, totalTimeout)
		defer cancel()
	}

	snap := e.reg.Snapshot()
	normalised := normaliseRequest(req.Text)

	// withContext fills schema-declared parameters that the extraction
	// source left unset from the caller-supplied req.Context.
	withContext := func(schema, params map[string]interface{}) map[string]interface{} {
		props, _ := schema["properties"].(map[string]interface{})
		out := make(map[string]interface{}, len(params)+len(req.Context))
		for k, v := range params {
			out[k] = v
		}
		for k, v := range req.Context {
			if _, declared := props[k]; declared && out[k] == nil {
				out[k] = v
			}
		}
		return out
	}

	cacheKey := discoveryCacheKey{request: normalised, mode: mode, snapshotVer: snap.Version}
	if cached, ok := e.caches.getDiscovery(cacheKey); ok {
		result := cached
		toolDef, _ := snap.Lookup(result.ToolName)
		cachedParams := e.lookupParams(ctx, snap, result.ToolName, req.Text)

		params, missing, err := extractParameters(toolDef.InputSchema, withContext(toolDef.InputSchema, cachedParams))
		if err != nil {
			result.State = StateFailed
			return &result, err
		}
		if len(missing) > 0 {
			result.State = StateFailed
			return &result, asDiscoveryMissingParametersError(req.Text, toolDef.InputSchema, missing)
		}
		result.Parameters = params
		result.State = StateSucceeded
		return &result, nil
	}

	if err := ctx.Err(); err != nil {
		return &Result{State: StateCancelled}, magictunnel.ErrCancelled
	}

	reasoning := []string{"resolving: mode=" + string(mode)}

	tools := snap.List()
	candidates := make([]candidate, len(tools))
	for i, t := range tools {
		candidates[i] = candidate{
			name:         t.Name,
			description:  t.Description,
			keywords:     t.Keywords,
			inputSchema:  t.InputSchema,
			insertionIdx: t.InsertionIndex,
		}
	}

	queryLower := normalised

	if mode == ModeHybrid || mode == ModeRuleBased {
		for i := range candidates {
			candidates[i].rule = ruleScore(queryLower, candidates[i].name, candidates[i].description, candidates[i].keywords)
		}
		reasoning = append(reasoning, "matching: rule layer scored")
	}

	semanticUsed, llmUsed := false, false
	if mode == ModeHybrid || mode == ModeSemantic {
		if e.embed != nil && e.llm != nil {
			if queryVec, err := e.queryEmbedding(ctx, req.Text); err != nil {
				e.logger.Warn("discovery: semantic layer unavailable", zap.Error(err))
			} else {
				scoreSemantic(e.embed, queryVec, candidates)
				semanticUsed = true
				reasoning = append(reasoning, "matching: semantic layer scored")
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return &Result{State: StateCancelled}, magictunnel.ErrCancelled
	}

	var llmParams map[string]interface{}

	if mode == ModeHybrid || mode == ModeLlmBased {
		if e.llm != nil {
			subset := buildLlmCandidateSet(queryLower, candidates)
			llmCtx := ctx
			var cancel context.CancelFunc
			if e.cfg.PerLlmCallTimeout > 0 {
				llmCtx, cancel = context.WithTimeout(ctx, e.cfg.PerLlmCallTimeout)
			}
			params, reason, err := scoreLlm(llmCtx, e.llm, req.Text, subset)
			if cancel != nil {
				cancel()
			}
			if err != nil {
				e.logger.Warn("discovery: llm layer unavailable", zap.Error(err))
				if mode == ModeLlmBased {
					return &Result{State: StateFailed}, &magictunnel.DiscoveryError{
						Kind:    magictunnel.DiscoveryLlmUnavailable,
						Request: req.Text,
					}
				}
			} else {
				llmParams = params
				llmUsed = true
				mergeLlmScores(candidates, subset)
				if reason != "" {
					reasoning = append(reasoning, "matching: llm layer: "+reason)
				}
			}
		}
	}

	layerWeights := e.cfg.Weights
	if !semanticUsed {
		layerWeights.Semantic = 0
	}
	if !llmUsed {
		layerWeights.LLM = 0
	}
	weights := resolveWeights(layerWeights, mode)
	ruleScores := make(map[string]float64, len(candidates))
	for i := range candidates {
		ruleScores[candidates[i].name] = candidates[i].rule
		candidates[i].rule = blendFinal(candidates[i], weights)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.rule != cj.rule {
			return ci.rule > cj.rule
		}
		if ci.semantic != cj.semantic {
			return ci.semantic > cj.semantic
		}
		return ci.name < cj.name
	})

	if len(candidates) == 0 {
		return &Result{State: StateFailed}, asDiscoveryNotFoundError(req.Text, nil)
	}

	top := candidates[0]
	if top.rule < threshold {
		e.mu.Lock()
		recent := append([]string(nil), e.recentTools...)
		e.mu.Unlock()

		name, ok, suggestions := runFallbackChain(req.Text, tools, recent)
		if !ok {
			return &Result{State: StateFailed, Reasoning: append(reasoning, "fallback: no match")},
				asDiscoveryNotFoundError(req.Text, suggestions)
		}
		for _, c := range candidates {
			if c.name == name {
				top = c
				break
			}
		}
		reasoning = append(reasoning, "fallback: matched "+name)
	}

	result := Result{
		ToolName:   top.name,
		Confidence: top.rule,
		Scores: MethodScores{
			Semantic: top.semantic,
			Rule:     ruleScores[top.name],
			LLM:      top.llm,
			Final:    top.rule,
		},
		Reasoning:   reasoning,
		State:       StateExtracting,
		SnapshotVer: snap.Version,
	}

	e.caches.putDiscovery(cacheKey, result)

	toolDef, _ := snap.Lookup(top.name)
	params, missing, err := extractParameters(toolDef.InputSchema, withContext(toolDef.InputSchema, llmParams))
	if err != nil {
		result.State = StateFailed
		return &result, err
	}
	if len(missing) > 0 {
		result.State = StateFailed
		return &result, asDiscoveryMissingParametersError(req.Text, toolDef.InputSchema, missing)
	}

	result.Parameters = params
	result.State = StateSucceeded

	if len(req.Context) == 0 {
		paramKey := paramCacheKey{toolName: top.name, schemaHash: hashSchema(toolDef.InputSchema), request: normalised}
		e.caches.putParams(paramKey, params)
	}

	return &result, nil
}

// NoteSuccess records a tool name as recently-successful, for the
// recently-successful-tools fallback step. Call it after a discovered tool
// has actually been invoked and returned a non-error result.
func (e *Engine) NoteSuccess(toolName string) {
	const maxRecent = 20
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, n := range e.recentTools {
		if n == toolName {
			e.recentTools = append(e.recentTools[:i], e.recentTools[i+1:]...)
			break
		}
	}
	e.recentTools = append([]string{toolName}, e.recentTools...)
	if len(e.recentTools) > maxRecent {
		e.recentTools = e.recentTools[:maxRecent]
	}
}

// queryEmbedding generates the request's embedding vector on the fly via the
// configured LLM client. Tool embeddings, by contrast, are generated offline
// by the embedding package and only ever read here through EmbeddingLookup.
func (e *Engine) queryEmbedding(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.llm.CreateEmbedding(ctx, ai.EmbeddingRequest{Input: text})
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Data) == 0 {
		return nil, nil
	}
	return resp.Data[0].Embedding, nil
}

func (e *Engine) lookupParams(ctx context.Context, snap *registry.Snapshot, toolName, requestText string) map[string]interface{} {
	schema, ok := snap.Lookup(toolName)
	if !ok {
		return nil
	}
	key := paramCacheKey{toolName: toolName, schemaHash: hashSchema(schema.InputSchema), request: normaliseRequest(requestText)}
	params, _ := e.caches.getParams(key)
	return params
}

// mergeLlmScores copies the llm score from the (possibly smaller) subset
// that was actually sent to the model back onto the full candidate slice.
func mergeLlmScores(full []candidate, subset []candidate) {
	byName := make(map[string]candidate, len(subset))
	for _, c := range subset {
		byName[c.name] = c
	}
	for i := range full {
		if s, ok := byName[full[i].name]; ok && s.llmOK {
			full[i].llm = s.llm
			full[i].llmOK = true
		}
	}
}

type resolvedWeights struct {
	semantic, rule, llm float64
}

// resolveWeights renormalises the configured hybrid weights over whichever
// layers are actually in play for mode, so a single-layer mode doesn't
// silently cap its own final score below 1.0.
func resolveWeights(w config.DiscoveryWeights, mode Mode) resolvedWeights {
	switch mode {
	case ModeRuleBased:
		return resolvedWeights{rule: 1}
	case ModeSemantic:
		return resolvedWeights{semantic: 1}
	case ModeLlmBased:
		return resolvedWeights{llm: 1}
	default:
		total := w.Semantic + w.Rule + w.LLM
		if total == 0 {
			total = 1
		}
		return resolvedWeights{semantic: w.Semantic / total, rule: w.Rule / total, llm: w.LLM / total}
	}
}

// blendFinal computes the hybrid final score. A candidate with no semantic
// signal (below threshold or no embedding) simply doesn't contribute that
// term; its weight is absorbed by the other layers having already been
// renormalised at the mode level, matching "excluded from the semantic
// contribution only, not dropped overall."
func blendFinal(c candidate, w resolvedWeights) float64 {
	var score float64
	if c.semanticOK {
		score += w.semantic * c.semantic
	}
	score += w.rule * c.rule
	if c.llmOK {
		score += w.llm * c.llm
	}
	return score
}
