// Package server is the composition root: it wires the capability registry,
// smart discovery engine, agent router, external-MCP manager and embedding
// store into one magictunnel.SessionManager-backed HTTP handler serving the
// MCP JSON-RPC surface described in the external interface.
package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/discovery"
	"github.com/paularlott/magictunnel/embedding"
	"github.com/paularlott/magictunnel/external"
	"github.com/paularlott/magictunnel/registry"
	"github.com/paularlott/magictunnel/router"
)

// Server is magictunneld's composition root and MCP request handler.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	reg        *registry.Registry
	discovery  *discovery.Engine
	router     *router.Router
	external   *external.Manager
	embed      *embedding.Store
	reconciler *embedding.Reconciler
	sessions   magictunnel.SessionManager

	instructions string

	mu            sync.Mutex
	sessionSlots  map[string]chan struct{}
	sessionCancel map[string]*cancelGroup
	pushChannels  map[string]*pushChannel
}

// Deps are the already-constructed collaborators a Server wires together.
// Each is optional except Config: a nil Sessions runs without session
// tracking, a nil Discovery disables smart_tool_discovery, a nil External
// disables bidirectional forwarding.
type Deps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Registry   *registry.Registry
	Discovery  *discovery.Engine
	Router     *router.Router
	External   *external.Manager
	Embedding  *embedding.Store
	Reconciler *embedding.Reconciler
	Sessions   magictunnel.SessionManager
}

func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:           deps.Config,
		logger:        logger,
		reg:           deps.Registry,
		discovery:     deps.Discovery,
		router:        deps.Router,
		external:      deps.External,
		embed:         deps.Embedding,
		reconciler:    deps.Reconciler,
		sessions:      deps.Sessions,
		instructions:  deps.Config.Server.Instructions,
		sessionSlots:  make(map[string]chan struct{}),
		sessionCancel: make(map[string]*cancelGroup),
		pushChannels:  make(map[string]*pushChannel),
	}
	s.wireForwarding()
	return s
}

// Start runs every background task this server owns (external-MCP
// supervisors, embedding reconciliation) until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	if s.external != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.external.Start(ctx)
		}()
	}

	if s.reconciler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.reconciler.Run(ctx); err != nil && err != context.Canceled {
				s.logger.Error("embedding reconciler stopped", zap.Error(err))
			}
		}()
	}

	if s.sessions != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runSessionCleanup(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

func (s *Server) runSessionCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.CleanupExpiredSessions(ctx, 30*time.Minute); err != nil {
				s.logger.Warn("session cleanup failed", zap.Error(err))
			}
		}
	}
}

// perSessionConcurrency returns the configured per-session concurrency cap,
// defaulting to 8 per the concurrency model.
func (s *Server) perSessionConcurrency() int {
	if s.cfg != nil && s.cfg.ExternalMCP.PerServerConcurrency > 0 {
		return s.cfg.ExternalMCP.PerServerConcurrency
	}
	return 8
}
