// Command magictunneld runs the MagicTunnel MCP proxy: it loads capability
// files into a registry, wires the smart discovery engine, the tool router,
// the external-MCP supervisor fleet and the embedding reconciler, then
// serves the MCP JSON-RPC surface over HTTP until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/ai"
	"github.com/paularlott/magictunnel/ai/openai"
	"github.com/paularlott/magictunnel/config"
	"github.com/paularlott/magictunnel/discovery"
	"github.com/paularlott/magictunnel/embedding"
	"github.com/paularlott/magictunnel/external"
	"github.com/paularlott/magictunnel/registry"
	"github.com/paularlott/magictunnel/router"
	"github.com/paularlott/magictunnel/server"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:           "magictunneld",
		Short:         "MagicTunnel intelligent MCP proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newValidateCapabilitiesCmd(&configPath))
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if exitErr, ok := err.(exitCoder); ok {
			return exitErr.ExitCode()
		}
		return 2
	}
	return 0
}

type exitCoder interface {
	ExitCode() int
}

type runtimeError struct {
	code int
	err  error
}

func (e *runtimeError) Error() string { return e.err.Error() }
func (e *runtimeError) ExitCode() int { return e.code }

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the magictunneld version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newValidateCapabilitiesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-capabilities [dirs...]",
		Short: "Parse and validate capability files without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return &runtimeError{1, err}
			}
			dirs := args
			if len(dirs) == 0 {
				dirs = cfg.Registry.CapabilityDirs
			}
			if len(dirs) == 0 {
				return &runtimeError{1, fmt.Errorf("no capability directories given and none configured")}
			}

			logger := zap.NewNop()
			reg := registry.New(logger, registry.ConflictPolicy(cfg.Registry.ConflictPolicy))
			failed := 0
			for _, dir := range dirs {
				n, err := loadCapabilityDir(reg, dir)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", dir, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d file(s) OK\n", dir, n)
			}
			snap := reg.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d tool(s), %d prompt(s), %d resource(s)\n",
				len(snap.Tools), len(snap.Prompts), len(snap.Resources))
			if failed > 0 {
				return &runtimeError{1, fmt.Errorf("%d capability directory error(s)", failed)}
			}
			return nil
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MagicTunnel proxy server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func serve(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return &runtimeError{1, fmt.Errorf("loading config: %w", err)}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return &runtimeError{1, fmt.Errorf("building logger: %w", err)}
	}
	defer logger.Sync()

	termCtx, stopTerm := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stopTerm()
	ctx, stop := signal.NotifyContext(termCtx, os.Interrupt)
	defer stop()

	reg := registry.New(logger, registry.ConflictPolicy(cfg.Registry.ConflictPolicy))

	var watcher *registry.Watcher
	if cfg.Registry.HotReload && len(cfg.Registry.CapabilityDirs) > 0 {
		// Watcher.Run performs its own initial directory scan before it
		// starts watching, so no separate up-front load is needed here.
		watcher = registry.NewWatcher(reg, cfg.Registry.CapabilityDirs, cfg.Registry.DebounceWindow, logger)
	} else {
		for _, dir := range cfg.Registry.CapabilityDirs {
			if _, err := loadCapabilityDir(reg, dir); err != nil {
				logger.Warn("initial capability load failed", zap.String("dir", dir), zap.Error(err))
			}
		}
	}

	sessions, err := buildSessionManager(cfg)
	if err != nil {
		return &runtimeError{1, fmt.Errorf("building session manager: %w", err)}
	}

	llmClient, err := buildLLMClient(cfg)
	if err != nil {
		logger.Warn("LLM client unavailable, smart discovery falls back to rule/semantic layers only", zap.Error(err))
	}

	embedStore := embedding.New(cfg.Embedding.StorePath)
	if err := embedStore.LoadFromDisk(); err != nil {
		logger.Warn("loading embedding store", zap.Error(err))
	}

	discoveryEngine := discovery.New(logger, reg, embedStore, llmClient, cfg.SmartDiscovery)

	var reconciler *embedding.Reconciler
	if llmClient != nil {
		reconciler = embedding.NewReconciler(embedStore, reg, llmClient, cfg.Embedding, logger)
	}

	proxyCaps := magictunnel.ProxyCapabilities{Sampling: true, Elicitation: true, Roots: true}

	// external.NewManager needs a clientCaps callback bound to the server's
	// session layer, but server.New needs the external.Manager it wires
	// forwarding into. Break the cycle with a forward-referenced closure:
	// the closure only runs once a session is active, by which point srv
	// has already been assigned below.
	var srv *server.Server
	clientCaps := func(ctx context.Context) magictunnel.ClientCapabilities {
		if srv == nil {
			return magictunnel.ClientCapabilities{}
		}
		return srv.ClientCapabilitiesForContext(ctx)
	}

	extManager := external.NewManager(logger, reg, cfg.ExternalMCP, proxyCaps, clientCaps)

	rt := router.New(router.Options{
		Logger:         logger,
		ExternalCaller: extManager,
	})

	srv = server.New(server.Deps{
		Config:     cfg,
		Logger:     logger,
		Registry:   reg,
		Discovery:  discoveryEngine,
		Router:     rt,
		External:   extManager,
		Embedding:  embedStore,
		Reconciler: reconciler,
		Sessions:   sessions,
	})

	httpServer := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("magictunneld listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	if watcher != nil {
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("capability watcher stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := srv.Start(ctx); err != nil && err != context.Canceled {
			logger.Error("server background tasks stopped", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		if termCtx.Err() == nil {
			shutdown(httpServer, logger)
			return &runtimeError{130, fmt.Errorf("interrupted")}
		}
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
		shutdown(httpServer, logger)
		return &runtimeError{2, err}
	}

	shutdown(httpServer, logger)
	return nil
}

func shutdown(httpServer *http.Server, logger *zap.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// buildSessionManager constructs the configured SessionManager backend. JWT
// needs no external dependency; Redis gives revocable, distributed sessions.
func buildSessionManager(cfg *config.Config) (magictunnel.SessionManager, error) {
	switch cfg.Session.Backend {
	case "", "jwt":
		if cfg.Session.JWTSignKey != "" {
			return magictunnel.NewJWTSessionManager([]byte(cfg.Session.JWTSignKey), cfg.Session.TTL), nil
		}
		return magictunnel.NewJWTSessionManagerWithAutoKey(cfg.Session.TTL)
	case "redis":
		if cfg.Session.RedisAddr == "" {
			return nil, fmt.Errorf("session.redis_addr required for backend %q", cfg.Session.Backend)
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Session.RedisAddr})
		return magictunnel.NewRedisSessionManager(client, cfg.Session.TTL), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// buildLLMClient constructs the LLM client smart discovery and embedding
// generation share. A missing API key is not fatal: discovery degrades to
// its rule/semantic layers rather than refusing to start.
func buildLLMClient(cfg *config.Config) (ai.Client, error) {
	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("no LLM API key configured")
	}
	client, err := ai.NewClient(ai.Config{
		Provider: ai.Provider(cfg.LLM.Provider),
		Config: openai.Config{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Provider: cfg.LLM.Provider,
		},
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func loadCapabilityDir(reg *registry.Registry, dir string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, path := range entries {
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("reading %s: %w", path, err)
		}
		file, err := registry.ParseCapabilityFile(data)
		if err != nil {
			return loaded, fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := registry.Validate(file); err != nil {
			return loaded, fmt.Errorf("validating %s: %w", path, err)
		}
		if err := reg.InstallFile(path, file); err != nil {
			return loaded, fmt.Errorf("installing %s: %w", path, err)
		}
		loaded++
	}
	return loaded, nil
}
