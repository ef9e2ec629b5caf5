package external

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/paularlott/magictunnel/config"
)

// Supervisor owns one external MCP server's connection lifecycle: dialing
// its transport, retrying with exponential backoff on failure, and exposing
// its current State to the rest of the proxy.
type Supervisor struct {
	id        string
	transport Transport
	cfg       config.ExternalMCPConfig
	hooks     Hooks
	logger    *zap.Logger

	mu                  sync.RWMutex
	state               State
	consecutiveFailures int
	lastError           error
	lastTransition      time.Time

	stopCh chan struct{}
}

func NewSupervisor(id string, transport Transport, cfg config.ExternalMCPConfig, hooks Hooks, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		id:        id,
		transport: transport,
		cfg:       cfg,
		hooks:     hooks,
		logger:    logger,
		state:     StateStarting,
		stopCh:    make(chan struct{}),
	}
}

func (s *Supervisor) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ServerStatus{
		ID:                  s.id,
		State:               s.state,
		ConsecutiveFailures: s.consecutiveFailures,
		LastError:           s.lastError,
		LastTransition:      s.lastTransition,
	}
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.lastTransition = time.Now()
	s.mu.Unlock()
}

// Run dials the transport, retrying with backoff on failure, until either a
// connection succeeds, ctx is cancelled, or MaxConsecutiveFails attempts
// have failed in a row (at which point the supervisor settles in Stopped,
// fires OnServerDisconnected and Run returns the wrapped last error — the
// caller decides whether that's fatal).
func (s *Supervisor) Run(ctx context.Context) error {
	maxFails := s.cfg.MaxConsecutiveFails
	if maxFails <= 0 {
		maxFails = 5
	}

	bo := newExponentialBackOff(s.cfg)

	connectCtx := ctx
	if s.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, s.cfg.StartupTimeout)
		defer cancel()
	}

	operation := func() (struct{}, error) {
		if err := s.transport.Connect(connectCtx); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(connectCtx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(maxFails)),
		backoff.WithNotify(func(err error, d time.Duration) {
			s.mu.Lock()
			s.consecutiveFailures++
			s.lastError = err
			s.mu.Unlock()
			s.setState(StateRestarting)
			s.logger.Warn("external server connect failed, retrying",
				zap.String("server", s.id), zap.Error(err), zap.Duration("backoff", d))
		}),
	)
	if err != nil {
		s.setState(StateStopped)
		s.logger.Error("external server exhausted retries, giving up", zap.String("server", s.id), zap.Error(err))
		if s.hooks.OnServerDisconnected != nil {
			s.hooks.OnServerDisconnected(s.id, err)
		}
		return fmt.Errorf("external: server %q: %w", s.id, err)
	}

	s.mu.Lock()
	s.consecutiveFailures = 0
	s.mu.Unlock()
	s.setState(StateReady)
	if s.hooks.OnServerReady != nil {
		s.hooks.OnServerReady(s.id)
	}
	return nil
}

// Degrade marks the server Degraded — reachable but failing individual
// calls — without tearing down the supervisor loop. A caller notices this
// via repeated Call errors and decides whether to restart the supervisor.
func (s *Supervisor) Degrade(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
	s.setState(StateDegraded)
}

func (s *Supervisor) Stop() {
	close(s.stopCh)
	_ = s.transport.Close()
	s.setState(StateStopped)
}

// Transport exposes the underlying transport for callers that need to issue
// calls or register an inbound handler once the supervisor reaches Ready.
func (s *Supervisor) Transport() Transport { return s.transport }

func (s *Supervisor) ID() string { return s.id }

// newExponentialBackOff builds the retry schedule for a supervisor's connect
// loop. Jitter defaults to +/-20% rather than the library's own +/-50%
// default, matching the documented reconnection behaviour.
func newExponentialBackOff(cfg config.ExternalMCPConfig) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = orDefault(cfg.InitialBackoff, 500*time.Millisecond)
	bo.MaxInterval = orDefault(cfg.MaxBackoff, 30*time.Second)
	if cfg.BackoffFactor > 0 {
		bo.Multiplier = cfg.BackoffFactor
	}
	bo.RandomizationFactor = cfg.BackoffJitter
	if bo.RandomizationFactor <= 0 {
		bo.RandomizationFactor = 0.2
	}
	return bo
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
