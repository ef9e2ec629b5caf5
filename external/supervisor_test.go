package external

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	magictunnel "github.com/paularlott/magictunnel"
	"github.com/paularlott/magictunnel/config"
)

type fakeTransport struct {
	connectErr   error
	connectCalls int
	inbound      InboundHandler
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connectCalls++
	return f.connectErr
}

func (f *fakeTransport) Call(ctx context.Context, req *magictunnel.MCPRequest) (*magictunnel.MCPResponse, error) {
	return &magictunnel.MCPResponse{JSONRPC: "2.0", ID: req.ID}, nil
}

func (f *fakeTransport) SetInboundHandler(h InboundHandler) { f.inbound = h }
func (f *fakeTransport) SupportsInbound() bool               { return true }
func (f *fakeTransport) Close() error                        { return nil }

func TestSupervisor_Run_SucceedsImmediately(t *testing.T) {
	transport := &fakeTransport{}
	sup := NewSupervisor("srv", transport, config.ExternalMCPConfig{}, Hooks{}, zap.NewNop())

	if err := sup.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sup.Status().State != StateReady {
		t.Fatalf("expected StateReady, got %v", sup.Status().State)
	}
	if transport.connectCalls != 1 {
		t.Fatalf("expected exactly one connect call, got %d", transport.connectCalls)
	}
}

func TestSupervisor_Run_RetriesThenGivesUp(t *testing.T) {
	transport := &fakeTransport{connectErr: errors.New("connection refused")}
	cfg := config.ExternalMCPConfig{
		MaxConsecutiveFails: 2,
		InitialBackoff:      time.Millisecond,
		MaxBackoff:          2 * time.Millisecond,
		BackoffFactor:       2,
	}

	var disconnected bool
	hooks := Hooks{OnServerDisconnected: func(id string, err error) { disconnected = true }}
	sup := NewSupervisor("srv", transport, cfg, hooks, zap.NewNop())

	err := sup.Run(context.Background())
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if sup.Status().State != StateStopped {
		t.Fatalf("expected StateStopped, got %v", sup.Status().State)
	}
	if !disconnected {
		t.Fatal("expected OnServerDisconnected hook to fire")
	}
	if transport.connectCalls < 2 {
		t.Fatalf("expected at least 2 connect attempts, got %d", transport.connectCalls)
	}
}

func TestNewExponentialBackOff_DefaultsJitterToTwentyPercent(t *testing.T) {
	bo := newExponentialBackOff(config.ExternalMCPConfig{})
	if bo.RandomizationFactor != 0.2 {
		t.Fatalf("expected default randomization factor 0.2, got %v", bo.RandomizationFactor)
	}
}

func TestNewExponentialBackOff_HonoursConfiguredJitter(t *testing.T) {
	bo := newExponentialBackOff(config.ExternalMCPConfig{BackoffJitter: 0.05})
	if bo.RandomizationFactor != 0.05 {
		t.Fatalf("expected configured randomization factor 0.05, got %v", bo.RandomizationFactor)
	}
}

func TestSupervisor_Degrade(t *testing.T) {
	transport := &fakeTransport{}
	sup := NewSupervisor("srv", transport, config.ExternalMCPConfig{}, Hooks{}, zap.NewNop())
	sup.Degrade(errors.New("upstream timeout"))
	if sup.Status().State != StateDegraded {
		t.Fatalf("expected StateDegraded, got %v", sup.Status().State)
	}
}
