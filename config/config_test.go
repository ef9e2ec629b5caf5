package config

import (
	"os"
	"testing"
)

func TestDefaultWeightsMatchDecidedOpenQuestion(t *testing.T) {
	cfg := Default()
	if cfg.SmartDiscovery.Weights.Semantic != 0.30 ||
		cfg.SmartDiscovery.Weights.Rule != 0.15 ||
		cfg.SmartDiscovery.Weights.LLM != 0.55 {
		t.Fatalf("unexpected default weights: %+v", cfg.SmartDiscovery.Weights)
	}
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	os.Setenv("MAGICTUNNEL_SERVER_LISTEN_ADDR", ":9090")
	defer os.Unsetenv("MAGICTUNNEL_SERVER_LISTEN_ADDR")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Fatalf("expected env override to apply, got %q", cfg.Server.ListenAddr)
	}
}

func TestLoadFromYAML(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.WriteString("server:\n  name: test-server\n  listen_addr: ':1234'\n")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Name != "test-server" || cfg.Server.ListenAddr != ":1234" {
		t.Fatalf("unexpected config: %+v", cfg.Server)
	}
}

func TestDefault_BackoffJitterIsTwentyPercent(t *testing.T) {
	cfg := Default()
	if cfg.ExternalMCP.BackoffJitter != 0.2 {
		t.Fatalf("expected default backoff jitter 0.2, got %v", cfg.ExternalMCP.BackoffJitter)
	}
}

func TestDefault_SessionBackendIsJWT(t *testing.T) {
	cfg := Default()
	if cfg.Session.Backend != "jwt" {
		t.Fatalf("expected default session backend jwt, got %q", cfg.Session.Backend)
	}
	if cfg.Session.TTL <= 0 {
		t.Fatalf("expected a positive default session TTL, got %v", cfg.Session.TTL)
	}
}

func TestSessionBackend_EnvOverride(t *testing.T) {
	os.Setenv("MAGICTUNNEL_SESSION_BACKEND", "redis")
	os.Setenv("MAGICTUNNEL_SESSION_REDIS_ADDR", "localhost:6379")
	defer os.Unsetenv("MAGICTUNNEL_SESSION_BACKEND")
	defer os.Unsetenv("MAGICTUNNEL_SESSION_REDIS_ADDR")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Backend != "redis" {
		t.Fatalf("expected session backend override to apply, got %q", cfg.Session.Backend)
	}
	if cfg.Session.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis addr override to apply, got %q", cfg.Session.RedisAddr)
	}
}
