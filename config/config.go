// Package config defines the configuration contract for magictunneld and
// loads it from YAML with MAGICTUNNEL_<SECTION>_<KEY> environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration tree, matching the sections named in
// the external interface: server, registry, smart_discovery, embedding,
// llm, external_mcp, visibility.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Registry       RegistryConfig       `yaml:"registry"`
	SmartDiscovery SmartDiscoveryConfig `yaml:"smart_discovery"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	LLM            LLMConfig            `yaml:"llm"`
	ExternalMCP    ExternalMCPConfig    `yaml:"external_mcp"`
	Visibility     VisibilityConfig     `yaml:"visibility"`
	Session        SessionConfig        `yaml:"session"`
}

// SessionConfig selects and configures the SessionManager backend. "jwt"
// needs no external dependency, trading that for non-revocability; "redis"
// gives revocable, distributed sessions at the cost of a Redis dependency.
type SessionConfig struct {
	Backend    string        `yaml:"backend"` // "jwt" or "redis"
	TTL        time.Duration `yaml:"ttl"`
	JWTSignKey string        `yaml:"jwt_sign_key,omitempty"`
	RedisAddr  string        `yaml:"redis_addr,omitempty"`
}

type ServerConfig struct {
	Name         string `yaml:"name"`
	Version      string `yaml:"version"`
	ListenAddr   string `yaml:"listen_addr"`
	Instructions string `yaml:"instructions,omitempty"`
}

type RegistryConfig struct {
	CapabilityDirs  []string      `yaml:"capability_dirs"`
	HotReload       bool          `yaml:"hot_reload"`
	DebounceWindow  time.Duration `yaml:"debounce_window"`
	ConflictPolicy  string        `yaml:"conflict_policy"` // "first_wins", "last_wins", "reject"
}

// DiscoveryWeights holds the hybrid-mode layer weights. Defaults match the
// decided Open Question: semantic=0.30, rule=0.15, llm=0.55.
type DiscoveryWeights struct {
	Semantic float64 `yaml:"semantic"`
	Rule     float64 `yaml:"rule"`
	LLM      float64 `yaml:"llm"`
}

type SmartDiscoveryConfig struct {
	DefaultMode          string            `yaml:"default_mode"` // hybrid, rule_based, semantic, llm_based
	Weights              DiscoveryWeights  `yaml:"weights"`
	SemanticThreshold    float64           `yaml:"semantic_threshold"`
	ConfidenceThreshold  float64           `yaml:"confidence_threshold"`
	LlmRerankMax         int               `yaml:"llm_rerank_max"`
	DiscoveryCacheTTL    time.Duration     `yaml:"discovery_cache_ttl"`
	ParamCacheTTL        time.Duration     `yaml:"param_cache_ttl"`
	TotalTimeout         time.Duration     `yaml:"total_timeout"`
	PerLlmCallTimeout    time.Duration     `yaml:"per_llm_call_timeout"`
}

type EmbeddingConfig struct {
	StorePath        string        `yaml:"store_path"`
	Model            string        `yaml:"model"`
	Dimensions       int           `yaml:"dimensions"`
	GenerationTimeout time.Duration `yaml:"generation_timeout"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, claude, gemini
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
}

type ExternalMCPConfig struct {
	Servers              []ExternalServerConfig `yaml:"servers"`
	StartupTimeout       time.Duration          `yaml:"startup_timeout"`
	CorrelationTimeout   time.Duration          `yaml:"correlation_timeout"`
	MaxConsecutiveFails  int                    `yaml:"max_consecutive_failures"`
	InitialBackoff       time.Duration          `yaml:"initial_backoff"`
	MaxBackoff           time.Duration          `yaml:"max_backoff"`
	BackoffFactor        float64                `yaml:"backoff_factor"`
	BackoffJitter        float64                `yaml:"backoff_jitter"` // randomization factor, e.g. 0.2 for +/-20%
	PerServerConcurrency int                    `yaml:"per_server_concurrency"`
}

type ExternalServerConfig struct {
	ID        string            `yaml:"id"`
	Transport string            `yaml:"transport"` // stdio, http, websocket, streamable_http
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	Auth      ExternalAuthConfig `yaml:"auth,omitempty"`
}

// ExternalAuthConfig selects the AuthProvider an http-family transport
// attaches to its outbound client. Empty Type means no auth. "bearer" needs
// only Token; "oauth2_client_credentials" runs the client-credentials grant
// against TokenURL and refreshes on expiry.
type ExternalAuthConfig struct {
	Type         string   `yaml:"type,omitempty"` // "bearer" or "oauth2_client_credentials"
	Token        string   `yaml:"token,omitempty"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

type VisibilityConfig struct {
	DefaultVisibility string `yaml:"default_visibility"` // native, discoverable
}

// Default returns a Config populated with the defaults named across the
// specification, including the decided hybrid-weight and ordering defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:       "magictunnel",
			Version:    "0.1.0",
			ListenAddr: ":8080",
		},
		Registry: RegistryConfig{
			HotReload:      true,
			DebounceWindow: 200 * time.Millisecond,
			ConflictPolicy: "reject",
		},
		SmartDiscovery: SmartDiscoveryConfig{
			DefaultMode: "hybrid",
			Weights: DiscoveryWeights{
				Semantic: 0.30,
				Rule:     0.15,
				LLM:      0.55,
			},
			SemanticThreshold:   0.55,
			ConfidenceThreshold: 0.5,
			LlmRerankMax:        30,
			DiscoveryCacheTTL:   5 * time.Minute,
			ParamCacheTTL:       5 * time.Minute,
			TotalTimeout:        8 * time.Second,
			PerLlmCallTimeout:   4 * time.Second,
		},
		Embedding: EmbeddingConfig{
			StorePath:         "./data/embeddings.json",
			Dimensions:        1536,
			GenerationTimeout: 30 * time.Second,
		},
		ExternalMCP: ExternalMCPConfig{
			StartupTimeout:       15 * time.Second,
			CorrelationTimeout:   30 * time.Second,
			MaxConsecutiveFails:  5,
			InitialBackoff:       500 * time.Millisecond,
			MaxBackoff:           30 * time.Second,
			BackoffFactor:        2.0,
			BackoffJitter:        0.2,
			PerServerConcurrency: 8,
		},
		Visibility: VisibilityConfig{
			DefaultVisibility: "discoverable",
		},
		Session: SessionConfig{
			Backend: "jwt",
			TTL:     30 * time.Minute,
		},
	}
}

// Load reads a YAML config file and applies MAGICTUNNEL_<SECTION>_<KEY>
// environment variable overrides on top of it. This is intentionally a
// direct struct-tree loader, not a general-purpose config file watcher or
// format-agnostic reader — see the root specification's Non-goals.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides scans environment variables of the form
// MAGICTUNNEL_<SECTION>_<KEY> for the handful of keys operators commonly
// need to flip without editing the capability-file tree.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MAGICTUNNEL_SERVER_LISTEN_ADDR"); ok {
		cfg.Server.ListenAddr = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_SERVER_NAME"); ok {
		cfg.Server.Name = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_SMART_DISCOVERY_DEFAULT_MODE"); ok {
		cfg.SmartDiscovery.DefaultMode = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_SMART_DISCOVERY_CONFIDENCE_THRESHOLD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SmartDiscovery.ConfidenceThreshold = f
		}
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_LLM_API_KEY"); ok {
		cfg.LLM.APIKey = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_LLM_PROVIDER"); ok {
		cfg.LLM.Provider = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_EMBEDDING_STORE_PATH"); ok {
		cfg.Embedding.StorePath = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_REGISTRY_CAPABILITY_DIRS"); ok {
		cfg.Registry.CapabilityDirs = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_SESSION_BACKEND"); ok {
		cfg.Session.Backend = v
	}
	if v, ok := os.LookupEnv("MAGICTUNNEL_SESSION_REDIS_ADDR"); ok {
		cfg.Session.RedisAddr = v
	}
}
