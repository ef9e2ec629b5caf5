package magictunnel

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionManager provides distributed session storage using Redis.
//
// Unlike JWTSessionManager this session store is revocable: DeleteSession
// removes the record at once, so the session stops validating on every
// replica. The record holds the protocol version, tool mode, client
// capabilities and timestamps; it carries no cancellation state, which the
// server keeps in memory per process. Use this when running magictunneld
// behind a load balancer across multiple replicas and session revocation
// matters.
type RedisSessionManager struct {
	client     *redis.Client
	sessionTTL time.Duration
}

// NewRedisSessionManager creates a new Redis-based session manager.
func NewRedisSessionManager(client *redis.Client, sessionTTL time.Duration) *RedisSessionManager {
	return &RedisSessionManager{
		client:     client,
		sessionTTL: sessionTTL,
	}
}

type redisSessionRecord struct {
	Protocol  string             `json:"protocol"`
	ToolMode  ToolListMode       `json:"tool_mode,omitempty"`
	ClientCap ClientCapabilities `json:"client_capabilities,omitempty"`
	CreatedAt int64              `json:"created_at"`
	LastUsed  int64              `json:"last_used"`
}

func (m *RedisSessionManager) key(sessionID string) string {
	return fmt.Sprintf("magictunnel:session:%s", sessionID)
}

func (m *RedisSessionManager) generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// CreateSession creates a new session record in Redis with a TTL-bound key.
func (m *RedisSessionManager) CreateSession(ctx context.Context, protocolVersion string, toolMode ToolListMode, clientCaps ClientCapabilities) (string, error) {
	sessionID, err := m.generateSessionID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	now := time.Now().Unix()
	record := redisSessionRecord{
		Protocol:  protocolVersion,
		ToolMode:  toolMode,
		ClientCap: clientCaps,
		CreatedAt: now,
		LastUsed:  now,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session record: %w", err)
	}

	if err := m.client.Set(ctx, m.key(sessionID), data, m.sessionTTL).Err(); err != nil {
		return "", fmt.Errorf("failed to create session in redis: %w", err)
	}
	return sessionID, nil
}

func (m *RedisSessionManager) load(ctx context.Context, sessionID string) (*redisSessionRecord, error) {
	data, err := m.client.Get(ctx, m.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	var record redisSessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session record: %w", err)
	}
	return &record, nil
}

// ValidateSession checks if a session exists and refreshes its TTL on use.
func (m *RedisSessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	record, err := m.load(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	record.LastUsed = time.Now().Unix()
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session record: %w", err)
	}
	if err := m.client.Set(ctx, m.key(sessionID), data, m.sessionTTL).Err(); err != nil {
		return false, fmt.Errorf("failed to refresh session: %w", err)
	}
	return true, nil
}

// GetProtocolVersion returns the negotiated protocol version for a session.
func (m *RedisSessionManager) GetProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	record, err := m.load(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", fmt.Errorf("session not found")
	}
	return record.Protocol, nil
}

// GetToolMode returns the tool mode for a session.
func (m *RedisSessionManager) GetToolMode(ctx context.Context, sessionID string) (ToolListMode, error) {
	record, err := m.load(ctx, sessionID)
	if err != nil {
		return ToolListModeDefault, err
	}
	if record == nil {
		return ToolListModeDefault, fmt.Errorf("session not found")
	}
	return record.ToolMode, nil
}

// GetClientCapabilities returns the capabilities the client declared at initialize time.
func (m *RedisSessionManager) GetClientCapabilities(ctx context.Context, sessionID string) (ClientCapabilities, error) {
	record, err := m.load(ctx, sessionID)
	if err != nil {
		return ClientCapabilities{}, err
	}
	if record == nil {
		return ClientCapabilities{}, fmt.Errorf("session not found")
	}
	return record.ClientCap, nil
}

// DeleteSession removes a session immediately, revoking it.
func (m *RedisSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.client.Del(ctx, m.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions is a no-op: Redis expires keys via TTL automatically.
func (m *RedisSessionManager) CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error {
	return nil
}

var _ SessionManager = (*RedisSessionManager)(nil)
