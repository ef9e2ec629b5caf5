package magictunnel

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JWTSessionManager provides stateless session management using JWT tokens.
// This is the RECOMMENDED approach for production clusters as it:
// - Requires no external storage (Redis, Database)
// - Scales horizontally without coordination
// - Works across all server instances
// - Has zero infrastructure dependencies
//
// Trade-off: sessions cannot be revoked before expiry (see
// RedisSessionManager for a revocable store).
type JWTSessionManager struct {
	signingKey []byte
	ttl        time.Duration
}

type jwtClaims struct {
	Protocol  string             `json:"protocol"`
	ToolMode  ToolListMode       `json:"tool_mode,omitempty"`
	ClientCap ClientCapabilities `json:"client_capabilities,omitempty"`
	IssuedAt  int64              `json:"iat"`
	ExpiresAt int64              `json:"exp"`
}

// NewJWTSessionManager creates a new JWT-based session manager.
// signingKey should be a cryptographically secure random key (at least 32 bytes recommended).
// ttl is the session lifetime (e.g., 30 * time.Minute).
func NewJWTSessionManager(signingKey []byte, ttl time.Duration) *JWTSessionManager {
	return &JWTSessionManager{
		signingKey: signingKey,
		ttl:        ttl,
	}
}

// GenerateSigningKey creates a cryptographically secure random signing key.
func GenerateSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

// NewJWTSessionManagerWithAutoKey creates a JWT session manager with an auto-generated signing key.
// For production clusters with multiple instances, use NewJWTSessionManager with a
// persisted key so all instances can validate each other's sessions.
func NewJWTSessionManagerWithAutoKey(ttl time.Duration) (*JWTSessionManager, error) {
	key, err := GenerateSigningKey()
	if err != nil {
		return nil, err
	}
	return NewJWTSessionManager(key, ttl), nil
}

// CreateSession generates a new JWT session token.
func (m *JWTSessionManager) CreateSession(ctx context.Context, protocolVersion string, toolMode ToolListMode, clientCaps ClientCapabilities) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Protocol:  protocolVersion,
		ToolMode:  toolMode,
		ClientCap: clientCaps,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}

	header := map[string]string{
		"alg": "HS256",
		"typ": "JWT",
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	headerEncoded := base64.RawURLEncoding.EncodeToString(headerJSON)
	claimsEncoded := base64.RawURLEncoding.EncodeToString(claimsJSON)

	message := headerEncoded + "." + claimsEncoded
	signature := m.sign(message)

	return message + "." + signature, nil
}

func (m *JWTSessionManager) parseClaims(sessionID string) (*jwtClaims, error) {
	parts := strings.Split(sessionID, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid token format")
	}

	message := parts[0] + "." + parts[1]
	if m.sign(message) != parts[2] {
		return nil, fmt.Errorf("invalid signature")
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	var claims jwtClaims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claims: %w", err)
	}
	return &claims, nil
}

// ValidateSession validates a JWT session token.
func (m *JWTSessionManager) ValidateSession(ctx context.Context, sessionID string) (bool, error) {
	claims, err := m.parseClaims(sessionID)
	if err != nil {
		return false, nil
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return false, nil
	}
	return true, nil
}

// GetProtocolVersion extracts the protocol version from a JWT session token.
func (m *JWTSessionManager) GetProtocolVersion(ctx context.Context, sessionID string) (string, error) {
	claims, err := m.parseClaims(sessionID)
	if err != nil {
		return "", err
	}
	return claims.Protocol, nil
}

// GetToolMode extracts the tool mode from a JWT session token.
func (m *JWTSessionManager) GetToolMode(ctx context.Context, sessionID string) (ToolListMode, error) {
	claims, err := m.parseClaims(sessionID)
	if err != nil {
		return ToolListModeDefault, err
	}
	return claims.ToolMode, nil
}

// GetClientCapabilities extracts the client capabilities from a JWT session token.
func (m *JWTSessionManager) GetClientCapabilities(ctx context.Context, sessionID string) (ClientCapabilities, error) {
	claims, err := m.parseClaims(sessionID)
	if err != nil {
		return ClientCapabilities{}, err
	}
	return claims.ClientCap, nil
}

// DeleteSession is a no-op for JWT sessions (cannot revoke before expiry).
func (m *JWTSessionManager) DeleteSession(ctx context.Context, sessionID string) error {
	return nil
}

// CleanupExpiredSessions is a no-op for JWT sessions (tokens expire automatically).
func (m *JWTSessionManager) CleanupExpiredSessions(ctx context.Context, maxIdleTime time.Duration) error {
	return nil
}

// sign creates an HMAC-SHA256 signature over message.
func (m *JWTSessionManager) sign(message string) string {
	h := hmac.New(sha256.New, m.signingKey)
	h.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

var _ SessionManager = (*JWTSessionManager)(nil)
