package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenData is the Redis-side session record for one service caller
// (scheduler workers, the analytics pipeline, ops tooling).
type TokenData struct {
	CallerID  string    `json:"caller_id"`
	Role      string    `json:"role"`
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
}

type TokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{
		client: client,
	}
}

func (r *TokenRepository) StoreToken(ctx context.Context, callerID, token string, data TokenData, ttl time.Duration) error {
	key := fmt.Sprintf("token:caller:%s", callerID)

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	err = r.client.Set(ctx, key, jsonData, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}

	// reverse lookup token -> caller_id for quick validation
	tokenKey := fmt.Sprintf("token:lookup:%s", token)
	err = r.client.Set(ctx, tokenKey, callerID, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to store token lookup: %w", err)
	}

	return nil
}

// Issue stores the session record for a freshly minted token.
func (r *TokenRepository) Issue(ctx context.Context, callerID, role, token, ip string, ttl time.Duration) error {
	now := time.Now()
	return r.StoreToken(ctx, callerID, token, TokenData{
		CallerID:  callerID,
		Role:      role,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		IPAddress: ip,
	}, ttl)
}

// GetTokenData retrieves token data by caller ID
func (r *TokenRepository) GetTokenData(ctx context.Context, callerID string) (*TokenData, error) {
	key := fmt.Sprintf("token:caller:%s", callerID)

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.New("token not found")
		}
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tokenData TokenData
	err = json.Unmarshal([]byte(val), &tokenData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return &tokenData, nil
}

// ValidateToken checks if a token exists and is valid
func (r *TokenRepository) ValidateToken(ctx context.Context, token string) (string, error) {
	tokenKey := fmt.Sprintf("token:lookup:%s", token)

	callerID, err := r.client.Get(ctx, tokenKey).Result()
	if err != nil {
		if err == redis.Nil {
			return "", errors.New("token not found or expired")
		}
		return "", fmt.Errorf("failed to validate token: %w", err)
	}

	return callerID, nil
}

// RevokeToken drops both the session record and the reverse lookup.
func (r *TokenRepository) RevokeToken(ctx context.Context, callerID, token string) error {
	key := fmt.Sprintf("token:caller:%s", callerID)
	tokenKey := fmt.Sprintf("token:lookup:%s", token)

	if err := r.client.Del(ctx, key, tokenKey).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	return nil
}
