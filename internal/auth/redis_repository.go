package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRepository stores refresh tokens in Redis. Expiration is delegated to
// key TTLs, so there is nothing to clean up.
type RedisRepository struct {
	client *redis.Client
}

var _ RefreshTokenRepository = (*RedisRepository)(nil)

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// getTokenKey generates the Redis key for a refresh token
func getTokenKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:%s", tokenHash)
}

// getRevokedKey generates the Redis key for a revoked token marker
func getRevokedKey(tokenHash string) string {
	return fmt.Sprintf("refresh_token:revoked:%s", tokenHash)
}

// getUserTokensKey generates the Redis key for user's token set
func getUserTokensKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_tokens:%s", userID.String())
}

// StoreRefreshToken stores a refresh token in Redis with TTL
func (r *RedisRepository) StoreRefreshToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error {
	tokenHash := hashToken(token)
	tokenKey := getTokenKey(tokenHash)
	userTokensKey := getUserTokensKey(userID)

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token expiration time is in the past")
	}

	pipe := r.client.Pipeline()

	// Store token with user_id and expiration as a hash
	pipe.HSet(ctx, tokenKey, map[string]interface{}{
		"user_id":    userID.String(),
		"expires_at": expiresAt.Unix(),
		"created_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, tokenKey, ttl)

	// Track the token in the user's set so RevokeAllUserTokens can find it
	pipe.SAdd(ctx, userTokensKey, tokenHash)
	pipe.Expire(ctx, userTokensKey, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves a refresh token by its hash
func (r *RedisRepository) GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	tokenHash := hashToken(token)
	tokenKey := getTokenKey(tokenHash)
	revokedKey := getRevokedKey(tokenHash)

	revoked, err := r.client.Exists(ctx, revokedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked > 0 {
		return nil, ErrRefreshTokenRevoked
	}

	data, err := r.client.HGetAll(ctx, tokenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrRefreshTokenNotFound
	}

	userID, err := uuid.Parse(data["user_id"])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var expiresAtUnix int64
	fmt.Sscanf(data["expires_at"], "%d", &expiresAtUnix)
	expiresAt := time.Unix(expiresAtUnix, 0)

	// TTL should have removed the key already, but trust the stored stamp
	if time.Now().After(expiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	var createdAtUnix int64
	fmt.Sscanf(data["created_at"], "%d", &createdAtUnix)
	createdAt := time.Unix(createdAtUnix, 0)

	return &RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		RevokedAt: nil, // Not revoked if we got here
	}, nil
}

// RevokeRefreshToken marks a refresh token as revoked
func (r *RedisRepository) RevokeRefreshToken(ctx context.Context, token string) error {
	tokenHash := hashToken(token)
	tokenKey := getTokenKey(tokenHash)
	revokedKey := getRevokedKey(tokenHash)

	exists, err := r.client.Exists(ctx, tokenKey).Result()
	if err != nil {
		return fmt.Errorf("failed to check token existence: %w", err)
	}
	if exists == 0 {
		return ErrRefreshTokenNotFound
	}

	// Let the revocation marker live exactly as long as the token would have
	ttl, err := r.client.TTL(ctx, tokenKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get token TTL: %w", err)
	}

	if ttl > 0 {
		err = r.client.Set(ctx, revokedKey, "1", ttl).Err()
	} else {
		err = r.client.Set(ctx, revokedKey, "1", 7*24*time.Hour).Err()
	}

	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeAllUserTokens revokes every live refresh token a user holds. Used
// when an account is deactivated or its password changes.
func (r *RedisRepository) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	userTokensKey := getUserTokensKey(userID)

	tokenHashes, err := r.client.SMembers(ctx, userTokensKey).Result()
	if err != nil {
		return fmt.Errorf("failed to get user tokens: %w", err)
	}

	if len(tokenHashes) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, tokenHash := range tokenHashes {
		tokenKey := getTokenKey(tokenHash)
		revokedKey := getRevokedKey(tokenHash)

		ttl, _ := r.client.TTL(ctx, tokenKey).Result()
		if ttl > 0 {
			pipe.Set(ctx, revokedKey, "1", ttl)
		} else {
			pipe.Set(ctx, revokedKey, "1", 7*24*time.Hour)
		}
	}

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to revoke all user tokens: %w", err)
	}

	return nil
}
