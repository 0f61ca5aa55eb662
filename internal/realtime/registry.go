package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Registry tracks which users currently hold a live connection and delivers
// notification payloads to them over Redis pub/sub. It replaces any
// in-process connection map: presence survives instance restarts and is
// shared across replicas.
type Registry struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRegistry builds a registry on an existing Redis client.
func NewRegistry(client *redis.Client, logger *zap.Logger, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Registry{client: client, logger: logger, ttl: ttl}
}

func presenceKey(userID string) string {
	return "presence:user:" + userID
}

func notifyChannel(userID string) string {
	return "notify:user:" + userID
}

// Register records a live connection for the user.
func (r *Registry) Register(ctx context.Context, userID, connID string) error {
	if r == nil || r.client == nil {
		return nil
	}
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, presenceKey(userID), connID)
	pipe.Expire(ctx, presenceKey(userID), r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Deregister drops a connection; the presence key disappears with the last
// connection.
func (r *Registry) Deregister(ctx context.Context, userID, connID string) error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.SRem(ctx, presenceKey(userID), connID).Err()
}

// IsOnline reports whether the user holds at least one live connection.
func (r *Registry) IsOnline(ctx context.Context, userID string) (bool, error) {
	if r == nil || r.client == nil {
		return false, nil
	}
	count, err := r.client.SCard(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Publish sends a payload to the user's notification channel. Delivery is
// fire-and-forget: an unreachable broker is logged, never surfaced.
func (r *Registry) Publish(ctx context.Context, userID string, payload any) {
	if r == nil || r.client == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("marshal notification", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, notifyChannel(userID), body).Err(); err != nil {
		r.logger.Warn("publish notification",
			zap.String("user_id", userID),
			zap.Error(fmt.Errorf("redis publish: %w", err)))
	}
}
