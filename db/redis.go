// api/db/redis.go
package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	logger "github.com/casaflow/api/logging"
	"github.com/casaflow/api/model"
)

var RedisClient *redis.Client

// authzInvalidationChannel fans cache invalidations out to every running
// instance so a permission revoked on one node is dropped everywhere.
const authzInvalidationChannel = "authz:invalidate"

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         viper.GetString("redis.addr"),
		Password:     viper.GetString("redis.password"),
		DB:           viper.GetInt("redis.db"),
		DialTimeout:  viper.GetDuration("redis.dialTimeout"),
		ReadTimeout:  viper.GetDuration("redis.readTimeout"),
		WriteTimeout: viper.GetDuration("redis.writeTimeout"),
		PoolSize:     viper.GetInt("redis.poolSize"),
		PoolTimeout:  viper.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

// PublishAuthzInvalidation tells every instance to drop cached authorization
// decisions for the affected users.
func PublishAuthzInvalidation(ctx context.Context, event model.AuthzEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal authz invalidation: %w", err)
	}
	if err := RedisClient.Publish(ctx, authzInvalidationChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish authz invalidation: %w", err)
	}
	return nil
}

// SubscribeAuthzInvalidations delivers invalidation events until ctx is done.
func SubscribeAuthzInvalidations(ctx context.Context, handler func(model.AuthzEvent)) {
	sub := RedisClient.Subscribe(ctx, authzInvalidationChannel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event model.AuthzEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warn("Dropping malformed authz invalidation", zap.Error(err))
					continue
				}
				handler(event)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Presence tracking. Best-effort only: the sets are advisory for UI
// affordances and are never consulted for authorization.

func presenceKey(workspaceID string) string {
	return fmt.Sprintf("presence:%s", workspaceID)
}

// AddPresence records a live connection and reports whether this was the
// user's first connection in the workspace.
func AddPresence(ctx context.Context, workspaceID, userID string) (bool, error) {
	added, err := RedisClient.SAdd(ctx, presenceKey(workspaceID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record presence: %w", err)
	}
	return added == 1, nil
}

// RemovePresence clears a user's presence and reports whether they were
// present before removal.
func RemovePresence(ctx context.Context, workspaceID, userID string) (bool, error) {
	removed, err := RedisClient.SRem(ctx, presenceKey(workspaceID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to clear presence: %w", err)
	}
	return removed == 1, nil
}

// OnlineUsers lists the users currently marked online in a workspace.
func OnlineUsers(ctx context.Context, workspaceID string) ([]string, error) {
	users, err := RedisClient.SMembers(ctx, presenceKey(workspaceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	return users, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}
