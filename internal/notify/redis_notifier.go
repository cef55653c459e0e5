package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// RedisNotifier keeps a short per-user inbox of recent events in a Redis
// list, newest first. The UI polls it; integration tests read it through
// the service API.
type RedisNotifier struct {
	client    *redis.Client
	inboxSize int64
	ttl       time.Duration
}

// NewRedisNotifier creates a RedisNotifier.
func NewRedisNotifier(client *redis.Client, inboxSize int, ttl time.Duration) *RedisNotifier {
	if inboxSize <= 0 {
		inboxSize = 50
	}
	return &RedisNotifier{client: client, inboxSize: int64(inboxSize), ttl: ttl}
}

// InboxKey is the Redis key holding userID's notifications.
func InboxKey(userID utils.SixID) string {
	return "notifications:" + userID.String()
}

func (n *RedisNotifier) Notify(ctx context.Context, userID utils.SixID, kind models.EventKind, matchID utils.SixID) error {
	payload, err := json.Marshal(NewNotification(userID, kind, matchID))
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := InboxKey(userID)
	_, err = n.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, payload)
		pipe.LTrim(ctx, key, 0, n.inboxSize-1)
		if n.ttl > 0 {
			pipe.Expire(ctx, key, n.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store notification in Redis key '%s': %w", key, err)
	}
	return nil
}

// Inbox returns userID's stored notifications, newest first.
func (n *RedisNotifier) Inbox(ctx context.Context, userID utils.SixID) ([]models.Notification, error) {
	raw, err := n.client.LRange(ctx, InboxKey(userID), 0, n.inboxSize-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read notification inbox for %s: %w", userID, err)
	}
	out := make([]models.Notification, 0, len(raw))
	for _, item := range raw {
		var ev models.Notification
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
