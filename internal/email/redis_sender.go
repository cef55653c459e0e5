package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSender records emails in Redis instead of sending them, so
// integration tests can read them back with Outbox.
type RedisSender struct {
	client *redis.Client
	from   string
	ttl    time.Duration
}

// NewRedisSender creates a RedisSender.
func NewRedisSender(client *redis.Client, from string) *RedisSender {
	return &RedisSender{client: client, from: from, ttl: 5 * time.Minute}
}

// OutboxKey is the Redis list holding mock emails sent to address.
func OutboxKey(address string) string {
	return "mockemail:" + strings.ToLower(address)
}

// StoredEmail is the Redis representation of a sent email.
type StoredEmail struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	SentAt  string `json:"sent_at"`
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("redis sender: no recipients")
	}

	jsonData, err := json.Marshal(StoredEmail{
		To:      strings.Join(to, ", "),
		From:    s.from,
		Subject: subject,
		Body:    string(rawMessage),
		SentAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	// Keyed by the first recipient
	key := OutboxKey(to[0])
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, jsonData)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, Subject: %s)", key, s.ttl, subject)
	return nil
}

// Outbox returns the mock emails stored for address, newest first.
func (s *RedisSender) Outbox(ctx context.Context, address string) ([]StoredEmail, error) {
	raw, err := s.client.LRange(ctx, OutboxKey(address), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mock emails for %s: %w", address, err)
	}
	out := make([]StoredEmail, 0, len(raw))
	for _, item := range raw {
		var e StoredEmail
		if err := json.Unmarshal([]byte(item), &e); err == nil {
			out = append(out, e)
		}
	}
	return out, nil
}
