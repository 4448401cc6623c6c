package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"karaoke/internal/config"
)

// redisPublisher is the subset of *redis.Client used by the sink.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

type redisService struct {
	client  redisPublisher
	channel string
	timeout time.Duration
	now     func() time.Time
}

// Message is the JSON document published to the Redis channel.
type Message struct {
	Event     Event          `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func newRedisService(cfg *config.Config) *redisService {
	addr := strings.TrimSpace(cfg.Notifications.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Notifications.RedisPassword,
		DB:       cfg.Notifications.RedisDB,
	})
	return newRedisServiceWithClient(client, cfg.Notifications.RedisChannel, time.Duration(cfg.Notifications.RequestTimeout)*time.Second)
}

func newRedisServiceWithClient(client redisPublisher, channel string, timeout time.Duration) *redisService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &redisService{client: client, channel: channel, timeout: timeout, now: time.Now}
}

func (r *redisService) Publish(ctx context.Context, event Event, p Payload) error {
	msg := Message{Event: event, Timestamp: r.now().UTC(), Payload: normalizePayload(p)}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode redis event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to redis channel %s: %w", r.channel, err)
	}
	return nil
}

func (r *redisService) Close() error {
	return r.client.Close()
}

// normalizePayload makes payload values JSON friendly.
func normalizePayload(p Payload) map[string]any {
	if len(p) == 0 {
		return nil
	}
	out := make(map[string]any, len(p))
	for key, value := range p {
		switch v := value.(type) {
		case error:
			out[key] = v.Error()
		case time.Duration:
			out[key] = v.Seconds()
		default:
			out[key] = v
		}
	}
	return out
}
