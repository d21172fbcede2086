package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const Channel = "integration-events"

const IntegrationRemoved = "integration.removed"

type Event struct {
	Name         string `json:"event"`
	UserID       string `json:"userId"`
	CredentialID string `json:"credentialId"`
	Type         string `json:"type,omitempty"`
	AppID        string `json:"appId,omitempty"`
	Action       string `json:"action,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Redis publishes events on a pub/sub channel.
type Redis struct {
	rdb     *redis.Client
	channel string
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, channel: Channel}
}

// Dial parses a redis:// URL and checks the server is reachable.
func Dial(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.rdb.Publish(ctx, r.channel, data).Err()
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
