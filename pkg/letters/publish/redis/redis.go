// Package redis publishes submitted-letter events on a Redis channel for the
// downstream analysis consumer.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tendant/simple-letters/pkg/letters"
)

const (
	defaultChannel = "letters.submitted"
	defaultTimeout = 5 * time.Second
)

// Config options for the Redis publisher
type Config struct {
	Addr     string        // Redis address, host:port
	Password string        // Optional password
	DB       int           // Redis database number
	Channel  string        // Channel to publish on (default: letters.submitted)
	Timeout  time.Duration // Per-publish timeout (default: 5s)
}

// Publisher is a Redis implementation of the letters.EventPublisher interface
type Publisher struct {
	rdb     *goredis.Client
	channel string
	timeout time.Duration
}

// New creates a new Redis publisher and verifies connectivity
func New(config Config) (*Publisher, error) {
	if config.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if config.Channel == "" {
		config.Channel = defaultChannel
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        config.Addr,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Publisher{
		rdb:     rdb,
		channel: config.Channel,
		timeout: config.Timeout,
	}, nil
}

// PublishLetterSubmitted implements letters.EventPublisher. The call is
// bounded by the configured timeout; delivery is fire-and-forget.
func (p *Publisher) PublishLetterSubmitted(ctx context.Context, event letters.LetterSubmittedEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
