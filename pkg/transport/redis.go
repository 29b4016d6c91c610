package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueue is the Redis list used when none is configured.
const DefaultQueue = "allure:runtime"

const defaultPollInterval = time.Second

// ConnectRedis parses url, connects and pings the server.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// RedisSink appends envelopes to a Redis list.
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink creates a RedisSink pushing onto the list key.
func NewRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = DefaultQueue
	}
	return &RedisSink{client: client, key: key}
}

// Send implements Sink.
func (s *RedisSink) Send(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to push envelope to %s: %w", s.key, err)
	}
	return nil
}

// Close implements Sink. It closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

// RedisSource pops envelopes from a Redis list.
type RedisSource struct {
	client *redis.Client
	key    string
	poll   time.Duration
	idle   time.Duration
}

// RedisSourceOption configures a RedisSource.
type RedisSourceOption func(*RedisSource)

// WithIdleTimeout ends the source with io.EOF once the list stayed empty for
// d. Zero keeps waiting until the context is done.
func WithIdleTimeout(d time.Duration) RedisSourceOption {
	return func(s *RedisSource) {
		s.idle = d
	}
}

// WithPollInterval sets the blocking pop timeout.
func WithPollInterval(d time.Duration) RedisSourceOption {
	return func(s *RedisSource) {
		if d > 0 {
			s.poll = d
		}
	}
}

// NewRedisSource creates a RedisSource reading the list key.
func NewRedisSource(client *redis.Client, key string, opts ...RedisSourceOption) *RedisSource {
	if key == "" {
		key = DefaultQueue
	}
	s := &RedisSource{client: client, key: key, poll: defaultPollInterval}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Receive implements Source.
func (s *RedisSource) Receive(ctx context.Context) (Envelope, error) {
	idleSince := time.Now()
	for {
		values, err := s.client.BLPop(ctx, s.poll, s.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if s.idle > 0 && time.Since(idleSince) >= s.idle {
				return Envelope{}, io.EOF
			}
			continue
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Envelope{}, ctxErr
			}
			return Envelope{}, fmt.Errorf("failed to pop envelope from %s: %w", s.key, err)
		}

		// BLPOP replies with the key followed by the value.
		if len(values) != 2 {
			return Envelope{}, fmt.Errorf("unexpected reply of %d values: %w", len(values), ErrMalformedEnvelope)
		}

		var env Envelope
		if err := json.Unmarshal([]byte(values[1]), &env); err != nil {
			return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
		}
		return env, nil
	}
}
