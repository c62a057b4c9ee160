// Package redis keeps the session record in Redis so several processes on one
// host can share a login.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"trustid/pkg/platform/sentinel"
)

const defaultPrefix = "trustid"

// Store holds the record under "<prefix>:kyc_user" with no expiry.
type Store struct {
	client *redis.Client
	key    string
}

type Option func(*Store)

// WithPrefix namespaces the key. An empty prefix keeps the default.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.key = prefix + ":" + recordKey
		}
	}
}

const recordKey = "kyc_user"

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    defaultPrefix + ":" + recordKey,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Key is the Redis key the record lives under.
func (s *Store) Key() string {
	return s.key
}

func (s *Store) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return data, nil
}

func (s *Store) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set session record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del session record: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
