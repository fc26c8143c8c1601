package rediskv

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Store: key-value поверх Redis. Ключи префиксуются, чтобы несколько установок жили в одной базе.
type Store struct {
	c      *redis.Client
	prefix string
}

func New(addr, prefix string) *Store {
	return &Store{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		prefix: prefix,
	}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.c.Get(ctx, s.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "redis get")
	}
	return val, true, nil
}

// Set пишет значение; ttl = 0 значит без срока жизни.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.c.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// SetNX пишет значение, только если ключа ещё нет. Возвращает true, если записали мы.
func (s *Store) SetNX(ctx context.Context, key string, value []byte) (bool, error) {
	ok, err := s.c.SetNX(ctx, s.prefix+key, value, 0).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx")
	}
	return ok, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return errors.Wrap(s.c.Ping(ctx).Err(), "redis ping")
}

func (s *Store) Close() error {
	return s.c.Close()
}
