// Package identity keeps the per-installation state: a generated user id and
// the "push token already sent" flag. Both are set once and read many times.
package identity

import (
	"context"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	keyUserID          = "user_id"
	keyTokenRegistered = "token_registered"
)

type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
}

type Store struct {
	kv    KV
	newID func() string
}

func New(kv KV) *Store {
	return &Store{kv: kv, newID: uuid.NewString}
}

// UserID возвращает сохранённый идентификатор. ok=false, если установка ещё без идентичности.
func (s *Store) UserID(ctx context.Context) (string, bool, error) {
	b, ok, err := s.kv.Get(ctx, keyUserID)
	if err != nil {
		return "", false, errors.Wrap(err, "get user id")
	}
	if !ok || len(b) == 0 {
		return "", false, nil
	}
	return string(b), true, nil
}

// EnsureUserID возвращает идентификатор, создавая его при первом вызове.
// SETNX гарантирует одну идентичность на установку даже при гонке двух вызовов.
func (s *Store) EnsureUserID(ctx context.Context) (string, error) {
	if id, ok, err := s.UserID(ctx); err != nil || ok {
		return id, err
	}

	if _, err := s.kv.SetNX(ctx, keyUserID, []byte(s.newID())); err != nil {
		return "", errors.Wrap(err, "create user id")
	}
	// Перечитываем: если нас опередили, вернём чужое (первое) значение.
	id, ok, err := s.UserID(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.Wrap(models.ErrPreconditionMissing, "user id vanished after create")
	}
	return id, nil
}

func (s *Store) PushTokenSent(ctx context.Context) (bool, error) {
	b, ok, err := s.kv.Get(ctx, keyTokenRegistered)
	if err != nil {
		return false, errors.Wrap(err, "get token flag")
	}
	return ok && string(b) == "true", nil
}

func (s *Store) MarkPushTokenSent(ctx context.Context) error {
	return errors.Wrap(s.kv.Set(ctx, keyTokenRegistered, []byte("true"), 0), "set token flag")
}
