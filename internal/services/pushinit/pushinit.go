// Package pushinit sends the device push token to the backend once per installation.
package pushinit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

type Identity interface {
	EnsureUserID(ctx context.Context) (string, error)
	PushTokenSent(ctx context.Context) (bool, error)
	MarkPushTokenSent(ctx context.Context) error
}

type Backend interface {
	RegisterToken(ctx context.Context, userID, token string) error
}

type Initializer struct {
	identity Identity
	backend  Backend
}

func New(id Identity, b Backend) *Initializer {
	return &Initializer{identity: id, backend: b}
}

// EnsureTokenRegistered отправляет токен, если он ещё не отправлялся с этой установки.
// sent=true только когда бэкенд подтвердил регистрацию именно в этом вызове.
// Пустой токен (нет разрешения, симулятор) не ошибка, просто пропускаем.
func (i *Initializer) EnsureTokenRegistered(ctx context.Context, token string) (bool, error) {
	done, err := i.identity.PushTokenSent(ctx)
	if err != nil {
		return false, errors.Wrap(err, "read push token flag")
	}
	if done {
		return false, nil
	}

	token = strings.TrimSpace(token)
	if token == "" {
		slog.Info("push token unavailable, skipping registration")
		return false, nil
	}

	userID, err := i.identity.EnsureUserID(ctx)
	if err != nil {
		return false, errors.Wrap(err, "ensure user id")
	}

	if err := i.backend.RegisterToken(ctx, userID, token); err != nil {
		slog.Error("push token registration failed", "user_id", userID, "error", err.Error())
		return false, errors.Wrap(err, "register push token")
	}

	// Флаг ставим только после ack, иначе следующий запуск повторит попытку.
	if err := i.identity.MarkPushTokenSent(ctx); err != nil {
		return true, errors.Wrap(err, "mark push token sent")
	}
	slog.Info("push token registered", "user_id", userID)
	return true, nil
}
