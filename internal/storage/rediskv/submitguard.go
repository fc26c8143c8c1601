package rediskv

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// releaseScript удаляет ключ, только если в нём всё ещё наш токен.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitGuard не даёт отправить один и тот же номер повторно, пока первая попытка не закончилась.
// Это дисциплина слоя UI (кнопка "Track" заблокирована), ядро workflow её не требует.
type SubmitGuard struct {
	c      *redis.Client
	window time.Duration
}

func NewSubmitGuard(addr string, window time.Duration) *SubmitGuard {
	if window <= 0 {
		window = time.Minute
	}
	return &SubmitGuard{
		c:      redis.NewClient(&redis.Options{Addr: addr}),
		window: window,
	}
}

// Acquire занимает ключ на window (SET NX PX) и возвращает токен владельца.
// Повторные вызовы окно не продлевают. TTL снимает гард с зависшей попытки.
func (g *SubmitGuard) Acquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := g.c.SetNX(ctx, guardKey(key), token, g.window).Result()
	if err != nil {
		return "", false, errors.Wrap(err, "redis submit guard")
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release снимает гард, только если он всё ещё принадлежит token.
// Если окно истекло и номер занял кто-то другой, его гард остаётся.
func (g *SubmitGuard) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, g.c, []string{guardKey(key)}, token).Err(); err != nil {
		return errors.Wrap(err, "redis submit guard release")
	}
	return nil
}

func (g *SubmitGuard) Close() error {
	return g.c.Close()
}

func guardKey(key string) string {
	return "submit:" + key
}
