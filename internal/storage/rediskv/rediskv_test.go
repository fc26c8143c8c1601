package rediskv

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(mr.Addr(), "install:")
	defer s.Close()

	ctx := context.Background()
	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))

	b, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), b)

	// ключ лежит с префиксом
	got, err := mr.Get("install:k")
	require.NoError(t, err)
	require.Equal(t, "v", got)
	require.NoError(t, s.Ping(ctx))
}

func TestStore_SetNX(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(mr.Addr(), "")
	ctx := context.Background()

	ok, err := s.SetNX(ctx, "user_id", []byte("first"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, "user_id", []byte("second"))
	require.NoError(t, err)
	require.False(t, ok)

	b, _, _ := s.Get(ctx, "user_id")
	require.Equal(t, []byte("first"), b)
}

func TestStore_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(mr.Addr(), "")
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	require.Error(t, err)
}

func TestSubmitGuard_AcquireRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	g := NewSubmitGuard(mr.Addr(), time.Minute)
	defer g.Close()

	ctx := context.Background()
	tok, ok, err := g.Acquire(ctx, "A1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, tok)

	_, ok, err = g.Acquire(ctx, "A1")
	require.NoError(t, err)
	require.False(t, ok)

	// другой номер не блокируется
	_, ok, _ = g.Acquire(ctx, "B2")
	require.True(t, ok)

	require.NoError(t, g.Release(ctx, "A1", tok))
	_, ok, _ = g.Acquire(ctx, "A1")
	require.True(t, ok)
}

func TestSubmitGuard_WindowExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	g := NewSubmitGuard(mr.Addr(), 30*time.Second)
	ctx := context.Background()

	_, ok, _ := g.Acquire(ctx, "A1")
	require.True(t, ok)

	mr.FastForward(31 * time.Second)
	_, ok, _ = g.Acquire(ctx, "A1")
	require.True(t, ok)
}

func TestSubmitGuard_RejectedAcquireKeepsWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	g := NewSubmitGuard(mr.Addr(), 30*time.Second)
	ctx := context.Background()

	_, ok, _ := g.Acquire(ctx, "A1")
	require.True(t, ok)

	mr.FastForward(20 * time.Second)
	_, ok, _ = g.Acquire(ctx, "A1")
	require.False(t, ok)
	require.Equal(t, 10*time.Second, mr.TTL("submit:A1"))

	mr.FastForward(11 * time.Second)
	_, ok, _ = g.Acquire(ctx, "A1")
	require.True(t, ok)
}

func TestSubmitGuard_StaleReleaseKeepsNewOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	g := NewSubmitGuard(mr.Addr(), 30*time.Second)
	ctx := context.Background()

	stale, ok, _ := g.Acquire(ctx, "A1")
	require.True(t, ok)

	// первая попытка пережила окно, номер занял следующий
	mr.FastForward(31 * time.Second)
	fresh, ok, _ := g.Acquire(ctx, "A1")
	require.True(t, ok)
	require.NotEqual(t, stale, fresh)

	require.NoError(t, g.Release(ctx, "A1", stale))
	_, ok, _ = g.Acquire(ctx, "A1")
	require.False(t, ok)

	require.NoError(t, g.Release(ctx, "A1", fresh))
	_, ok, _ = g.Acquire(ctx, "A1")
	require.True(t, ok)
}
