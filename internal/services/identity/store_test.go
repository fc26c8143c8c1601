package identity

import (
	"context"
	"testing"

	"github.com/BearBump/ParcelBox/internal/storage/rediskv"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	kv := rediskv.New(mr.Addr(), "parcelbox:")
	t.Cleanup(func() { _ = kv.Close() })
	return New(kv), mr
}

func TestStore_EnsureUserID_CreatedOnceAndStable(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()

	_, ok, err := s.UserID(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	id1, err := s.EnsureUserID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	id2, err := s.EnsureUserID(ctx)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	stored, err := mr.Get("parcelbox:user_id")
	require.NoError(t, err)
	require.Equal(t, id1, stored)
}

func TestStore_EnsureUserID_NeverRegenerated(t *testing.T) {
	s, mr := newStore(t)
	require.NoError(t, mr.Set("parcelbox:user_id", "existing"))

	s.newID = func() string { return "fresh" }
	id, err := s.EnsureUserID(context.Background())
	require.NoError(t, err)
	require.Equal(t, "existing", id)
}

func TestStore_PushTokenFlag(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	sent, err := s.PushTokenSent(ctx)
	require.NoError(t, err)
	require.False(t, sent)

	require.NoError(t, s.MarkPushTokenSent(ctx))
	sent, err = s.PushTokenSent(ctx)
	require.NoError(t, err)
	require.True(t, sent)
}

func TestStore_RedisDown(t *testing.T) {
	s, mr := newStore(t)
	mr.Close()

	_, err := s.EnsureUserID(context.Background())
	require.Error(t, err)
	_, err = s.PushTokenSent(context.Background())
	require.Error(t, err)
}
