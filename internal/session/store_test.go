package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/Kyz7/backoffice/internal/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewRedisStore(client, time.Hour), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - create and read back", func(t *testing.T) {
		store, mr := newStore(t)

		id, err := store.Create(ctx, session.Record{UserID: 7, RoleSlug: "editor", Epoch: 2})
		require.NoError(t, err)
		assert.Len(t, id, 48)
		assert.True(t, mr.Exists("session:"+id))

		rec, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, uint(7), rec.UserID)
		assert.Equal(t, "editor", rec.RoleSlug)
		assert.Equal(t, int64(2), rec.Epoch)
		assert.False(t, rec.CreatedAt.IsZero())
	})

	t.Run("Success - destroy is idempotent", func(t *testing.T) {
		store, _ := newStore(t)

		id, err := store.Create(ctx, session.Record{UserID: 1})
		require.NoError(t, err)

		require.NoError(t, store.Destroy(ctx, id))
		require.NoError(t, store.Destroy(ctx, id))

		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("Error - expired after ttl", func(t *testing.T) {
		store, mr := newStore(t)

		id, err := store.Create(ctx, session.Record{UserID: 1})
		require.NoError(t, err)

		mr.FastForward(2 * time.Hour)

		_, err = store.Get(ctx, id)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("Error - empty id", func(t *testing.T) {
		store, _ := newStore(t)
		_, err := store.Get(ctx, "")
		assert.ErrorIs(t, err, session.ErrNotFound)
	})
}
