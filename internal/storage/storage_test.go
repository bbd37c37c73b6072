package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kyz7/backoffice/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	root := t.TempDir()
	store, err := storage.NewLocal(root, "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Success - Put then Delete", func(t *testing.T) {
		url, err := store.Put(ctx, "photos/2026/10/a.png", "image/png", strings.NewReader("png-bytes"))
		require.NoError(t, err)
		assert.Equal(t, "/uploads/photos/2026/10/a.png", url)

		data, err := os.ReadFile(filepath.Join(root, "photos", "2026", "10", "a.png"))
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(data))

		require.NoError(t, store.Delete(ctx, "photos/2026/10/a.png"))
		_, err = os.Stat(filepath.Join(root, "photos", "2026", "10", "a.png"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("Success - Delete of a missing object", func(t *testing.T) {
		assert.NoError(t, store.Delete(ctx, "others/missing.bin"))
	})

	t.Run("Error - Existing key is not overwritten", func(t *testing.T) {
		_, err := store.Put(ctx, "others/dup.txt", "text/plain", strings.NewReader("one"))
		require.NoError(t, err)
		_, err = store.Put(ctx, "others/dup.txt", "text/plain", strings.NewReader("two"))
		assert.Error(t, err)
	})

	t.Run("Error - Keys outside the root", func(t *testing.T) {
		for _, key := range []string{"../escape.txt", "a/../../escape.txt", "/etc/passwd", "", ".."} {
			_, err := store.Put(ctx, key, "text/plain", strings.NewReader("x"))
			assert.ErrorIs(t, err, storage.ErrInvalidKey, key)
			assert.ErrorIs(t, store.Delete(ctx, key), storage.ErrInvalidKey, key)
		}
	})
}

func TestObjectKey(t *testing.T) {
	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)

	key := storage.ObjectKey("Photo.JPG", "image/jpeg", now)
	assert.True(t, strings.HasPrefix(key, "photos/2026/10/"), key)
	assert.True(t, strings.HasSuffix(key, ".jpg"), key)

	assert.True(t, strings.HasPrefix(storage.ObjectKey("a.pdf", "application/pdf", now), "documents/"))
	assert.True(t, strings.HasPrefix(storage.ObjectKey("a.mp4", "video/mp4", now), "videos/"))
	assert.True(t, strings.HasPrefix(storage.ObjectKey("a", "application/zip", now), "others/"))
	assert.NotEqual(t, storage.ObjectKey("a.png", "image/png", now), storage.ObjectKey("a.png", "image/png", now))
}

func TestS3URL(t *testing.T) {
	s := storage.NewS3WithClient(nil, "bucket", "ap-southeast-1", "")
	assert.Equal(t, "https://bucket.s3.ap-southeast-1.amazonaws.com/photos/a.png", s.URL("photos/a.png"))

	cdn := storage.NewS3WithClient(nil, "bucket", "ap-southeast-1", "https://cdn.example.com/")
	assert.Equal(t, "https://cdn.example.com/photos/a.png", cdn.URL("photos/a.png"))
}
