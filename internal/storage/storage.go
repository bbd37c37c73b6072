package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidKey = errors.New("storage: invalid object key")

// Storage stores bytes under a key and hands back a URL the site can serve.
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	Name() string
}

// ObjectKey builds a collision-free key such as "photos/2026/10/<uuid>.png".
func ObjectKey(filename, contentType string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return path.Join(folderFor(contentType), now.Format("2006/01"), uuid.New().String()+ext)
}

func folderFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "photos"
	case strings.HasPrefix(contentType, "video/"):
		return "videos"
	case contentType == "application/pdf",
		strings.HasPrefix(contentType, "application/msword"),
		strings.HasPrefix(contentType, "application/vnd.openxmlformats"):
		return "documents"
	default:
		return "others"
	}
}

// cleanKey rejects absolute keys and keys that climb out of the root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
