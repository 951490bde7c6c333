// Package storage persists uploaded media under slash-separated keys such as
// "chat/images/<name>" or "avatars/<name>".
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type Object struct {
	Key         string
	ContentType string
	Size        int64
}

type Backend interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Remove(ctx context.Context, key string) error
}

// CleanKey rejects keys that are empty, absolute or escape the store root.
func CleanKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// Ref is the client-visible reference for key, e.g. "/uploads/avatars/x.png".
func Ref(publicPrefix, key string) string {
	return strings.TrimSuffix(publicPrefix, "/") + "/" + key
}

// KeyFromRef reverses Ref. It reports false for refs outside publicPrefix.
func KeyFromRef(publicPrefix, ref string) (string, bool) {
	prefix := strings.TrimSuffix(publicPrefix, "/") + "/"
	if !strings.HasPrefix(ref, prefix) {
		return "", false
	}
	key, err := CleanKey(strings.TrimPrefix(ref, prefix))
	if err != nil {
		return "", false
	}
	return key, true
}
