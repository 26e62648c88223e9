package storage

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

// Storage is the durable key-value capability the cart store persists into.
// Implementations return ErrNotFound for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Prefixed scopes every key of inner under prefix, giving each browsing
// session its own namespace in a shared backend.
func Prefixed(inner Storage, prefix string) Storage {
	return prefixed{inner: inner, prefix: prefix}
}

type prefixed struct {
	inner  Storage
	prefix string
}

func (p prefixed) Get(ctx context.Context, key string) (string, error) {
	return p.inner.Get(ctx, p.prefix+key)
}

func (p prefixed) Set(ctx context.Context, key, value string) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

// SessionPrefix is the namespace used for a storefront session.
func SessionPrefix(sessionID string) string {
	return "session:" + sessionID + ":"
}
