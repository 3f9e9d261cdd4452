// Package kvstore persists small named blobs for the library.
//
// Two backends are provided: a SQLite table (the default) and one file per
// key on an afero filesystem. Both treat a missing key as ErrNotFound and
// replace values atomically.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// Store is a durable string-keyed byte store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the backend named by kind ("sqlite" or "file") rooted at path.
func Open(ctx context.Context, kind, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "sqlite":
		return OpenSQLite(ctx, path)
	case "file":
		return NewFileStore(nil, path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("empty key")
	}
	return nil
}
