// Package store keeps persisted scenes keyed by name.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"voxeledit.ai/internal/persistence/snapshot"
)

var (
	ErrNotFound = errors.New("scene not found")
	ErrBadName  = errors.New("invalid scene name")
)

// Store is the persistence collaborator of the editor. Implementations must
// be safe for concurrent use.
type Store interface {
	Save(ctx context.Context, name string, scene snapshot.SceneV1) error
	Load(ctx context.Context, name string) (snapshot.SceneV1, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, name string) (bool, error)
	Close() error
}

const maxNameLen = 128

// ValidName reports whether name can be used as a scene key. Names end up
// in file paths, so only [A-Za-z0-9_.-] is allowed and a leading dot is not.
func ValidName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrBadName)
	}
	if len(name) > maxNameLen {
		return fmt.Errorf("%w: longer than %d", ErrBadName, maxNameLen)
	}
	if name[0] == '.' {
		return fmt.Errorf("%w: %q starts with a dot", ErrBadName, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("%w: %q has invalid character %q", ErrBadName, name, r)
		}
	}
	return nil
}

// Open returns the store for backend. path is a database file for sqlite
// and a directory for file; memory ignores it.
func Open(backend, path string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return OpenSQLite(path)
	case "file":
		return NewFileStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
