package storage

import (
	"fmt"
	"strings"

	"evocar/internal/config"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"
)

// NewStore opens the run-history backend named by cfg.Kind. An empty kind
// selects the in-memory store. The store still needs Init before use.
func NewStore(cfg config.Storage) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("%s store requires a database path", KindSQLite)
		}
		return openSQLiteStore(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Kind)
	}
}

// CloseIfSupported releases stores that hold external resources.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
