package storage

import (
	"strings"
	"testing"

	"evocar/internal/config"
)

func TestNewStoreMemory(t *testing.T) {
	for _, kind := range []string{"", "memory", " Memory "} {
		store, err := NewStore(config.Storage{Kind: kind})
		if err != nil {
			t.Fatalf("kind %q: %v", kind, err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("kind %q: expected memory store, got %T", kind, store)
		}
		if err := CloseIfSupported(store); err != nil {
			t.Fatalf("close memory store: %v", err)
		}
	}
}

func TestNewStoreRejectsBadBackends(t *testing.T) {
	if _, err := NewStore(config.Storage{Kind: "postgres"}); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported store error, got %v", err)
	}
	if _, err := NewStore(config.Storage{Kind: KindSQLite}); err == nil {
		t.Fatal("expected error for sqlite store without a path")
	}
}
