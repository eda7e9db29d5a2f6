package tokenstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/brizzai/devdash/internal/config"
)

// ErrCorrupt is returned by Backend.Load when the persisted payload cannot be decoded.
var ErrCorrupt = errors.New("tokenstore: persisted session is corrupt")

// Backend persists the session entries as named strings.
// Save always receives the complete entry set and must apply it atomically.
type Backend interface {
	Load() (map[string]string, error)
	Save(entries map[string]string) error
	Close() error
}

// MemoryBackend keeps entries in process memory only.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: map[string]string{}}
}

func (b *MemoryBackend) Load() (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyEntries(b.entries), nil
}

func (b *MemoryBackend) Save(entries map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = copyEntries(entries)
	return nil
}

func (b *MemoryBackend) Close() error { return nil }

func copyEntries(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// OpenBackend opens the backend selected by cfg.
func OpenBackend(cfg config.SessionConfig) (Backend, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return NewMemoryBackend(), nil
	case config.StorageFile:
		return NewFileBackend(cfg.Path)
	case config.StorageSQLite:
		return OpenSQLiteBackend(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported session backend: %q", cfg.Backend)
	}
}
