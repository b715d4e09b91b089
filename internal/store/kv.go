// Package store holds the engine's persisted state: the bounded
// most-recently-used list and the hidden task/section sets. Both stores
// speak to the host's key-value persistence through the KV boundary and
// are the sole mutators of their keys.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// KV is the host persistence boundary. Values are flat serialized records;
// keys are fixed strings owned by one store each.
type KV interface {
	// Get returns the raw value for a key, and whether it was present.
	Get(key string) ([]byte, bool)

	// Set stores the raw value for a key.
	Set(key string, value []byte) error
}

// FileKV is the default KV: one JSON document on disk, one top-level
// member per key. Writes are serialized and land via atomic rename.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV creates a file-backed store at the given path. The file is
// created on first Set.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

// Get returns the raw JSON value stored under key.
func (f *FileKV) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(data, keyPath(key))
	if !res.Exists() {
		return nil, false
	}
	return []byte(res.Raw), true
}

// Set stores value (which must be valid JSON) under key.
func (f *FileKV) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("read state file: %w", err)
		}
		data = []byte("{}")
	}

	updated, err := sjson.SetRawBytes(data, keyPath(key), value)
	if err != nil {
		return fmt.Errorf("update state key %q: %w", key, err)
	}

	return writeAtomic(f.path, updated)
}

// keyPath escapes a storage key for use as a gjson/sjson path.
func keyPath(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '\\', '|', '#', '@':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close state file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// MemKV is an in-memory KV for tests and hosts that persist elsewhere.
type MemKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemKV creates an empty in-memory store.
func NewMemKV() *MemKV {
	return &MemKV{values: make(map[string][]byte)}
}

// Get returns the value for key.
func (m *MemKV) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores the value for key.
func (m *MemKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	return nil
}
