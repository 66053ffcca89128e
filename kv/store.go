// Package kv provides the persistent key-value store used for session
// state and caches. Values are JSON documents grouped into buckets, each
// entry stored as its own file so partial writes never corrupt
// neighbouring entries.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store is a bucket-scoped JSON store rooted at a directory.
// It is safe for concurrent use from multiple goroutines.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// Open creates (if needed) and opens a store rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root directory of the store.
func (s *Store) Dir() string {
	return s.dir
}

// Bucket returns a handle scoped to the named bucket. The bucket
// directory is created lazily on first write.
func (s *Store) Bucket(name string) *Bucket {
	return &Bucket{store: s, name: name}
}

// Bucket is a named namespace within a Store.
type Bucket struct {
	store *Store
	name  string
}

// Get decodes the value stored under key into v. The second return value
// reports whether the key was present.
func (b *Bucket) Get(key string, v any) (bool, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	data, err := os.ReadFile(b.entryPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read entry %q: %w", key, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode entry %q: %w", key, err)
	}
	return true, nil
}

// Put stores v under key, replacing any previous value. The write goes
// through a temporary file and rename so readers never observe a
// half-written entry.
func (b *Bucket) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode entry %q: %w", key, err)
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	path := b.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write entry %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close entry %q: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit entry %q: %w", key, err)
	}
	return nil
}

// Delete removes the value stored under key. Deleting a missing key is
// not an error.
func (b *Bucket) Delete(key string) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	err := os.Remove(b.entryPath(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete entry %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys currently present in the bucket.
func (b *Bucket) Keys() ([]string, error) {
	b.store.mu.RLock()
	defer b.store.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(b.store.dir, escape(b.name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %q: %w", b.name, err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key, err := url.PathUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (b *Bucket) entryPath(key string) string {
	return filepath.Join(b.store.dir, escape(b.name), escape(key)+".json")
}

// escape makes arbitrary bucket and key names safe as file names.
func escape(name string) string {
	return url.PathEscape(name)
}
