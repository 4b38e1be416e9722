// Package kv is the only I/O boundary of the gym store: a synchronous
// string-keyed store of JSON texts with pluggable backends.
package kv

import (
	"errors"
	"sort"
)

var (
	// ErrInvalidDSN is returned when a store DSN cannot be resolved.
	ErrInvalidDSN = errors.New("invalid store dsn")
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("store closed")
)

// Store is a get/set/remove contract over opaque string keys.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)
	Close() error
}

// Batcher is implemented by stores that can persist several keys at once,
// either all of them or none.
type Batcher interface {
	SetBatch(values map[string][]byte) error
}

// SetAll writes values through Batcher when the store supports it and falls
// back to sequential writes in key order otherwise.
func SetAll(store Store, values map[string][]byte) error {
	if len(values) == 0 {
		return nil
	}
	if batcher, ok := store.(Batcher); ok {
		return batcher.SetBatch(values)
	}
	for _, key := range sortedKeys(values) {
		if err := store.Set(key, values[key]); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
