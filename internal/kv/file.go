package kv

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	fileValueSuffix = ".json"
	fileTempSuffix  = ".tmp"
)

// File stores one JSON document per key inside a directory, mirroring how a
// browser keeps one entry per key.
type File struct {
	dir string
}

// NewFile creates the directory if needed and returns a File store rooted there.
func NewFile(dir string) (*File, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("%w: empty file store directory", ErrInvalidDSN)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (f *File) Dir() string { return f.dir }

// Get implements Store.
func (f *File) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Store. Writes go through a temp file and a rename.
func (f *File) Set(key string, value []byte) error {
	tmp, err := f.writeTemp(key, value)
	if err != nil {
		return err
	}
	return os.Rename(tmp, f.path(key))
}

// SetBatch writes every temp file before renaming any of them, so a failed
// write leaves all keys untouched.
func (f *File) SetBatch(values map[string][]byte) error {
	keys := sortedKeys(values)
	temps := make([]string, 0, len(keys))
	for _, key := range keys {
		tmp, err := f.writeTemp(key, values[key])
		if err != nil {
			for _, written := range temps {
				_ = os.Remove(written)
			}
			return err
		}
		temps = append(temps, tmp)
	}
	for i, key := range keys {
		if err := os.Rename(temps[i], f.path(key)); err != nil {
			return err
		}
	}
	return nil
}

// Remove implements Store.
func (f *File) Remove(key string) error {
	if err := os.Remove(f.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Keys implements Store.
func (f *File) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := f.keyForName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Close implements Store.
func (f *File) Close() error { return nil }

func (f *File) writeTemp(key string, value []byte) (string, error) {
	tmp := f.path(key) + fileTempSuffix
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return "", err
	}
	return tmp, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+fileValueSuffix)
}

// keyForName maps a file name in the store directory back to its key.
func (f *File) keyForName(name string) (string, bool) {
	if !strings.HasSuffix(name, fileValueSuffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileValueSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}
