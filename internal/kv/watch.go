package kv

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reports keys of a File store changed by any process, including
// edits made outside this one.
type Watcher struct {
	store   *File
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher starts observing the directory of store.
func NewWatcher(store *File, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(store.Dir()); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Watcher{store: store, watcher: w, logger: logger}, nil
}

// Run delivers changed keys to onChange until ctx is cancelled or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(key string)) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := w.store.keyForName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			w.logger.Debug("store key changed", zap.String("key", key), zap.String("op", event.Op.String()))
			onChange(key)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("store watcher error", zap.Error(err))
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
