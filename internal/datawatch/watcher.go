// Package datawatch re-hydrates the stores when something other than this
// process rewrites the data files, e.g. a cross-device file-sync agent
// dropping in state exported on another machine.
package datawatch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fieldwork/internal/apperr"
	"github.com/starford/fieldwork/internal/checksum"
	"github.com/starford/fieldwork/internal/storage"
)

// Target pairs one watched data file with the store persisted in it.
type Target struct {
	// Key is the provider key (store.ContactsKey etc.).
	Key string
	// Hydrate reloads the store from the provider.
	Hydrate func() error
	// PersistedChecksum is the digest of the store's own last write; a file
	// matching it is our write echoed back by fsnotify, not an external one.
	PersistedChecksum func() string
}

// EventCallback is called after a store was re-hydrated from an external
// change. key is the provider key that changed.
type EventCallback func(key string)

const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the data directory and processes file
// change events until ctx is cancelled. File-sync agents typically write a
// temp file and rename it into place, so events are debounced per key and
// the file is re-read after the dust settles.
func Watch(ctx context.Context, fs *storage.FS, targets []Target, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(fs.Root()); err != nil {
		return err
	}

	byFile := make(map[string]Target, len(targets))
	for _, t := range targets {
		byFile[fs.KeyFile(t.Key)] = t
	}

	logger.Info("datawatch: started", slog.String("root", fs.Root()))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("datawatch: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if _, watched := byFile[name]; !watched {
				continue
			}
			pending[name] = struct{}{}
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("datawatch: watcher error", slog.String("error", err.Error()))

		case <-timerCh:
			for name := range pending {
				delete(pending, name)
				t := byFile[name]
				reload(fs, t, logger, cb)
			}
		}
	}
}

func reload(fs *storage.FS, t Target, logger *slog.Logger, cb EventCallback) {
	data, err := fs.Get(t.Key)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Warn("datawatch: read failed",
				slog.String("key", t.Key), slog.String("error", err.Error()))
		}
		return
	}
	if checksum.Sum(data) == t.PersistedChecksum() {
		// Our own persistence write echoed back; nothing external changed.
		return
	}
	if err := t.Hydrate(); err != nil {
		logger.Warn("datawatch: hydrate failed",
			slog.String("key", t.Key), slog.String("error", err.Error()))
		return
	}
	logger.Info("datawatch: reloaded from external change", slog.String("key", t.Key))
	if cb != nil {
		cb(t.Key)
	}
}
