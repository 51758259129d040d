// Reloads the snapshot when another process rewrites the data file.

package storage

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/maruel/albumdb/internal/jsondb"
)

// Watch reloads the snapshot every time the data file is written or replaced,
// until ctx is canceled or the store is closed. It blocks.
//
// The parent directory is watched since saves replace the file by renaming.
func (s *Store) Watch(ctx context.Context) error {
	return s.watch(ctx, nil)
}

func (s *Store) watch(ctx context.Context, ready chan<- error) error {
	notify := func(err error) {
		if ready != nil {
			ready <- err
			ready = nil
		}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		notify(err)
		return err
	}
	defer func() { _ = w.Close() }()
	path := s.file.Path()
	if err := w.Add(filepath.Dir(path)); err != nil {
		notify(err)
		return err
	}
	notify(nil)
	name := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if err := s.Reload(ctx); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				if errors.Is(err, jsondb.ErrCorrupt) {
					return err
				}
				slog.WarnContext(ctx, "failed to reload data file", "path", path, "err", err)
				continue
			}
			slog.DebugContext(ctx, "reloaded data file", "path", path, "op", event.Op.String())
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "error watching data file", "path", path, "err", err)
		}
	}
}
