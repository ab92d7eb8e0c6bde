package storage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/versemark/internal/models"
)

// Chapter change kinds reported to an EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

// EventCallback is called after a watcher-driven cache change.
type EventCallback func(kind string, loc models.Location)

// Watch starts an fsnotify watcher on the content root and keeps lib in
// step with the files until ctx is cancelled. It calls cb (if non-nil) for
// every chapter that changed.
//
// New directories created at runtime are added to the watch list. Rename
// events drop the whole cache after a short debounce, since the new name
// arrives as a separate Create.
func Watch(ctx context.Context, lib *Library, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var resetTimer *time.Timer
	var resetCh <-chan time.Time
	scheduleReset := func() {
		if resetTimer == nil {
			resetTimer = time.NewTimer(200 * time.Millisecond)
			resetCh = resetTimer.C
		} else {
			resetTimer.Reset(200 * time.Millisecond)
		}
	}

	notify := func(kind string, loc models.Location) {
		lib.Invalidate(loc)
		logger.Debug("watcher: chapter changed", slog.String("chapter", loc.Path()), slog.String("op", kind))
		if cb != nil {
			cb(kind, loc)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resetTimer != nil {
				resetTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-resetCh:
			lib.Reset()
			logger.Debug("watcher: cache reset after rename")

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					announceDir(root, ev.Name, notify)
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			loc, ok := LocationFromPath(filepath.ToSlash(rel))
			if !ok {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				notify(ChangeCreated, loc)
			case ev.Op&fsnotify.Write != 0:
				notify(ChangeUpdated, loc)
			case ev.Op&fsnotify.Remove != 0:
				notify(ChangeDeleted, loc)
			case ev.Op&fsnotify.Rename != 0:
				notify(ChangeDeleted, loc)
				scheduleReset()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// announceDir reports every chapter file already present in a new directory.
func announceDir(root, dir string, notify func(string, models.Location)) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		if loc, ok := LocationFromPath(filepath.ToSlash(rel)); ok {
			notify(ChangeCreated, loc)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
