package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher follows every directory below root except hidden ones and the
// skipped trees, typically the output dir.
type watcher struct {
	fs      *fsnotify.Watcher
	root    string
	skip    []string
	watched map[string]bool
}

func newWatcher(root string, skip ...string) (*watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve source dir: %w", err)
	}
	w := &watcher{root: absRoot, watched: make(map[string]bool)}
	for _, s := range skip {
		if s == "" {
			continue
		}
		abs, err := filepath.Abs(s)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", s, err)
		}
		w.skip = append(w.skip, abs)
	}

	w.fs, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if err := w.addTree(absRoot); err != nil {
		_ = w.fs.Close()
		return nil, err
	}
	return w, nil
}

func (w *watcher) Close() error {
	return w.fs.Close()
}

// addTree watches dir and all its subdirectories.
func (w *watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if w.watched[path] {
			return nil
		}
		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		w.watched[path] = true
		slog.Debug("Watching directory", "path", path)
		return nil
	})
}

// ignored reports whether changes at path should not trigger a rebuild.
func (w *watcher) ignored(path string) bool {
	for _, s := range w.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	// editor backups
	return strings.HasSuffix(path, "~")
}

// run calls rebuild once changes have been quiet for debounce. rebuild runs
// on this goroutine, so rebuilds never overlap.
func (w *watcher) run(ctx context.Context, debounce time.Duration, rebuild func()) {
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						slog.Warn("Could not watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				delete(w.watched, ev.Name)
			}
			slog.Debug("Change detected", "path", ev.Name, "op", ev.Op.String())
			fire = time.After(debounce)
		case <-fire:
			fire = nil
			rebuild()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("Watcher error", "error", err)
		}
	}
}
