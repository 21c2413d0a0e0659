// Package watch reruns a build whenever documentation sources change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/phobologic/ddoc/internal/discover"
	"github.com/phobologic/ddoc/internal/markup"
)

// DefaultDebounce is the quiet period before a rebuild fires.
const DefaultDebounce = 200 * time.Millisecond

// RebuildFunc is called with the changed paths, relative to the root and
// sorted. An error is logged and watching continues.
type RebuildFunc func(ctx context.Context, changed []string) error

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration // 0 means DefaultDebounce
	Logger   *slog.Logger
}

// Watcher watches a documentation tree.
type Watcher struct {
	root     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger
}

// New starts watching root and every directory below it that discovery
// would search.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{root: root, watcher: fw, debounce: opts.Debounce, log: opts.Logger}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run delivers batches of changes to rebuild until ctx is done. It returns
// nil on cancellation.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn("failed to watch new directory", "path", event.Name, "err", err)
					}
					continue
				}
			}
			rel, ok := w.relevant(event)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)

			w.log.Info("sources changed", "files", len(changed))
			if err := rebuild(ctx, changed); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.log.Error("rebuild failed", "err", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "err", err)
		}
	}
}

// relevant reports whether event touches a documentation source, returning
// its slash path relative to the root.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, IsSource(rel)
}

// IsSource reports whether a slash-separated relative path is a
// documentation source outside skipped directories.
func IsSource(rel string) bool {
	if strings.HasPrefix(rel, "../") {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if discover.SkipDir(dir) {
			return false
		}
	}
	name := parts[len(parts)-1]
	if strings.HasPrefix(name, ".") {
		return false
	}
	return markup.ForExtension(filepath.Ext(name)) != ""
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && discover.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
