package connections

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

type watchTarget struct {
	handle  *Serial
	path    string // cleaned configured path
	watched string // directory currently watched for it
	// echo is set when an ancestor event already reopened the handle; the
	// Create for the node seen on the newly armed watch is then skipped.
	echo bool
}

// watcher reopens handles when their device node is created. It watches
// the deepest existing ancestor of every device path and moves the watch
// deeper as missing directories appear.
type watcher struct {
	fs      *fsnotify.Watcher
	targets []*watchTarget
	settle  time.Duration
	logger  *slog.Logger
}

func newWatcher(handles []*Serial, settle time.Duration, logger *slog.Logger) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create hot-plug watcher: %w", err)
	}
	w := &watcher{fs: fw, settle: settle, logger: logger}
	for _, h := range handles {
		path, err := filepath.Abs(h.Path())
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to resolve %s: %w", h.Path(), err)
		}
		t := &watchTarget{handle: h, path: filepath.Clean(path)}
		if err := w.arm(t); err != nil {
			fw.Close()
			return nil, err
		}
		w.targets = append(w.targets, t)
	}
	return w, nil
}

// arm watches the deepest existing ancestor directory of t.path.
func (w *watcher) arm(t *watchTarget) error {
	dir := existingAncestor(filepath.Dir(t.path))
	if dir == t.watched {
		return nil
	}
	if err := w.fs.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	t.watched = dir
	w.logger.Debug("watching for device", "device", t.handle.Label(), "dir", dir)
	return nil
}

func existingAncestor(dir string) string {
	for {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func (w *watcher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("hot-plug watch error", "error", err)
		}
	}
}

func (w *watcher) handle(ctx context.Context, ev fsnotify.Event) {
	name := filepath.Clean(ev.Name)
	for _, t := range w.targets {
		switch {
		case name == t.path && ev.Has(fsnotify.Create):
			if t.echo && t.handle.IsOpen() {
				t.echo = false
				w.logger.Debug("device already reopened", "device", t.handle.Label(), "path", t.path)
				continue
			}
			t.echo = false
			w.reopen(ctx, t)
		case name == t.path && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)):
			t.echo = false
			w.logger.Warn("device removed", "device", t.handle.Label(), "path", t.path)
			_ = t.handle.Close()
		case name == t.watched && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)):
			// The watched directory went away; fall back to its parent.
			t.watched = ""
			if err := w.arm(t); err != nil {
				w.logger.Warn("failed to re-arm hot-plug watch", "device", t.handle.Label(), "error", err)
			}
		case ev.Has(fsnotify.Create) && strings.HasPrefix(t.path, name+string(filepath.Separator)):
			// A missing ancestor appeared; follow it down.
			if err := w.arm(t); err != nil {
				w.logger.Warn("failed to re-arm hot-plug watch", "device", t.handle.Label(), "error", err)
				continue
			}
			if _, err := os.Stat(t.path); err == nil {
				t.echo = w.reopen(ctx, t)
			}
		}
	}
}

// reopen waits for the settle delay and reopens t. It reports whether the
// handle is open afterwards.
func (w *watcher) reopen(ctx context.Context, t *watchTarget) bool {
	if w.settle > 0 {
		timer := time.NewTimer(w.settle)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	if err := t.handle.Reopen(); err != nil {
		w.logger.Error("failed to reopen device", "device", t.handle.Label(), "path", t.path, "error", err)
		return false
	}
	return true
}

func (w *watcher) close() error {
	return w.fs.Close()
}
