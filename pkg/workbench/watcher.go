package workbench

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"ftlvars/pkg/events"
	"ftlvars/pkg/templating"
)

// Watcher turns filesystem changes under a template directory into
// TemplateChangedEvents. Rapid saves of one file collapse into a single
// event once the file has been quiet for the debounce period.
type Watcher struct {
	bus      *events.EventBus
	loader   *templating.DirLoader
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	pending map[string]pendingChange
}

type pendingChange struct {
	op   ChangeOp
	seen time.Time
}

// NewWatcher creates a watcher for the loader's root and every directory
// below it.
func NewWatcher(bus *events.EventBus, loader *templating.DirLoader, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		bus:      bus,
		loader:   loader,
		debounce: debounce,
		logger:   logger.With("component", "watcher"),
		watcher:  fw,
		pending:  make(map[string]pendingChange),
	}

	if err := w.addTree(loader.Root()); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes filesystem events until ctx is canceled. It closes the
// underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	tick := max(w.debounce/2, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.logger.Info("Watching templates", "dir", w.loader.Root(), "debounce", w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ev, time.Now())

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, now time.Time) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("Cannot watch new directory", "dir", ev.Name, "error", err)
			}
			return
		}
	}

	if !w.loader.HasTemplateExtension(ev.Name) {
		return
	}
	name, ok := w.loader.NameFor(ev.Name)
	if !ok {
		return
	}

	var op ChangeOp
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpWrite
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpRemove
	default:
		return
	}

	// A create followed by writes is still a create.
	if prev, ok := w.pending[name]; ok && prev.op == OpCreate && op == OpWrite {
		op = OpCreate
	}
	w.pending[name] = pendingChange{op: op, seen: now}
}

// flush publishes changes that have been quiet for the debounce period, in
// name order.
func (w *Watcher) flush(now time.Time) {
	var settled []string
	for name, change := range w.pending {
		if now.Sub(change.seen) >= w.debounce {
			settled = append(settled, name)
		}
	}
	slices.Sort(settled)

	for _, name := range settled {
		op := w.pending[name].op
		delete(w.pending, name)

		// Editors save by rename; trust the filesystem over the event.
		if op == OpRemove && w.exists(name) {
			op = OpWrite
		}
		w.logger.Debug("Template changed", "template", name, "op", op)
		w.bus.Publish(NewTemplateChangedEvent(name, op))
	}
}

func (w *Watcher) exists(name string) bool {
	_, err := w.loader.Source(name)
	return err == nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
