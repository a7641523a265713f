package workbench

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ftlvars/pkg/events"
	"ftlvars/pkg/templating"
)

func newTestWatcher(t *testing.T, debounce time.Duration) (*Watcher, string, <-chan events.Event) {
	t.Helper()
	dir := t.TempDir()
	bus := events.NewEventBus(10)
	sub := bus.Subscribe(50)
	bus.Start()

	w, err := NewWatcher(bus, templating.NewDirLoader(dir, []string{".ftl"}), debounce, discardLogger())
	require.NoError(t, err)
	return w, dir, sub
}

func changes(sub <-chan events.Event) []*TemplateChangedEvent {
	var out []*TemplateChangedEvent
	for {
		select {
		case ev := <-sub:
			if c, ok := ev.(*TemplateChangedEvent); ok {
				out = append(out, c)
			}
		default:
			return out
		}
	}
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	w, dir, sub := newTestWatcher(t, 100*time.Millisecond)
	defer w.watcher.Close()
	writeTemplate(t, dir, "a.ftl", "${x}")
	file := filepath.Join(dir, "a.ftl")
	start := time.Now()

	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Create}, start)
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Write}, start.Add(30*time.Millisecond))
	w.handle(fsnotify.Event{Name: file, Op: fsnotify.Write}, start.Add(60*time.Millisecond))

	w.flush(start.Add(120 * time.Millisecond))
	assert.Empty(t, changes(sub), "still inside the debounce window")

	w.flush(start.Add(160 * time.Millisecond))
	got := changes(sub)
	require.Len(t, got, 1)
	assert.Equal(t, "a.ftl", got[0].Template)
	assert.Equal(t, OpCreate, got[0].Op)
	assert.NotEmpty(t, got[0].CorrelationID)
}

func TestWatcher_FiltersAndOrders(t *testing.T) {
	w, dir, sub := newTestWatcher(t, 0)
	defer w.watcher.Close()
	now := time.Now()

	writeTemplate(t, dir, "b.ftl", "")
	writeTemplate(t, dir, "sub/a.ftl", "")
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "b.ftl"), Op: fsnotify.Write}, now)
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "sub", "a.ftl"), Op: fsnotify.Write}, now)
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "readme.md"), Op: fsnotify.Write}, now)
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "b.ftl"), Op: fsnotify.Chmod}, now)
	w.handle(fsnotify.Event{Name: "/elsewhere/c.ftl", Op: fsnotify.Write}, now)
	w.flush(now)

	got := changes(sub)
	require.Len(t, got, 2)
	assert.Equal(t, "b.ftl", got[0].Template)
	assert.Equal(t, "sub/a.ftl", got[1].Template)
}

func TestWatcher_RemoveAndRenameSave(t *testing.T) {
	w, dir, sub := newTestWatcher(t, 0)
	defer w.watcher.Close()
	now := time.Now()

	// Renamed away and gone: a removal.
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "gone.ftl"), Op: fsnotify.Rename}, now)
	// Replaced by an editor's atomic save: still there, so a write.
	writeTemplate(t, dir, "saved.ftl", "${x}")
	w.handle(fsnotify.Event{Name: filepath.Join(dir, "saved.ftl"), Op: fsnotify.Remove}, now)
	w.flush(now)

	got := changes(sub)
	require.Len(t, got, 2)
	assert.Equal(t, OpRemove, got[0].Op)
	assert.Equal(t, OpWrite, got[1].Op)
}

func TestWatcher_Run(t *testing.T) {
	w, dir, sub := newTestWatcher(t, 10*time.Millisecond)
	run(t, w.Run)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "new"), 0o755))
	// The new directory is added asynchronously.
	time.Sleep(50 * time.Millisecond)
	writeTemplate(t, dir, "new/page.ftl", "${title}")

	var got *TemplateChangedEvent
	require.Eventually(t, func() bool {
		for _, c := range changes(sub) {
			if c.Template == "new/page.ftl" {
				got = c
			}
		}
		return got != nil
	}, 5*time.Second, 10*time.Millisecond)
}
