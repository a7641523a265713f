package workbench

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"ftlvars/pkg/events"
	"ftlvars/pkg/extractor"
	"ftlvars/pkg/metrics"
	"ftlvars/pkg/service"
	"ftlvars/pkg/templating"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, loader templating.Loader, m *metrics.Metrics) *service.Service {
	t.Helper()
	engine, err := templating.NewWithOptions(templating.EngineTypeFTL, templating.Options{Loader: loader})
	require.NoError(t, err)
	ext, err := extractor.New(engine, extractor.Config{}, discardLogger())
	require.NoError(t, err)
	return service.New(engine, ext, m, discardLogger())
}

func newLoader(templates map[string]string) *templating.SimpleLoader {
	return templating.NewSimpleLoader(templates)
}

// run starts fn in the background and stops it when the test ends.
func run(t *testing.T, fn func(ctx context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("component did not stop")
		}
	})
}

func writeTemplate(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestNew_RequiresService(t *testing.T) {
	_, err := New(Options{})
	assert.EqualError(t, err, "service is required")
}

func TestWorkbench_WatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "invoice.ftl", `<#include "parts/footer.ftl">${company.name}`)
	writeTemplate(t, dir, "parts/footer.ftl", "${company.phone}")
	writeTemplate(t, dir, "notes.txt", "${ignored}")

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	loader := templating.NewDirLoader(dir, []string{".ftl"})

	wb, err := New(Options{
		Service:  newService(t, loader, m),
		Dir:      loader,
		Debounce: 20 * time.Millisecond,
		Metrics:  m,
		Gatherer: registry,
		RunID:    "run-1",
		Logger:   discardLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"invoice.ftl", "parts/footer.ftl"}, wb.Templates())

	run(t, wb.Run)

	require.Eventually(t, func() bool {
		return len(wb.State().Templates()) == 2
	}, 5*time.Second, 10*time.Millisecond)

	st, ok := wb.State().State("invoice.ftl")
	require.True(t, ok)
	assert.True(t, st.Valid)
	assert.Equal(t, []string{"company"}, st.RequiredVariables)

	analysis, ok := wb.State().Analysis("invoice.ftl")
	require.True(t, ok)
	assert.Contains(t, analysis.Paths(), "company.name")
	assert.Contains(t, analysis.Paths(), "company.phone")

	// Editing the footer re-analyzes the template that includes it.
	writeTemplate(t, dir, "parts/footer.ftl", "${company.email}")
	require.Eventually(t, func() bool {
		a, ok := wb.State().Analysis("invoice.ftl")
		if !ok {
			return false
		}
		_, found := a.Variables.At("company.email")
		return found
	}, 5*time.Second, 10*time.Millisecond)

	history := wb.State().History(10)
	last := history[len(history)-1]
	assert.Equal(t, "invoice.ftl", last.Template)
	assert.Equal(t, "parts/footer.ftl", last.Trigger)

	// Removing a template drops its state.
	require.NoError(t, os.Remove(filepath.Join(dir, "invoice.ftl")))
	require.Eventually(t, func() bool {
		_, ok := wb.State().State("invoice.ftl")
		return !ok
	}, 5*time.Second, 10*time.Millisecond)

	value, err := wb.DebugVars().Get("templates")
	require.NoError(t, err)
	assert.Equal(t, []string{"parts/footer.ftl"}, value)

	assert.Equal(t, uint64(0), wb.Bus().Dropped())
}

func TestWorkbench_RunStopsOnCancel(t *testing.T) {
	svc := newService(t, templating.NewSimpleLoader(map[string]string{"a.ftl": "${x}"}), nil)
	wb, err := New(Options{Service: svc, Logger: discardLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wb.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := wb.State().State("a.ftl")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("workbench did not stop")
	}
}

func TestWorkbench_ServerFailureStopsRun(t *testing.T) {
	svc := newService(t, templating.NewSimpleLoader(map[string]string{}), nil)
	wb, err := New(Options{Service: svc, DebugAddr: "256.0.0.1:1", Logger: discardLogger()})
	require.NoError(t, err)

	err = wb.Run(context.Background())
	assert.ErrorContains(t, err, "listen on")
}

func TestWorkbench_PublishesRunVariables(t *testing.T) {
	svc := newService(t, templating.NewSimpleLoader(map[string]string{}), nil)
	wb, err := New(Options{Service: svc, RunID: "abc", Logger: discardLogger()})
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"analyses", "events/dropped", "failures", "history", "run", "templates", "variables"},
		wb.DebugVars().Paths())

	value, err := wb.DebugVars().Get("run")
	require.NoError(t, err)
	assert.Equal(t, "abc", value.(map[string]any)["runId"])
}

var _ events.Event = (*WorkbenchStartedEvent)(nil)
