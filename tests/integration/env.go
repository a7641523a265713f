//go:build integration

package integration

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/rekby/fixenv"

	"ftlvars/pkg/extractor"
	"ftlvars/pkg/httpstore"
	"ftlvars/pkg/service"
	"ftlvars/pkg/templating"
)

// templatesDir holds the templates every fixture serves.
const templatesDir = "testdata/templates"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RemoteTemplateServer serves testdata/templates over HTTP below /templates/.
// It is shared by every test in the package.
func RemoteTemplateServer(env fixenv.Env) *httptest.Server {
	return fixenv.CacheResult(env, func() (*fixenv.GenericResult[*httptest.Server], error) {
		files := http.StripPrefix("/templates/", http.FileServer(http.Dir(templatesDir)))
		srv := httptest.NewServer(files)
		return fixenv.NewGenericResultWithCleanup(srv, srv.Close), nil
	}, fixenv.CacheOptions{Scope: fixenv.ScopePackage})
}

// TestTemplateDir provides a writable copy of testdata/templates for one
// test.
func TestTemplateDir(env fixenv.Env) string {
	return fixenv.CacheResult(env, func() (*fixenv.GenericResult[string], error) {
		dir, err := os.MkdirTemp("", "ftlvars-integration-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp dir: %w", err)
		}
		if err := os.CopyFS(dir, os.DirFS(templatesDir)); err != nil {
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to copy templates: %w", err)
		}
		return fixenv.NewGenericResultWithCleanup(dir, func() {
			_ = os.RemoveAll(dir)
		}), nil
	})
}

// TestDirService provides a service reading the test's template directory.
func TestDirService(env fixenv.Env) *service.Service {
	dir := TestTemplateDir(env)

	return fixenv.CacheResult(env, func() (*fixenv.GenericResult[*service.Service], error) {
		svc, err := newService(templating.NewDirLoader(dir, nil))
		if err != nil {
			return nil, err
		}
		return fixenv.NewGenericResult(svc), nil
	})
}

// TestRemoteService provides a service fetching templates from
// RemoteTemplateServer.
func TestRemoteService(env fixenv.Env) *service.Service {
	srv := RemoteTemplateServer(env)

	return fixenv.CacheResult(env, func() (*fixenv.GenericResult[*service.Service], error) {
		store := httpstore.New(srv.URL+"/templates", httpstore.FetchOptions{Retries: -1}, nil, discardLogger())
		svc, err := newService(templating.NewRemoteLoader(store, 0, discardLogger()))
		if err != nil {
			return nil, err
		}
		return fixenv.NewGenericResult(svc), nil
	})
}

func newService(loader templating.Loader) (*service.Service, error) {
	engine, err := templating.NewWithOptions(templating.EngineTypeFTL, templating.Options{Loader: loader})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	ext, err := extractor.New(engine, extractor.Config{}, discardLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}
	return service.New(engine, ext, nil, discardLogger()), nil
}

// templateNames lists the template files below testdata/templates.
func templateNames() ([]string, error) {
	var names []string
	err := fs.WalkDir(os.DirFS(templatesDir), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(p) == ".ftl" {
			names = append(names, p)
		}
		return nil
	})
	return names, err
}
