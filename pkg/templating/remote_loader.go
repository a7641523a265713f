package templating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ftlvars/pkg/ftl"
	"ftlvars/pkg/httpstore"
)

// RemoteLoader serves templates from an httpstore.Store.
type RemoteLoader struct {
	store   *httpstore.Store
	timeout time.Duration
	logger  *slog.Logger
}

// NewRemoteLoader wraps store. timeout bounds each Source call.
func NewRemoteLoader(store *httpstore.Store, timeout time.Duration, logger *slog.Logger) *RemoteLoader {
	if timeout <= 0 {
		timeout = httpstore.DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteLoader{store: store, timeout: timeout, logger: logger}
}

// Source returns the accepted content of name, fetching it on first use.
func (l *RemoteLoader) Source(name string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	content, err := l.store.Fetch(ctx, name)
	if errors.Is(err, httpstore.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ftl.ErrTemplateNotFound, name)
	}
	return content, err
}

// Names lists the templates fetched so far. A remote base URL cannot be
// enumerated, so names appear once something has loaded them.
func (l *RemoteLoader) Names() ([]string, error) {
	return l.store.Names(), nil
}

// Refresh re-fetches every known template. Changed content is promoted when
// it parses and rejected otherwise. It returns the promoted names.
func (l *RemoteLoader) Refresh(ctx context.Context) []string {
	var promoted []string
	for _, name := range l.store.RefreshAll(ctx) {
		pending, ok := l.store.Pending(name)
		if !ok {
			continue
		}
		if _, err := ftl.Parse(name, pending); err != nil {
			l.logger.Warn("remote template update does not compile",
				"template", name,
				"error", err)
			l.store.Reject(name)
			continue
		}
		if l.store.Promote(name) {
			promoted = append(promoted, name)
		}
	}
	return promoted
}
