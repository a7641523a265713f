// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpstore

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

// Store fetches templates below a base URL and caches them by name.
// It is safe for concurrent use.
type Store struct {
	baseURL string
	opts    FetchOptions
	auth    *AuthConfig
	client  *http.Client
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates a Store for templates served below baseURL.
func New(baseURL string, opts FetchOptions, auth *AuthConfig, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		opts:    opts,
		auth:    auth,
		client:  &http.Client{},
		logger:  logger.With("component", "httpstore"),
		entries: make(map[string]*Entry),
	}
}

// URL returns the address a template name is fetched from.
func (s *Store) URL(name string) string {
	segments := strings.Split(strings.TrimPrefix(name, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

// Fetch returns the accepted content for name, downloading it on first use.
func (s *Store) Fetch(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	entry, ok := s.entries[name]
	s.mu.RUnlock()
	if ok {
		return entry.Content, nil
	}

	u := s.URL(name)
	s.logger.Debug("fetching template", "name", name, "url", u)

	resp, err := s.fetchWithRetry(ctx, u, "", "")
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// a concurrent Fetch may have won the race
	if existing, ok := s.entries[name]; ok {
		return existing.Content, nil
	}
	s.entries[name] = &Entry{
		Name:         name,
		URL:          u,
		Content:      resp.content,
		Checksum:     Checksum(resp.content),
		FetchedAt:    time.Now(),
		ETag:         resp.etag,
		LastModified: resp.lastModified,
	}

	s.logger.Info("template fetched",
		"name", name,
		"size", len(resp.content))
	return resp.content, nil
}

// Refresh re-downloads name with a conditional request and stages changed
// content as pending. It reports whether new pending content was staged.
// Names that were never fetched are ignored.
func (s *Store) Refresh(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[name]
	var u, etag, lastModified string
	if ok {
		u, etag, lastModified = entry.URL, entry.ETag, entry.LastModified
	}
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	resp, err := s.fetchWithRetry(ctx, u, etag, lastModified)
	if err != nil {
		s.logger.Warn("template refresh failed, keeping accepted version",
			"name", name,
			"error", err)
		return false, err
	}
	if resp.notModified {
		return false, nil
	}

	checksum := Checksum(resp.content)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok = s.entries[name]
	if !ok {
		return false, nil
	}
	entry.ETag = resp.etag
	entry.LastModified = resp.lastModified

	if checksum == entry.Checksum || checksum == entry.LastRejected {
		return false, nil
	}
	if entry.HasPending && checksum == entry.PendingChecksum {
		return false, nil
	}

	entry.PendingContent = resp.content
	entry.PendingChecksum = checksum
	entry.HasPending = true

	s.logger.Info("template changed upstream, pending validation",
		"name", name,
		"old_checksum", shortChecksum(entry.Checksum),
		"new_checksum", shortChecksum(checksum))
	return true, nil
}

// RefreshAll refreshes every cached template and returns the names that now
// have pending content. Individual failures are logged and skipped.
func (s *Store) RefreshAll(ctx context.Context) []string {
	var changed []string
	for _, name := range s.Names() {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.Refresh(ctx, name)
		if err == nil && ok {
			changed = append(changed, name)
		}
	}
	return changed
}

// Pending returns the pending content for name.
func (s *Store) Pending(name string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok || !entry.HasPending {
		return "", false
	}
	return entry.PendingContent, true
}

// Promote makes the pending content of name the accepted version.
func (s *Store) Promote(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[name]
	if !ok || !entry.HasPending {
		return false
	}
	entry.Content = entry.PendingContent
	entry.Checksum = entry.PendingChecksum
	entry.FetchedAt = time.Now()
	entry.LastRejected = ""
	clearPending(entry)

	s.logger.Info("promoted pending template", "name", name)
	return true
}

// Reject discards the pending content of name and remembers its checksum.
func (s *Store) Reject(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[name]
	if !ok || !entry.HasPending {
		return false
	}
	entry.LastRejected = entry.PendingChecksum
	clearPending(entry)

	s.logger.Warn("rejected pending template, keeping accepted version", "name", name)
	return true
}

// Entry returns a copy of the cache entry for name.
func (s *Store) Entry(name string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Names returns the cached template names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invalidate drops name so the next Fetch downloads it again.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	delete(s.entries, name)
	s.mu.Unlock()
}

// Size returns the number of cached templates.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LoadFixture seeds the cache without any HTTP traffic.
func (s *Store) LoadFixture(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[name] = &Entry{
		Name:      name,
		URL:       s.URL(name),
		Content:   content,
		Checksum:  Checksum(content),
		FetchedAt: time.Now(),
	}
}

func clearPending(entry *Entry) {
	entry.PendingContent = ""
	entry.PendingChecksum = ""
	entry.HasPending = false
}

func shortChecksum(sum string) string {
	if len(sum) > 12 {
		return sum[:12]
	}
	return sum
}
