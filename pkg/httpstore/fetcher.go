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
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// response is the outcome of one successful request.
type response struct {
	content      string
	notModified  bool
	etag         string
	lastModified string
}

// fetchWithRetry GETs url with exponential backoff. A 404 is returned at once
// since retrying cannot change it. etag and lastModified, when set, make the
// request conditional.
func (s *Store) fetchWithRetry(ctx context.Context, url, etag, lastModified string) (response, error) {
	opts := s.opts.WithDefaults()

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 {
			exp := min(attempt-1, 5)
			delay := opts.RetryDelay * time.Duration(1<<exp)

			s.logger.Debug("retrying template fetch",
				"url", url,
				"attempt", attempt,
				"delay", delay)

			select {
			case <-ctx.Done():
				return response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := s.doFetch(ctx, url, opts.Timeout, etag, lastModified)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotFound) || ctx.Err() != nil {
			break
		}
		s.logger.Debug("template fetch attempt failed",
			"url", url,
			"attempt", attempt+1,
			"error", err)
	}

	return response{}, fmt.Errorf("fetch %s failed after %d attempts: %w", url, opts.Retries+1, lastErr)
}

func (s *Store) doFetch(ctx context.Context, url string, timeout time.Duration, etag, lastModified string) (response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	s.addAuthHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		return response{notModified: true, etag: etag, lastModified: lastModified}, nil
	case resp.StatusCode == http.StatusNotFound:
		return response{}, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return response{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize+1))
	if err != nil {
		return response{}, fmt.Errorf("failed to read body: %w", err)
	}
	if len(body) > MaxContentSize {
		return response{}, fmt.Errorf("template exceeds %d bytes", MaxContentSize)
	}

	return response{
		content:      string(body),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

func (s *Store) addAuthHeaders(req *http.Request) {
	if s.auth == nil {
		return
	}
	switch s.auth.Type {
	case "basic":
		creds := base64.StdEncoding.EncodeToString([]byte(s.auth.Username + ":" + s.auth.Password))
		req.Header.Set("Authorization", "Basic "+creds)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+s.auth.Token)
	case "header":
		for k, v := range s.auth.Headers {
			req.Header.Set(k, v)
		}
	}
}
