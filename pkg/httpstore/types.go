// Package httpstore fetches template sources from an HTTP base URL and keeps
// them in a two-version cache.
//
// Every cached template has an accepted version, which loaders serve, and at
// most one pending version produced by Refresh. Callers check pending content
// (for example by parsing it) and then Promote or Reject it, so a broken
// upstream edit never replaces a working template.
package httpstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 2

	// DefaultRetryDelay is the base delay of the exponential backoff.
	DefaultRetryDelay = 500 * time.Millisecond

	// MaxContentSize caps a single template body.
	MaxContentSize = 4 * 1024 * 1024

	userAgent = "ftlvars/1.0"
)

// ErrNotFound is returned (wrapped) when the server answers 404.
var ErrNotFound = errors.New("remote template not found")

// FetchOptions configures requests made by a Store.
type FetchOptions struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// Retries is the number of retry attempts after a failed request.
	// Negative disables retries.
	Retries int

	// RetryDelay is the base wait between retries; it doubles per attempt.
	RetryDelay time.Duration
}

// WithDefaults returns a copy with zero fields replaced by defaults.
func (o FetchOptions) WithDefaults() FetchOptions {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// AuthConfig holds credentials added to every request.
type AuthConfig struct {
	// Type is "basic", "bearer" or "header".
	Type string

	Username string
	Password string
	Token    string

	// Headers are sent verbatim when Type is "header".
	Headers map[string]string
}

// Entry is a snapshot of one cached template.
type Entry struct {
	Name string
	URL  string

	Content   string
	Checksum  string
	FetchedAt time.Time

	PendingContent  string
	PendingChecksum string
	HasPending      bool

	// LastRejected is the checksum of the most recently rejected version.
	// Refresh does not stage that version again.
	LastRejected string

	ETag         string
	LastModified string
}

// Checksum returns the hex SHA-256 of content.
func Checksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
