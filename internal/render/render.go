// Package render defines the contract between an editing session and the
// external renderer that displays the current document.
//
// Content never crosses the boundary directly. The session materializes a
// snapshot into a Store and hands the target an opaque Handle; the target
// resolves it when it loads.
package render

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Handle scheme prefix.
const scheme = "blob:"

var (
	// ErrUnknownHandle is returned when a handle was never issued or has
	// been revoked.
	ErrUnknownHandle = errors.New("render: unknown handle")
	// ErrNoTarget is returned when a reload is requested before a target
	// has been attached.
	ErrNoTarget = errors.New("render: no target")
)

// Handle is an opaque reference to materialized content.
type Handle string

// String returns the handle text.
func (h Handle) String() string {
	return string(h)
}

// Valid reports whether h has the handle scheme.
func (h Handle) Valid() bool {
	return strings.HasPrefix(string(h), scheme) && len(h) > len(scheme)
}

// Target receives reload requests.
type Target interface {
	// Reload asks the target to display the content behind handle.
	Reload(ctx context.Context, handle Handle) error
}

// Func adapts a plain function to Target.
type Func func(ctx context.Context, handle Handle) error

// Reload calls f.
func (f Func) Reload(ctx context.Context, handle Handle) error {
	return f(ctx, handle)
}

// Resolver looks up the content behind a handle.
type Resolver interface {
	Resolve(handle Handle) (string, error)
}

// Store holds materialized content until it is revoked.
//
// Thread-safety: All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	blobs map[Handle]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{blobs: make(map[Handle]string)}
}

// Materialize stores content and returns a fresh handle for it.
func (s *Store) Materialize(content string) Handle {
	h := Handle(scheme + uuid.NewString())
	s.mu.Lock()
	s.blobs[h] = content
	s.mu.Unlock()
	return h
}

// Resolve returns the content behind h.
func (s *Store) Resolve(h Handle) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[h]
	if !ok {
		return "", ErrUnknownHandle
	}
	return content, nil
}

// Revoke releases h. Revoking an unknown handle is a no-op.
func (s *Store) Revoke(h Handle) {
	s.mu.Lock()
	delete(s.blobs, h)
	s.mu.Unlock()
}

// Len returns the number of live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
