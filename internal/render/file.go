package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileTarget writes reloaded content to a file, for renderers that watch
// the file system. The write is atomic: content lands in a temp file in the
// same directory and is renamed over the destination.
type FileTarget struct {
	mu       sync.Mutex
	path     string
	resolver Resolver
	last     Handle
}

// NewFileTarget creates a target that writes to path, resolving handles
// through resolver.
func NewFileTarget(path string, resolver Resolver) *FileTarget {
	return &FileTarget{path: path, resolver: resolver}
}

// Path returns the destination path.
func (t *FileTarget) Path() string {
	return t.path
}

// Last returns the most recently written handle.
func (t *FileTarget) Last() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Reload resolves handle and writes its content to the destination.
func (t *FileTarget) Reload(ctx context.Context, handle Handle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	content, err := t.resolver.Resolve(handle)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", handle, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".scene-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	t.last = handle
	return nil
}
