// Package document moves style documents between the buffer and the
// outside world and tracks whether the buffer has unsaved changes.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/rewrite"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Placeholder is the buffer text shown before a document arrives.
const Placeholder = "Loading..."

var (
	// ErrOpenCanceled is returned when the user declines to discard unsaved
	// changes.
	ErrOpenCanceled = errors.New("document: open canceled")

	// ErrEmptyDocument is returned when an opened document has no content.
	ErrEmptyDocument = errors.New("document: empty document")
)

var eol = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Prompt is what the user is asked before unsaved changes are discarded.
type Prompt struct {
	// Message is a one-line question.
	Message string
	// Diff is a unified diff from the saved document to the buffer.
	Diff string
}

// ConfirmFunc asks the user a yes/no question and blocks for the answer.
type ConfirmFunc func(Prompt) bool

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// Bridge loads and saves the document held in a buffer.
type Bridge struct {
	buf    *buffer.Buffer
	rw     *rewrite.Rewriter
	logger *logging.Logger

	mu        sync.Mutex
	saved     bool
	savedText string
	path      string

	loading atomic.Bool
	unsub   func()
}

// New creates a bridge over buf. The buffer counts as saved until it is
// first mutated.
func New(buf *buffer.Buffer, rw *rewrite.Rewriter, opts ...Option) *Bridge {
	if rw == nil {
		rw = rewrite.New(rewrite.DefaultRule())
	}
	b := &Bridge{
		buf:       buf,
		rw:        rw,
		logger:    logging.Nop(),
		saved:     true,
		savedText: buf.Text(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithComponent("document")
	b.unsub = buf.OnMutate(b.onMutate)
	return b
}

// Close detaches the bridge from the buffer.
func (b *Bridge) Close() {
	b.unsub()
}

func (b *Bridge) onMutate(buffer.Change) {
	if b.loading.Load() {
		return
	}
	b.mu.Lock()
	b.saved = false
	b.mu.Unlock()
}

// Saved reports whether the buffer matches the last saved or loaded
// document.
func (b *Bridge) Saved() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saved
}

// MarkSaved sets the saved flag, as when restoring a session. Marking the
// buffer saved records its current text as the saved document.
func (b *Bridge) MarkSaved(saved bool) {
	text := b.buf.Text()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = saved
	if saved {
		b.savedText = text
	}
}

// Path returns the file the document was last opened from or saved to.
func (b *Bridge) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// LoadStyle replaces the buffer with content after stripping injected
// access tokens, and marks it saved. Empty content changes nothing and
// returns false.
func (b *Bridge) LoadStyle(content string) bool {
	if content == "" {
		return false
	}
	clean := b.Clean(content)

	b.loading.Store(true)
	b.buf.SetText(clean)
	b.loading.Store(false)

	b.mu.Lock()
	b.saved = true
	b.savedText = clean
	b.mu.Unlock()
	return true
}

// Clean returns content as LoadStyle would put it in the buffer: line
// endings normalized to \n and injected access tokens removed.
func (b *Bridge) Clean(content string) string {
	return b.rw.Strip(eol.Replace(content))
}

// Content returns the buffer text verbatim.
func (b *Bridge) Content() string {
	return b.buf.Snapshot().Text()
}

// Save writes the content to w and marks the buffer saved on success.
func (b *Bridge) Save(w io.Writer) error {
	snap := b.buf.Snapshot()
	if _, err := io.WriteString(w, snap.Text()); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	b.markSavedAt(snap)
	return nil
}

// SaveFile writes the content to path atomically.
func (b *Bridge) SaveFile(path string) error {
	snap := b.buf.Snapshot()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(snap.Text()), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	b.markSavedAt(snap)
	b.mu.Lock()
	b.path = path
	b.mu.Unlock()
	b.logger.Info("saved %s", path)
	return nil
}

// markSavedAt marks the buffer saved if it has not changed since snap.
func (b *Bridge) markSavedAt(snap buffer.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.savedText = snap.Text()
	if b.buf.Revision() == snap.Revision() {
		b.saved = true
	}
}

// Open reads a document from r and loads it. With unsaved changes,
// confirm is asked first; declining returns ErrOpenCanceled and leaves
// everything unchanged. Empty input returns ErrEmptyDocument without
// asking. Input with a UTF-16 or UTF-8 byte order mark is decoded
// accordingly.
func (b *Bridge) Open(r io.Reader, confirm ConfirmFunc) error {
	content, err := decode(r)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if content == "" {
		return ErrEmptyDocument
	}
	if !b.confirmDiscard(confirm) {
		return ErrOpenCanceled
	}
	b.LoadStyle(content)
	return nil
}

// OpenFile opens the document at path.
func (b *Bridge) OpenFile(path string, confirm ConfirmFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if err := b.Open(f, confirm); err != nil {
		return err
	}
	b.mu.Lock()
	b.path = path
	b.mu.Unlock()
	b.logger.Info("opened %s", path)
	return nil
}

// Init loads the initial document. With no path, a missing file or an
// empty one the buffer shows Placeholder instead; that is not an error.
func (b *Bridge) Init(path string) error {
	if path != "" {
		err := b.OpenFile(path, nil)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, os.ErrNotExist):
			b.logger.Warn("initial document %s not found", path)
		case errors.Is(err, ErrEmptyDocument):
			b.logger.Warn("initial document %s is empty", path)
		default:
			return err
		}
		b.mu.Lock()
		b.path = path
		b.mu.Unlock()
	}
	b.LoadStyle(Placeholder)
	return nil
}

// Reload replaces the buffer with the file at Path, keeping unsaved
// changes safe behind confirm.
func (b *Bridge) Reload(confirm ConfirmFunc) error {
	path := b.Path()
	if path == "" {
		return fmt.Errorf("reload: %w", os.ErrNotExist)
	}
	return b.OpenFile(path, confirm)
}

func (b *Bridge) confirmDiscard(confirm ConfirmFunc) bool {
	b.mu.Lock()
	saved, savedText := b.saved, b.savedText
	b.mu.Unlock()
	if saved {
		return true
	}
	if confirm == nil {
		return false
	}
	return confirm(Prompt{
		Message: "Discard unsaved changes?",
		Diff:    unsavedDiff(savedText, b.buf.Text()),
	})
}

func unsavedDiff(saved, current string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(saved),
		B:        difflib.SplitLines(current),
		FromFile: "saved",
		ToFile:   "buffer",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func decode(r io.Reader) (string, error) {
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
