package buffer

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/scenepad/internal/engine/indent"
)

// Errors returned by buffer operations.
var (
	ErrLineOutOfRange = errors.New("line out of range")
	ErrPointInvalid   = errors.New("invalid point")
	ErrRangeInvalid   = errors.New("invalid range")
)

// line is one buffer row with its visual flags.
type line struct {
	text        string
	collapsed   bool
	highlighted bool
}

// Buffer is an ordered sequence of lines with fold, highlight, cursor and
// selection state. All methods are safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	lines    []line
	cursor   Point
	sel      Selection
	hasSel   bool
	revision string
	unit     int

	mutateSubs subscribers[MutateFunc]
	cursorSubs subscribers[CursorFunc]
}

// New creates a buffer holding a single empty line.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		lines:    []line{{}},
		revision: uuid.NewString(),
		unit:     defaultUnit,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromString creates a buffer with initial content.
func NewFromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.lines = splitLines(s)
	return b
}

// splitLines normalizes line endings to LF and splits s into rows.
func splitLines(s string) []line {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	parts := strings.Split(s, "\n")
	lines := make([]line, len(parts))
	for i, p := range parts {
		lines[i].text = p
	}
	return lines
}

// Read Operations

// Text returns the full buffer content joined with "\n".
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.textLocked()
}

func (b *Buffer) textLocked() string {
	var sb strings.Builder
	for i, l := range b.lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.text)
	}
	return sb.String()
}

// Snapshot returns an immutable copy of the current content.
func (b *Buffer) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Snapshot{
		text:     b.textLocked(),
		revision: b.revision,
		lines:    len(b.lines),
	}
}

// LineCount returns the number of lines. It is never less than 1.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// LineText returns the text of line n, or "" when n is out of range.
func (b *Buffer) LineText(n int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 || n >= len(b.lines) {
		return ""
	}
	return b.lines[n].text
}

// Lines returns a copy of every line's text.
func (b *Buffer) Lines() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.text
	}
	return out
}

// Depth returns the indentation depth of line n.
func (b *Buffer) Depth(n int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 || n >= len(b.lines) {
		return 0
	}
	return indent.Depth(b.lines[n].text, b.unit)
}

// IndentUnit returns the indentation unit width in columns.
func (b *Buffer) IndentUnit() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unit
}

// Revision returns the identifier of the current content revision.
func (b *Buffer) Revision() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revision
}

// Cursor and Selection

// Cursor returns the cursor position.
func (b *Buffer) Cursor() Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// SetCursor moves the cursor and clears the selection.
// The point is clamped into the buffer.
func (b *Buffer) SetCursor(p Point) Point {
	b.mu.Lock()
	p = b.clampLocked(p)
	b.cursor = p
	b.hasSel = false
	b.mu.Unlock()

	b.emitCursor(p)
	return p
}

// Selection returns the active selection, if any.
func (b *Buffer) Selection() (Selection, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sel, b.hasSel
}

// SetSelection selects the range between a and b in document order and
// places the cursor at its end. Points are clamped into the buffer.
func (b *Buffer) SetSelection(from, to Point) Selection {
	b.mu.Lock()
	sel := NewSelection(b.clampLocked(from), b.clampLocked(to))
	b.sel = sel
	b.hasSel = true
	b.cursor = sel.To
	b.mu.Unlock()

	b.emitCursor(sel.To)
	return sel
}

// ClearSelection drops the active selection, keeping the cursor.
func (b *Buffer) ClearSelection() {
	b.mu.Lock()
	b.hasSel = false
	b.mu.Unlock()
}

func (b *Buffer) clampLocked(p Point) Point {
	if p.Line < 0 {
		p.Line = 0
	}
	if p.Line >= len(b.lines) {
		p.Line = len(b.lines) - 1
	}
	if p.Ch < 0 {
		p.Ch = 0
	}
	if n := len(b.lines[p.Line].text); p.Ch > n {
		p.Ch = n
	}
	return p
}

// Visual Flags

// Collapsed reports whether line n heads a collapsed fold.
func (b *Buffer) Collapsed(n int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 || n >= len(b.lines) {
		return false
	}
	return b.lines[n].collapsed
}

// SetCollapsed sets the collapsed flag of line n.
// Collapsing a line that has no fold range is a no-op and returns false.
func (b *Buffer) SetCollapsed(n int, collapsed bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.lines) {
		return false
	}
	if collapsed {
		if _, ok := b.foldEndLocked(n); !ok {
			return false
		}
	}
	b.lines[n].collapsed = collapsed
	return true
}

// ClearCollapsed expands every fold.
func (b *Buffer) ClearCollapsed() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i].collapsed = false
	}
}

// CollapsedLines returns the heads of all collapsed folds in order.
func (b *Buffer) CollapsedLines() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []int
	for i, l := range b.lines {
		if l.collapsed {
			out = append(out, i)
		}
	}
	return out
}

// Highlighted reports whether line n is highlighted.
func (b *Buffer) Highlighted(n int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n < 0 || n >= len(b.lines) {
		return false
	}
	return b.lines[n].highlighted
}

// SetHighlighted sets the highlight flag of line n.
func (b *Buffer) SetHighlighted(n int, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n >= len(b.lines) {
		return
	}
	b.lines[n].highlighted = on
}

// HighlightedLines returns every highlighted line in order.
func (b *Buffer) HighlightedLines() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []int
	for i, l := range b.lines {
		if l.highlighted {
			out = append(out, i)
		}
	}
	return out
}

// ClearHighlights removes every highlight.
func (b *Buffer) ClearHighlights() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i].highlighted = false
	}
}
