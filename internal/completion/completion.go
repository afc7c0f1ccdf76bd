// Package completion suggests mapping keys for the line under the cursor.
//
// A suggestion is a key defined in a block comparable to the cursor's own
// block and missing from it. Comparable blocks are the siblings of the
// cursor's parent and any block keyed like the parent. With two layers
// defined and the cursor inside a third, the keys the other layers use are
// offered.
package completion

import (
	"regexp"
	"sort"
	"sync"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/engine/indent"
)

var keyPattern = regexp.MustCompile(`^[ \t]*([A-Za-z0-9_.\-]+)[ \t]*:(?:[ \t]|$)`)

// Key returns the mapping key defined on line, if any.
func Key(line string) (string, bool) {
	if indent.IsCommented(line) {
		return "", false
	}
	m := keyPattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Suggest returns the sorted keys to offer at cursor.
func Suggest(lines []string, cursor buffer.Point, unit int) []string {
	if cursor.Line < 0 || cursor.Line >= len(lines) {
		return nil
	}

	col := cursorColumn(lines, cursor, unit)
	parent := enclosing(lines, cursor.Line, col, unit)
	if parent < 0 {
		return nil
	}
	parentKey, ok := Key(lines[parent])
	if !ok {
		return nil
	}
	parentCol := indent.Columns(lines[parent], unit)

	present := childKeys(lines, parent, parentCol, col, unit)
	offset := col - parentCol
	candidates := make(map[string]struct{})
	add := func(head, headCol int) {
		for k := range childKeys(lines, head, headCol, headCol+offset, unit) {
			candidates[k] = struct{}{}
		}
	}

	// Siblings of the parent inside the grandparent block.
	start, end := 0, len(lines)
	if gp := enclosing(lines, parent, parentCol, unit); gp >= 0 {
		gpCol := indent.Columns(lines[gp], unit)
		start = gp + 1
		for end = start; end < len(lines); end++ {
			if !indent.IsBlank(lines[end]) && indent.Columns(lines[end], unit) <= gpCol {
				break
			}
		}
	}
	for i := start; i < end; i++ {
		if i != parent && !indent.IsBlank(lines[i]) && indent.Columns(lines[i], unit) == parentCol {
			add(i, parentCol)
		}
	}

	// Blocks elsewhere with the same key as the parent.
	for i, l := range lines {
		if i == parent || indent.IsBlank(l) {
			continue
		}
		if k, ok := Key(l); ok && k == parentKey {
			add(i, indent.Columns(l, unit))
		}
	}

	var out []string
	for k := range candidates {
		if _, ok := present[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// enclosing returns the nearest non-blank line above n indented less than
// col, or -1.
func enclosing(lines []string, n, col, unit int) int {
	for i := n - 1; i >= 0; i-- {
		if indent.IsBlank(lines[i]) {
			continue
		}
		if indent.Columns(lines[i], unit) < col {
			return i
		}
	}
	return -1
}

// cursorColumn is the indentation the cursor line sits at. On a blank line
// the cursor position itself decides.
func cursorColumn(lines []string, cursor buffer.Point, unit int) int {
	line := lines[cursor.Line]
	if indent.IsBlank(line) {
		return min(cursor.Ch, len(line))
	}
	return indent.Columns(line, unit)
}

// childKeys collects keys at column col inside the block headed by head.
func childKeys(lines []string, head, headCol, col, unit int) map[string]struct{} {
	keys := make(map[string]struct{})
	for i := head + 1; i < len(lines); i++ {
		l := lines[i]
		if indent.IsBlank(l) {
			continue
		}
		c := indent.Columns(l, unit)
		if c <= headCol {
			break
		}
		if c != col {
			continue
		}
		if k, ok := Key(l); ok {
			keys[k] = struct{}{}
		}
	}
	return keys
}

// Model holds the latest suggestions for a buffer.
//
// Thread-safety: All methods are safe for concurrent use.
type Model struct {
	buf *buffer.Buffer

	mu      sync.RWMutex
	cursor  buffer.Point
	current []string
}

// NewModel creates a model over buf.
func NewModel(buf *buffer.Buffer) *Model {
	return &Model{buf: buf}
}

// Update recomputes suggestions for cursor. It has the shape the
// pipeline's completion channel expects.
func (m *Model) Update(cursor buffer.Point) {
	keys := Suggest(m.buf.Lines(), cursor, m.buf.IndentUnit())
	m.mu.Lock()
	m.cursor = cursor
	m.current = keys
	m.mu.Unlock()
}

// Suggestions returns the suggestions computed by the last Update.
func (m *Model) Suggestions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.current...)
}

// Cursor returns the cursor the last Update ran for.
func (m *Model) Cursor() buffer.Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cursor
}
