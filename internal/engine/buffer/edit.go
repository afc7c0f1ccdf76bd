package buffer

import (
	"strings"

	"github.com/google/uuid"
)

// SetText replaces the whole buffer. Fold and highlight flags are cleared,
// the cursor returns to the origin and the selection is dropped.
func (b *Buffer) SetText(s string) Change {
	b.mu.Lock()
	old := len(b.lines)
	b.lines = splitLines(s)
	b.cursor = Point{}
	b.hasSel = false
	c := b.commitLocked(ChangeReset, 0, old, len(b.lines))
	b.mu.Unlock()

	b.emitMutate(c)
	return c
}

// InsertLines inserts texts before line at. at may equal LineCount to append.
func (b *Buffer) InsertLines(at int, texts ...string) (Change, error) {
	b.mu.Lock()
	if at < 0 || at > len(b.lines) {
		b.mu.Unlock()
		return Change{}, ErrLineOutOfRange
	}
	if len(texts) == 0 {
		b.mu.Unlock()
		return Change{}, nil
	}
	rows := make([]line, len(texts))
	for i, t := range texts {
		rows[i].text = t
	}
	b.lines = append(b.lines[:at], append(rows, b.lines[at:]...)...)
	if b.cursor.Line >= at {
		b.cursor.Line += len(texts)
	}
	c := b.commitLocked(ChangeInsert, at, 0, len(texts))
	b.mu.Unlock()

	b.emitMutate(c)
	return c, nil
}

// DeleteLines removes the inclusive line range [from, to].
// Deleting every line leaves a single empty line.
func (b *Buffer) DeleteLines(from, to int) (Change, error) {
	b.mu.Lock()
	if from < 0 || to >= len(b.lines) {
		b.mu.Unlock()
		return Change{}, ErrLineOutOfRange
	}
	if to < from {
		b.mu.Unlock()
		return Change{}, ErrRangeInvalid
	}
	n := to - from + 1
	b.lines = append(b.lines[:from], b.lines[to+1:]...)
	if len(b.lines) == 0 {
		b.lines = []line{{}}
	}
	switch {
	case b.cursor.Line > to:
		b.cursor.Line -= n
	case b.cursor.Line >= from:
		b.cursor = Point{Line: from}
	}
	b.cursor = b.clampLocked(b.cursor)
	b.hasSel = false
	c := b.commitLocked(ChangeDelete, from, n, 0)
	b.mu.Unlock()

	b.emitMutate(c)
	return c, nil
}

// ReplaceLine rewrites the text of line n, keeping its flags.
func (b *Buffer) ReplaceLine(n int, text string) (Change, error) {
	b.mu.Lock()
	if n < 0 || n >= len(b.lines) {
		b.mu.Unlock()
		return Change{}, ErrLineOutOfRange
	}
	b.lines[n].text = text
	b.cursor = b.clampLocked(b.cursor)
	c := b.commitLocked(ChangeReplace, n, 1, 1)
	b.mu.Unlock()

	b.emitMutate(c)
	return c, nil
}

// Insert inserts text at p. text may contain newlines; the line at p keeps
// its flags and any new lines start unflagged. The cursor moves to the end
// of the inserted text.
func (b *Buffer) Insert(p Point, text string) (Point, error) {
	b.mu.Lock()
	if !b.validLocked(p) {
		b.mu.Unlock()
		return Point{}, ErrPointInvalid
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	head := b.lines[p.Line].text[:p.Ch]
	tail := b.lines[p.Line].text[p.Ch:]
	parts := strings.Split(text, "\n")

	end := Point{Line: p.Line + len(parts) - 1}
	if len(parts) == 1 {
		b.lines[p.Line].text = head + text + tail
		end.Ch = p.Ch + len(text)
	} else {
		b.lines[p.Line].text = head + parts[0]
		rows := make([]line, len(parts)-1)
		for i, part := range parts[1:] {
			rows[i].text = part
		}
		last := len(rows) - 1
		end.Ch = len(rows[last].text)
		rows[last].text += tail
		at := p.Line + 1
		b.lines = append(b.lines[:at], append(rows, b.lines[at:]...)...)
	}
	b.cursor = end
	b.hasSel = false

	kind := ChangeReplace
	if len(parts) > 1 {
		kind = ChangeInsert
	}
	c := b.commitLocked(kind, p.Line, 1, len(parts))
	b.mu.Unlock()

	b.emitMutate(c)
	b.emitCursor(end)
	return end, nil
}

// Delete removes the text between from and to. The points may be given in
// either order. The cursor moves to the start of the removed range.
func (b *Buffer) Delete(from, to Point) error {
	b.mu.Lock()
	if !b.validLocked(from) || !b.validLocked(to) {
		b.mu.Unlock()
		return ErrPointInvalid
	}
	if to.Before(from) {
		from, to = to, from
	}
	if from == to {
		b.mu.Unlock()
		return nil
	}
	merged := b.lines[from.Line].text[:from.Ch] + b.lines[to.Line].text[to.Ch:]
	b.lines[from.Line].text = merged
	removed := to.Line - from.Line
	if removed > 0 {
		b.lines = append(b.lines[:from.Line+1], b.lines[to.Line+1:]...)
	}
	b.cursor = from
	b.hasSel = false

	kind := ChangeReplace
	if removed > 0 {
		kind = ChangeDelete
	}
	c := b.commitLocked(kind, from.Line, removed+1, 1)
	b.mu.Unlock()

	b.emitMutate(c)
	b.emitCursor(from)
	return nil
}

func (b *Buffer) validLocked(p Point) bool {
	return p.Line >= 0 && p.Line < len(b.lines) && p.Ch >= 0 && p.Ch <= len(b.lines[p.Line].text)
}

// commitLocked stamps a new revision and builds the change record.
func (b *Buffer) commitLocked(kind ChangeKind, start, oldLines, newLines int) Change {
	b.revision = uuid.NewString()
	return Change{
		Kind:      kind,
		StartLine: start,
		OldLines:  oldLines,
		NewLines:  newLines,
		Revision:  b.revision,
	}
}
