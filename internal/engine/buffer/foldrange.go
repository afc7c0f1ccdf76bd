package buffer

import "github.com/dshills/scenepad/internal/engine/indent"

// FoldRange returns the last line of the indentation block headed by line n.
// The block spans every following line that is blank or indented deeper than
// the head, ending at the last such non-blank line. ok is false when n has no
// deeper children and so cannot be folded.
func (b *Buffer) FoldRange(n int) (end int, ok bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.foldEndLocked(n)
}

func (b *Buffer) foldEndLocked(n int) (int, bool) {
	if n < 0 || n >= len(b.lines) {
		return 0, false
	}
	head := b.lines[n].text
	if indent.IsBlank(head) {
		return 0, false
	}
	base := indent.Columns(head, b.unit)
	end := -1
	for i := n + 1; i < len(b.lines); i++ {
		t := b.lines[i].text
		if indent.IsBlank(t) {
			continue
		}
		if indent.Columns(t, b.unit) <= base {
			break
		}
		end = i
	}
	if end < 0 {
		return 0, false
	}
	return end, true
}

// Foldable reports whether line n has a fold range.
func (b *Buffer) Foldable(n int) bool {
	_, ok := b.FoldRange(n)
	return ok
}

// FoldState returns the visual state of line n.
func (b *Buffer) FoldState(n int) FoldState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hidden := b.hiddenLocked()
	if n < 0 || n >= len(hidden) || !hidden[n] {
		return Visible
	}
	return Folded
}

// FoldStates returns the visual state of every line.
func (b *Buffer) FoldStates() []FoldState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hidden := b.hiddenLocked()
	out := make([]FoldState, len(hidden))
	for i, h := range hidden {
		if h {
			out[i] = Folded
		}
	}
	return out
}

// VisibleLines returns the indices of lines that occupy a row.
func (b *Buffer) VisibleLines() []int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	hidden := b.hiddenLocked()
	out := make([]int, 0, len(hidden))
	for i, h := range hidden {
		if !h {
			out = append(out, i)
		}
	}
	return out
}

// hiddenLocked marks the interior lines of every collapsed fold.
// Nested ranges are contained in their parents, so one forward pass with a
// running end is enough.
func (b *Buffer) hiddenLocked() []bool {
	ends := b.foldEndsLocked()
	hidden := make([]bool, len(b.lines))
	until := -1
	for i := range b.lines {
		if i <= until {
			hidden[i] = true
		}
		if b.lines[i].collapsed && ends[i] > until {
			until = ends[i]
		}
	}
	return hidden
}

// foldEndsLocked computes the fold range end of every line in one pass, -1
// for lines that cannot fold. Open heads are kept on a stack of strictly
// increasing indentation; a line closes every head indented at least as far.
func (b *Buffer) foldEndsLocked() []int {
	ends := make([]int, len(b.lines))
	type head struct{ line, cols int }
	var stack []head
	last := -1
	closeTo := func(cols int) {
		for len(stack) > 0 && stack[len(stack)-1].cols >= cols {
			h := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if last > h.line {
				ends[h.line] = last
			}
		}
	}
	for i, l := range b.lines {
		ends[i] = -1
		if indent.IsBlank(l.text) {
			continue
		}
		cols := indent.Columns(l.text, b.unit)
		closeTo(cols)
		stack = append(stack, head{line: i, cols: cols})
		last = i
	}
	closeTo(-1)
	return ends
}

// FoldTx is the line structure handed to UpdateFolds. Collapsed is the only
// field the callback may change; flags on lines that cannot fold are ignored.
type FoldTx struct {
	Depths    []int
	Ends      []int // fold range end, -1 when the line cannot fold
	Blank     []bool
	Collapsed []bool
}

// Len returns the number of lines in the transaction.
func (tx *FoldTx) Len() int {
	return len(tx.Collapsed)
}

// UpdateFolds runs fn with the current fold structure under the buffer's
// write lock and stores the resulting collapsed flags. fn must not call
// back into the buffer.
func (b *Buffer) UpdateFolds(fn func(tx *FoldTx)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.lines)
	tx := &FoldTx{
		Depths:    make([]int, n),
		Ends:      b.foldEndsLocked(),
		Blank:     make([]bool, n),
		Collapsed: make([]bool, n),
	}
	for i, l := range b.lines {
		tx.Depths[i] = indent.Depth(l.text, b.unit)
		tx.Blank[i] = indent.IsBlank(l.text)
		tx.Collapsed[i] = l.collapsed
	}

	fn(tx)

	for i := range b.lines {
		b.lines[i].collapsed = tx.Collapsed[i] && tx.Ends[i] >= 0
	}
}
