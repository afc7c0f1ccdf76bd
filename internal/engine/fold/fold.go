// Package fold collapses and expands indentation blocks of a buffer.
//
// Fold ranges are never stored: each operation recomputes them from the
// current indentation structure and only the per-line collapsed flags are
// written back to the buffer. Buffer text is never modified.
//
// Every operation runs as a single buffer fold transaction, so a concurrent
// edit sees either the fold state before the call or after it.
package fold

import (
	"math"

	"github.com/dshills/scenepad/internal/engine/buffer"
)

// Range is an inclusive line span collapsed into one visual row.
// Start stays visible; Start+1 through End are hidden.
type Range struct {
	Start int
	End   int
}

// Engine applies fold operations to a buffer.
type Engine struct {
	buf *buffer.Buffer
}

// New creates a fold engine over buf.
func New(buf *buffer.Buffer) *Engine {
	return &Engine{buf: buf}
}

// UnfoldAll expands every fold.
func (e *Engine) UnfoldAll() {
	e.buf.UpdateFolds(unfoldAll)
}

// FoldByLevel expands everything, then collapses every foldable line whose
// depth is at least level.
func (e *Engine) FoldByLevel(level int) {
	e.buf.UpdateFolds(func(tx *buffer.FoldTx) {
		foldByLevel(tx, level)
	})
}

// FoldAllBut folds by level and then keeps the inclusive line range
// [from, to] visible together with the ancestors that enclose it.
// Arguments are clamped to the buffer; a reversed range is swapped.
func (e *Engine) FoldAllBut(from, to, level int) {
	e.buf.UpdateFolds(func(tx *buffer.FoldTx) {
		foldAllBut(tx, from, to, level)
	})
}

// Fold collapses the block headed by line. It returns false when the line
// cannot fold.
func (e *Engine) Fold(line int) bool {
	return e.set(line, true)
}

// Unfold expands the block headed by line. It returns false when the line
// cannot fold.
func (e *Engine) Unfold(line int) bool {
	return e.set(line, false)
}

// Toggle flips the fold headed by line. It returns false when the line
// cannot fold.
func (e *Engine) Toggle(line int) bool {
	ok := false
	e.buf.UpdateFolds(func(tx *buffer.FoldTx) {
		if line < 0 || line >= tx.Len() || tx.Ends[line] < 0 {
			return
		}
		tx.Collapsed[line] = !tx.Collapsed[line]
		ok = true
	})
	return ok
}

func (e *Engine) set(line int, collapsed bool) bool {
	ok := false
	e.buf.UpdateFolds(func(tx *buffer.FoldTx) {
		if line < 0 || line >= tx.Len() || tx.Ends[line] < 0 {
			return
		}
		tx.Collapsed[line] = collapsed
		ok = true
	})
	return ok
}

// Ranges returns the currently collapsed ranges in line order.
func (e *Engine) Ranges() []Range {
	var out []Range
	e.buf.UpdateFolds(func(tx *buffer.FoldTx) {
		for i, c := range tx.Collapsed {
			if c && tx.Ends[i] >= 0 {
				out = append(out, Range{Start: i, End: tx.Ends[i]})
			}
		}
	})
	return out
}

func unfoldAll(tx *buffer.FoldTx) {
	for i := range tx.Collapsed {
		tx.Collapsed[i] = false
	}
}

// foldByLevel scans from the last line to the first. Children are collapsed
// before their parents so each parent range is computed over fully
// evaluated descendants.
func foldByLevel(tx *buffer.FoldTx, level int) {
	unfoldAll(tx)
	for i := tx.Len() - 1; i >= 0; i-- {
		if tx.Ends[i] >= 0 && tx.Depths[i] >= level {
			tx.Collapsed[i] = true
		}
	}
}

func foldAllBut(tx *buffer.FoldTx, from, to, level int) {
	n := tx.Len()
	if n == 0 {
		return
	}
	if to < from {
		from, to = to, from
	}
	from = clamp(from, 0, n-1)
	to = clamp(to, 0, n-1)

	foldByLevel(tx, level)

	// Walk up from the line above the range. Lines on a strictly shrinking
	// indentation path are ancestors; the first line off that path is where
	// the preceding sibling blocks end.
	startOn := from - 1
	minDepth := math.MaxInt
	onBlock := true
	for i := from - 1; i >= 0; i-- {
		if tx.Blank[i] {
			continue
		}
		d := tx.Depths[i]
		if d == 0 {
			break
		}
		if d < minDepth {
			minDepth = d
		} else if onBlock {
			startOn = i
			onBlock = false
		}
	}

	// Only ancestors at or above the shallowest line of the range matter.
	floor := math.MaxInt
	for i := from; i <= to; i++ {
		if !tx.Blank[i] && tx.Depths[i] < floor {
			floor = tx.Depths[i]
		}
	}
	if floor == math.MaxInt {
		floor = 0
	}

	// Collapse preceding blocks back to the enclosing top-level line.
	for i := startOn; i >= 0; i-- {
		if tx.Depths[i] == 0 && !tx.Blank[i] {
			break
		}
		if tx.Ends[i] >= 0 && tx.Depths[i] <= floor {
			tx.Collapsed[i] = true
		}
	}

	// Restore the normal collapse below the range.
	for i := to; i < n; i++ {
		if tx.Ends[i] >= 0 && tx.Depths[i] >= level {
			tx.Collapsed[i] = true
		}
	}

	// Open every fold whose hidden interior overlaps the range.
	for i := 0; i < n; i++ {
		if tx.Collapsed[i] && i+1 <= to && tx.Ends[i] >= from {
			tx.Collapsed[i] = false
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
