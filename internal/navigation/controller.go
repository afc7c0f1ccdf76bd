// Package navigation translates line directives into buffer selections and
// viewport scrolls, revealing folded content on the way.
package navigation

import (
	"sync"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/engine/fold"
)

// Controller owns the selection and scroll behavior of one session.
type Controller struct {
	buf   *buffer.Buffer
	folds *fold.Engine
	view  *Viewport

	mu           sync.RWMutex
	foldLevel    int
	hasFoldLevel bool
}

// NewController creates a controller over buf. folds and view must be
// bound to the same buffer.
func NewController(buf *buffer.Buffer, folds *fold.Engine, view *Viewport) *Controller {
	return &Controller{buf: buf, folds: folds, view: view}
}

// SetFoldLevel activates a fold level. While active, SelectLines folds
// everything but the target range.
func (c *Controller) SetFoldLevel(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.foldLevel = level
	c.hasFoldLevel = true
}

// ClearFoldLevel deactivates the fold level.
func (c *Controller) ClearFoldLevel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasFoldLevel = false
}

// FoldLevel returns the active fold level.
func (c *Controller) FoldLevel() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.foldLevel, c.hasFoldLevel
}

// Viewport returns the controller's viewport.
func (c *Controller) Viewport() *Viewport {
	return c.view
}

// SelectLines selects the lines named by spec ("5" or "3-7", 1-based).
// The selection runs from the start of the first line to the end of the
// last one and the view scrolls so the first line is at the top. A
// malformed spec is a no-op and returns ok=false.
func (c *Controller) SelectLines(spec string) (sel buffer.Selection, ok bool) {
	from, to, ok := ParseRange(spec)
	if !ok {
		return buffer.Selection{}, false
	}
	last := c.buf.LineCount() - 1
	from = min(from, last)
	to = min(to, last)

	if level, active := c.FoldLevel(); active {
		c.folds.FoldAllBut(from, to, level)
	}

	sel = c.buf.SetSelection(
		buffer.Point{Line: from, Ch: 0},
		buffer.Point{Line: to, Ch: len(c.buf.LineText(to))},
	)
	c.scrollToLine(from)
	return sel, true
}

// JumpToLine scrolls so the 1-based line n is at the top of the view.
// The selection is left unchanged. Out of range lines return false.
func (c *Controller) JumpToLine(n int) bool {
	line := n - 1
	if line < 0 || line >= c.buf.LineCount() {
		return false
	}
	c.scrollToLine(line)
	return true
}

// Offset returns the pixel offset of the 1-based line n from the top of
// the document.
func (c *Controller) Offset(n int) int {
	return c.RowOf(n-1) * c.view.LineHeight()
}

// RowOf returns the visual row of the 0-based line. Folded lines take no
// rows; a hidden line reports the row of the fold that hides it.
func (c *Controller) RowOf(line int) int {
	states := c.buf.FoldStates()
	if line >= len(states) {
		line = len(states) - 1
	}
	row := 0
	for i := 0; i < line; i++ {
		if states[i] == buffer.Visible {
			row++
		}
	}
	if line >= 0 && states[line] == buffer.Folded && row > 0 {
		row--
	}
	return row
}

// LineAtRow returns the 0-based line shown at a visual row, or -1.
func (c *Controller) LineAtRow(row int) int {
	visible := c.buf.VisibleLines()
	if row < 0 || row >= len(visible) {
		return -1
	}
	return visible[row]
}

func (c *Controller) scrollToLine(line int) {
	c.view.ScrollToRow(c.RowOf(line))
}
