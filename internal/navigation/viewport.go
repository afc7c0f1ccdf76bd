package navigation

import "sync"

// Viewport is the scroll window over the visible rows of a buffer.
// Offsets are measured in pixels; a row is LineHeight pixels tall.
type Viewport struct {
	mu         sync.RWMutex
	lineHeight int
	rows       int
	top        int
}

// NewViewport creates a viewport showing rows rows of lineHeight pixels.
// Both values are clamped to a minimum of 1.
func NewViewport(lineHeight, rows int) *Viewport {
	if lineHeight < 1 {
		lineHeight = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Viewport{lineHeight: lineHeight, rows: rows}
}

// LineHeight returns the height of one row in pixels.
func (v *Viewport) LineHeight() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lineHeight
}

// Rows returns how many rows fit in the viewport.
func (v *Viewport) Rows() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rows
}

// SetRows resizes the viewport.
func (v *Viewport) SetRows(rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if rows < 1 {
		rows = 1
	}
	v.rows = rows
}

// Top returns the scroll offset in pixels.
func (v *Viewport) Top() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.top
}

// TopRow returns the first visible row.
func (v *Viewport) TopRow() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.top / v.lineHeight
}

// ScrollTo sets the scroll offset in pixels. Negative offsets clamp to 0.
func (v *Viewport) ScrollTo(top int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if top < 0 {
		top = 0
	}
	v.top = top
}

// ScrollToRow scrolls so row is the first visible row.
func (v *Viewport) ScrollToRow(row int) {
	v.ScrollTo(row * v.LineHeight())
}

// EnsureVisible scrolls the minimum amount needed to show row.
func (v *Viewport) EnsureVisible(row int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	first := v.top / v.lineHeight
	switch {
	case row < first:
		v.top = row * v.lineHeight
	case row >= first+v.rows:
		v.top = (row - v.rows + 1) * v.lineHeight
	}
	if v.top < 0 {
		v.top = 0
	}
}
