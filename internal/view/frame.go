package view

import (
	"github.com/lucasb-eyer/go-colorful"
)

// Line is one visible row of a frame.
type Line struct {
	// Number is the 0-based buffer line.
	Number int
	Text   string
	// Collapsed marks the head of a folded range.
	Collapsed   bool
	Highlighted bool
	// SelFrom and SelTo are the selected byte span; SelFrom < 0 means none.
	SelFrom, SelTo int
	// Swatches are colors shown next to color values.
	Swatches []Swatch
}

// Swatch places a color sample after byte offset Col.
type Swatch struct {
	Col   int
	Color colorful.Color
}

// Frame is everything the renderer draws.
type Frame struct {
	Lines []Line
	// CursorRow indexes Lines; negative hides the cursor.
	CursorRow int
	// CursorCol is a byte offset into the cursor line.
	CursorCol int
	// TabWidth expands tabs.
	TabWidth int
	// Status is shown on the bottom row.
	Status string
}
