package buffer

import "fmt"

// Point represents a line and column position.
// Both Line and Ch are 0-indexed; Ch is a byte offset within the line.
type Point struct {
	Line int
	Ch   int
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Ch)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Ch < other.Ch:
		return -1
	case p.Ch > other.Ch:
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// Selection is an active range in document order.
// From never comes after To.
type Selection struct {
	From Point
	To   Point
}

// NewSelection creates a selection spanning a and b in either order.
func NewSelection(a, b Point) Selection {
	if b.Before(a) {
		a, b = b, a
	}
	return Selection{From: a, To: b}
}

// IsEmpty returns true if the selection has no extent.
func (s Selection) IsEmpty() bool {
	return s.From == s.To
}

// ContainsLine reports whether line lies within the selection's line span.
func (s Selection) ContainsLine(line int) bool {
	return line >= s.From.Line && line <= s.To.Line
}

// String returns a human-readable representation of the selection.
func (s Selection) String() string {
	return fmt.Sprintf("%s-%s", s.From, s.To)
}

// FoldState is the visual state of a single line.
type FoldState uint8

const (
	// Visible lines occupy a row in the view.
	Visible FoldState = iota
	// Folded lines lie inside a collapsed range and occupy no row.
	Folded
)

// String returns the string representation of the fold state.
func (s FoldState) String() string {
	switch s {
	case Visible:
		return "visible"
	case Folded:
		return "folded"
	default:
		return "unknown"
	}
}
