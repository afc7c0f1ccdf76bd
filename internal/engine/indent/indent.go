// Package indent classifies single lines of an indentation-structured
// document. The rest of the engine reasons about structure through these
// primitives instead of parsing the style grammar.
package indent

import "strings"

// DefaultUnit is the indentation unit width in columns.
const DefaultUnit = 4

// Columns returns the width of the leading whitespace of line.
// A space counts one column; a tab advances to the next multiple of unit.
func Columns(line string, unit int) int {
	if unit <= 0 {
		unit = DefaultUnit
	}
	col := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			col++
		case '\t':
			col += unit - col%unit
		default:
			return col
		}
	}
	return col
}

// Depth returns the indentation depth of line in units of unit columns.
// Blank lines have depth 0.
func Depth(line string, unit int) int {
	if unit <= 0 {
		unit = DefaultUnit
	}
	if IsBlank(line) {
		return 0
	}
	return Columns(line, unit) / unit
}

// IsBlank reports whether line is empty or whitespace only.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// IsCommented reports whether line starts with "#" or "//" after its
// leading whitespace.
func IsCommented(line string) bool {
	s := strings.TrimLeft(line, " \t")
	return strings.HasPrefix(s, "#") || strings.HasPrefix(s, "//")
}
