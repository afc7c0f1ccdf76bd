package navigation

// HighlightRanges highlights every line named by specs ("5" or "3-7").
// Malformed specs are skipped. It returns the number of lines highlighted.
func (c *Controller) HighlightRanges(specs []string) int {
	last := c.buf.LineCount() - 1
	count := 0
	for _, spec := range specs {
		from, to, ok := ParseRange(spec)
		if !ok || from > last {
			continue
		}
		to = min(to, last)
		for i := from; i <= to; i++ {
			c.buf.SetHighlighted(i, true)
			count++
		}
	}
	return count
}

// HighlightedRanges returns the highlighted lines as 1-based directives,
// merging consecutive lines into spans.
func (c *Controller) HighlightedRanges() []string {
	lines := c.buf.HighlightedLines()
	var out []string
	for i := 0; i < len(lines); {
		j := i
		for j+1 < len(lines) && lines[j+1] == lines[j]+1 {
			j++
		}
		out = append(out, FormatRange(lines[i], lines[j]))
		i = j + 1
	}
	return out
}

// ClearHighlights removes every highlight.
func (c *Controller) ClearHighlights() {
	c.buf.ClearHighlights()
}
