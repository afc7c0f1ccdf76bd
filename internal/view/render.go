// Package view draws an editing session on a terminal and decodes key
// presses into editor commands.
package view

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

// Surface is the drawable part of a tcell.Screen.
type Surface interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
}

// Theme holds the styles the renderer uses.
type Theme struct {
	Text      tcell.Style
	Gutter    tcell.Style
	Fold      tcell.Style
	Highlight tcell.Style
	Selection tcell.Style
	Status    tcell.Style
}

// DefaultTheme returns the default styles.
func DefaultTheme() Theme {
	return Theme{
		Text:      tcell.StyleDefault,
		Gutter:    tcell.StyleDefault.Foreground(tcell.ColorGray),
		Fold:      tcell.StyleDefault.Foreground(tcell.ColorYellow),
		Highlight: tcell.StyleDefault.Background(tcell.ColorDarkSlateGray),
		Selection: tcell.StyleDefault.Reverse(true),
		Status:    tcell.StyleDefault.Reverse(true),
	}
}

// FoldMarker is drawn after the text of a collapsed line.
const FoldMarker = " ▸…"

// Renderer draws frames onto a surface.
type Renderer struct {
	surface Surface
	theme   Theme
}

// NewRenderer creates a renderer.
func NewRenderer(s Surface, theme Theme) *Renderer {
	return &Renderer{surface: s, theme: theme}
}

// TextRows returns the number of rows available for document lines.
func (r *Renderer) TextRows() int {
	_, h := r.surface.Size()
	return max(h-1, 0)
}

// Draw renders f and returns the screen position of the cursor, or
// ok=false when it is not on screen.
func (r *Renderer) Draw(f Frame) (cx, cy int, ok bool) {
	w, h := r.surface.Size()
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	tab := f.TabWidth
	if tab <= 0 {
		tab = 4
	}

	gutter := gutterWidth(f.Lines)
	rows := h - 1
	for y := 0; y < rows; y++ {
		r.clearRow(y, w, r.theme.Text)
		if y >= len(f.Lines) {
			continue
		}
		line := f.Lines[y]
		r.drawGutter(y, gutter, line.Number)
		x := r.drawText(y, gutter, w, tab, line)
		if line.Collapsed {
			r.drawString(x, y, w, FoldMarker, r.theme.Fold)
		}
		if y == f.CursorRow {
			cx, cy, ok = gutter+Column(line.Text, f.CursorCol, tab), y, true
		}
	}

	r.clearRow(h-1, w, r.theme.Status)
	r.drawString(0, h-1, w, f.Status, r.theme.Status)

	if ok && cx >= w {
		ok = false
	}
	return cx, cy, ok
}

func (r *Renderer) clearRow(y, w int, style tcell.Style) {
	for x := 0; x < w; x++ {
		r.surface.SetContent(x, y, ' ', nil, style)
	}
}

func gutterWidth(lines []Line) int {
	maxN := 1
	for _, l := range lines {
		maxN = max(maxN, l.Number+1)
	}
	return len(strconv.Itoa(maxN)) + 1
}

func (r *Renderer) drawGutter(y, width, n int) {
	label := strconv.Itoa(n + 1)
	r.drawString(width-1-len(label), y, width, label, r.theme.Gutter)
}

func (r *Renderer) drawText(y, x0, w, tab int, line Line) int {
	swatches := make(map[int]tcell.Color, len(line.Swatches))
	for _, s := range line.Swatches {
		cr, cg, cb := s.Color.Clamped().RGB255()
		swatches[s.Col] = tcell.NewRGBColor(int32(cr), int32(cg), int32(cb))
	}

	x := x0
	g := uniseg.NewGraphemes(line.Text)
	for g.Next() {
		from, to := g.Positions()
		style := r.theme.Text
		if line.Highlighted {
			style = r.theme.Highlight
		}
		if line.SelFrom >= 0 && from >= line.SelFrom && from < line.SelTo {
			style = r.theme.Selection
		}

		runes := g.Runes()
		if runes[0] == '\t' {
			next := x0 + ((x-x0)/tab+1)*tab
			for ; x < next && x < w; x++ {
				r.surface.SetContent(x, y, ' ', nil, style)
			}
		} else {
			if x < w {
				r.surface.SetContent(x, y, runes[0], runes[1:], style)
			}
			x += max(g.Width(), 1)
		}

		if c, ok := swatches[to]; ok && x < w {
			r.surface.SetContent(x, y, '■', nil, tcell.StyleDefault.Foreground(c))
			x++
		}
	}
	return x
}

func (r *Renderer) drawString(x, y, w int, s string, style tcell.Style) {
	g := uniseg.NewGraphemes(s)
	for g.Next() && x < w {
		runes := g.Runes()
		r.surface.SetContent(x, y, runes[0], runes[1:], style)
		x += max(g.Width(), 1)
	}
}

// Column returns the screen column of byte offset ch in text, expanding
// tabs and counting wide graphemes as two cells.
func Column(text string, ch, tab int) int {
	if tab <= 0 {
		tab = 4
	}
	col := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		from, _ := g.Positions()
		if from >= ch {
			break
		}
		if g.Runes()[0] == '\t' {
			col = (col/tab + 1) * tab
		} else {
			col += max(g.Width(), 1)
		}
	}
	return col
}
