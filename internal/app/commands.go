package app

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/view"
	"github.com/dshills/scenepad/internal/widget"
)

// Execute applies one decoded key command. ActionQuit returns ErrQuit;
// other failures are also shown in the status line.
func (s *Session) Execute(cmd view.Command) error {
	var err error
	switch cmd.Action {
	case view.ActionNone:
		return nil
	case view.ActionInsert:
		_, err = s.buf.Insert(s.buf.Cursor(), string(cmd.Rune))
	case view.ActionNewline:
		err = s.newline()
	case view.ActionIndent:
		_, err = s.buf.Insert(s.buf.Cursor(), strings.Repeat(" ", s.buf.IndentUnit()))
	case view.ActionBackspace:
		err = s.backspace()
	case view.ActionUp:
		s.moveRows(-1)
	case view.ActionDown:
		s.moveRows(1)
	case view.ActionPageUp:
		s.moveRows(-s.view.Rows())
	case view.ActionPageDown:
		s.moveRows(s.view.Rows())
	case view.ActionLeft:
		s.moveLeft()
	case view.ActionRight:
		s.moveRight()
	case view.ActionHome:
		s.buf.SetCursor(buffer.Point{Line: s.buf.Cursor().Line})
	case view.ActionEnd:
		line := s.buf.Cursor().Line
		s.buf.SetCursor(buffer.Point{Line: line, Ch: len(s.buf.LineText(line))})
	case view.ActionUnfoldAll:
		s.nav.ClearFoldLevel()
		s.folds.UnfoldAll()
	case view.ActionFoldLevel:
		s.nav.SetFoldLevel(cmd.Level)
		s.folds.FoldByLevel(cmd.Level)
		s.revealCursor()
	case view.ActionToggleFold:
		s.folds.Toggle(s.buf.Cursor().Line)
	case view.ActionSave:
		err = s.Save()
	case view.ActionReload:
		err = s.Reload()
	case view.ActionQuit:
		return ErrQuit
	}

	s.metrics.RecordCommand(err)
	s.follow()
	if err != nil {
		s.setMessage(err.Error())
		s.logger.Debug("%s: %v", cmd.Action, err)
	}
	return err
}

// newline splits the line at the cursor and carries its indentation.
func (s *Session) newline() error {
	cur := s.buf.Cursor()
	text := s.buf.LineText(cur.Line)
	indent := text[:len(text)-len(strings.TrimLeft(text, " \t"))]
	if len(indent) > cur.Ch {
		indent = indent[:cur.Ch]
	}
	_, err := s.buf.Insert(cur, "\n"+indent)
	return err
}

func (s *Session) backspace() error {
	cur := s.buf.Cursor()
	if cur.Ch > 0 {
		_, size := utf8.DecodeLastRuneInString(s.buf.LineText(cur.Line)[:cur.Ch])
		return s.buf.Delete(buffer.Point{Line: cur.Line, Ch: cur.Ch - size}, cur)
	}
	if cur.Line == 0 {
		return nil
	}
	prev := cur.Line - 1
	return s.buf.Delete(buffer.Point{Line: prev, Ch: len(s.buf.LineText(prev))}, cur)
}

// moveRows moves the cursor by delta visible rows, keeping its column
// where the target line allows.
func (s *Session) moveRows(delta int) {
	visible := s.buf.VisibleLines()
	if len(visible) == 0 {
		return
	}
	cur := s.buf.Cursor()
	row := max(0, min(s.nav.RowOf(cur.Line)+delta, len(visible)-1))
	line := visible[row]
	s.buf.SetCursor(buffer.Point{Line: line, Ch: snap(s.buf.LineText(line), cur.Ch)})
}

func (s *Session) moveLeft() {
	cur := s.buf.Cursor()
	if cur.Ch > 0 {
		_, size := utf8.DecodeLastRuneInString(s.buf.LineText(cur.Line)[:cur.Ch])
		s.buf.SetCursor(buffer.Point{Line: cur.Line, Ch: cur.Ch - size})
		return
	}
	row := s.nav.RowOf(cur.Line)
	if line := s.nav.LineAtRow(row - 1); line >= 0 && row > 0 {
		s.buf.SetCursor(buffer.Point{Line: line, Ch: len(s.buf.LineText(line))})
	}
}

func (s *Session) moveRight() {
	cur := s.buf.Cursor()
	text := s.buf.LineText(cur.Line)
	if cur.Ch < len(text) {
		_, size := utf8.DecodeRuneInString(text[cur.Ch:])
		s.buf.SetCursor(buffer.Point{Line: cur.Line, Ch: cur.Ch + size})
		return
	}
	if line := s.nav.LineAtRow(s.nav.RowOf(cur.Line) + 1); line >= 0 {
		s.buf.SetCursor(buffer.Point{Line: line})
	}
}

// snap clamps ch into text and backs it off to a rune boundary.
func snap(text string, ch int) int {
	ch = min(ch, len(text))
	for ch > 0 && ch < len(text) && !utf8.RuneStart(text[ch]) {
		ch--
	}
	return ch
}

// revealCursor moves a cursor hidden inside a collapsed range to the head
// of that range.
func (s *Session) revealCursor() {
	cur := s.buf.Cursor()
	if s.buf.FoldState(cur.Line) != buffer.Folded {
		return
	}
	if head := s.nav.LineAtRow(s.nav.RowOf(cur.Line)); head >= 0 {
		s.buf.SetCursor(buffer.Point{Line: head})
	}
}

// follow scrolls so the cursor row is on screen.
func (s *Session) follow() {
	s.view.EnsureVisible(s.nav.RowOf(s.buf.Cursor().Line))
}

// Resize sets the number of text rows the front end can show.
func (s *Session) Resize(rows int) {
	s.view.SetRows(rows)
	s.follow()
}

// Frame builds the view of the rows currently scrolled into the viewport.
func (s *Session) Frame() view.Frame {
	visible := s.buf.VisibleLines()
	top := min(s.view.TopRow(), max(len(visible)-1, 0))
	bottom := min(top+s.view.Rows(), len(visible))
	cur := s.buf.Cursor()
	sel, hasSel := s.buf.Selection()
	hasSel = hasSel && !sel.IsEmpty()
	swatches := s.swatches()

	f := view.Frame{
		CursorRow: -1,
		CursorCol: cur.Ch,
		TabWidth:  s.buf.IndentUnit(),
		Status:    s.Status(),
	}
	for row := top; row < bottom; row++ {
		n := visible[row]
		text := s.buf.LineText(n)
		line := view.Line{
			Number:      n,
			Text:        text,
			Collapsed:   s.buf.Collapsed(n),
			Highlighted: s.buf.Highlighted(n),
			SelFrom:     -1,
			Swatches:    swatches[n],
		}
		if hasSel && sel.ContainsLine(n) {
			line.SelFrom, line.SelTo = 0, len(text)
			if n == sel.From.Line {
				line.SelFrom = sel.From.Ch
			}
			if n == sel.To.Line {
				line.SelTo = sel.To.Ch
			}
		}
		if n == cur.Line {
			f.CursorRow = len(f.Lines)
		}
		f.Lines = append(f.Lines, line)
	}
	return f
}

// swatches returns color samples by line. Links from an older revision
// are dropped since their offsets may no longer match.
func (s *Session) swatches() map[int][]view.Swatch {
	if s.widgets.Revision() != s.buf.Revision() {
		return nil
	}
	out := make(map[int][]view.Swatch)
	for _, l := range s.widgets.Links() {
		if l.Kind != widget.KindColor {
			continue
		}
		out[l.Line] = append(out[l.Line], view.Swatch{Col: l.End, Color: l.Color})
	}
	return out
}
