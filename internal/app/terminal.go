package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/scenepad/internal/document"
	"github.com/dshills/scenepad/internal/view"
)

// Run drives the session from screen until the user quits or ctx ends.
// The session must be started. Run initializes and finalizes screen.
func (s *Session) Run(ctx context.Context, screen tcell.Screen) error {
	if !s.Running() {
		return ErrNotRunning
	}
	if err := screen.Init(); err != nil {
		return NewComponentError("view", "init screen", err)
	}
	defer screen.Fini()

	r := view.NewRenderer(screen, view.DefaultTheme())
	s.SetRedraw(func() { _ = screen.PostEvent(tcell.NewEventInterrupt(nil)) })
	defer s.SetRedraw(nil)

	prev := s.confirmFunc()
	s.SetConfirm(func(p document.Prompt) bool { return s.prompt(screen, r, p) })
	defer s.SetConfirm(prev)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = screen.PostEvent(tcell.NewEventInterrupt(ctx.Err()))
		case <-done:
		}
	}()

	for {
		s.draw(screen, r, s.Frame())

		switch ev := screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventInterrupt:
			if ctx.Err() != nil {
				return nil
			}
		case *tcell.EventKey:
			err := s.Execute(view.Decode(ev))
			if errors.Is(err, ErrQuit) {
				return nil
			}
		}
	}
}

func (s *Session) draw(screen tcell.Screen, r *view.Renderer, f view.Frame) {
	start := time.Now()
	if rows := r.TextRows(); rows != s.view.Rows() {
		s.Resize(rows)
		f = s.Frame()
	}
	if cx, cy, ok := r.Draw(f); ok {
		screen.ShowCursor(cx, cy)
	} else {
		screen.HideCursor()
	}
	screen.Show()
	s.metrics.RecordFrame(time.Since(start))
}

// prompt asks a yes/no question on the status line and waits for the
// answer. Anything but y declines.
func (s *Session) prompt(screen tcell.Screen, r *view.Renderer, p document.Prompt) bool {
	added, removed := diffStat(p.Diff)
	for {
		f := s.Frame()
		f.Status = fmt.Sprintf("%s (+%d -%d lines) [y/N]", p.Message, added, removed)
		s.draw(screen, r, f)

		switch ev := screen.PollEvent().(type) {
		case nil:
			return false
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			return ev.Key() == tcell.KeyRune && (ev.Rune() == 'y' || ev.Rune() == 'Y')
		}
	}
}

// diffStat counts the changed lines of a unified diff.
func diffStat(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
