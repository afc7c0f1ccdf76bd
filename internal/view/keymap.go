package view

import (
	"github.com/gdamore/tcell/v2"
)

// Action is an editor command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionInsert
	ActionNewline
	ActionIndent
	ActionBackspace
	ActionUp
	ActionDown
	ActionLeft
	ActionRight
	ActionPageUp
	ActionPageDown
	ActionHome
	ActionEnd
	ActionUnfoldAll
	ActionFoldLevel
	ActionToggleFold
	ActionSave
	ActionReload
	ActionQuit
)

var actionNames = map[Action]string{
	ActionNone:       "none",
	ActionInsert:     "insert",
	ActionNewline:    "newline",
	ActionIndent:     "indent",
	ActionBackspace:  "backspace",
	ActionUp:         "up",
	ActionDown:       "down",
	ActionLeft:       "left",
	ActionRight:      "right",
	ActionPageUp:     "page-up",
	ActionPageDown:   "page-down",
	ActionHome:       "home",
	ActionEnd:        "end",
	ActionUnfoldAll:  "unfold-all",
	ActionFoldLevel:  "fold-level",
	ActionToggleFold: "toggle-fold",
	ActionSave:       "save",
	ActionReload:     "reload",
	ActionQuit:       "quit",
}

// String returns the action name.
func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Command is a decoded key press.
type Command struct {
	Action Action
	// Rune is the character for ActionInsert.
	Rune rune
	// Level is the fold level for ActionFoldLevel.
	Level int
}

var specialKeys = map[tcell.Key]Action{
	tcell.KeyEnter:      ActionNewline,
	tcell.KeyTab:        ActionIndent,
	tcell.KeyBackspace:  ActionBackspace,
	tcell.KeyBackspace2: ActionBackspace,
	tcell.KeyUp:         ActionUp,
	tcell.KeyDown:       ActionDown,
	tcell.KeyLeft:       ActionLeft,
	tcell.KeyRight:      ActionRight,
	tcell.KeyPgUp:       ActionPageUp,
	tcell.KeyPgDn:       ActionPageDown,
	tcell.KeyHome:       ActionHome,
	tcell.KeyEnd:        ActionEnd,
	tcell.KeyCtrlS:      ActionSave,
	tcell.KeyCtrlR:      ActionReload,
	tcell.KeyCtrlQ:      ActionQuit,
}

// ctrlRunes covers terminals that report Ctrl-letter as a rune with a
// modifier instead of a control key.
var ctrlRunes = map[rune]Action{
	's': ActionSave,
	'r': ActionReload,
	'q': ActionQuit,
}

// Decode maps a key event to a command.
//
// Ctrl-0 unfolds everything and Ctrl-1 through Ctrl-8 fold to levels 0
// through 7. Terminals that cannot report Ctrl with digits get the same
// bindings on Alt. Alt-F toggles the fold at the cursor.
func Decode(ev *tcell.EventKey) Command {
	if ev.Key() != tcell.KeyRune {
		if a, ok := specialKeys[ev.Key()]; ok {
			return Command{Action: a}
		}
		return Command{}
	}

	r := ev.Rune()
	mods := ev.Modifiers()
	if mods&(tcell.ModCtrl|tcell.ModAlt) != 0 {
		switch {
		case r == '0':
			return Command{Action: ActionUnfoldAll}
		case r >= '1' && r <= '8':
			return Command{Action: ActionFoldLevel, Level: int(r - '1')}
		case mods&tcell.ModAlt != 0 && (r == 'f' || r == 'F'):
			return Command{Action: ActionToggleFold}
		case mods&tcell.ModCtrl != 0:
			if a, ok := ctrlRunes[r]; ok {
				return Command{Action: a}
			}
		}
		return Command{}
	}
	return Command{Action: ActionInsert, Rune: r}
}
