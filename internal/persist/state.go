package persist

import (
	"errors"
	"fmt"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// SessionKey is the key the editor session is stored under.
const SessionKey = "last-scene"

// ErrInvalidState is returned when a stored document is not valid JSON.
var ErrInvalidState = errors.New("persist: invalid session state")

// SessionState is what the editor restores on the next start.
type SessionState struct {
	// Text is the document content.
	Text string
	// Clean is true when Text matched the last saved or loaded document.
	Clean bool
	// ScrollTop is the viewport offset in pixels.
	ScrollTop int
	// Cursor is the cursor position.
	Cursor buffer.Point
	// Highlights are the highlighted ranges in "N" or "N-M" form.
	Highlights []string
}

// Encode renders s as an indented JSON document.
func Encode(s SessionState) (string, error) {
	doc := "{}"
	sets := []struct {
		path  string
		value any
	}{
		{"text", s.Text},
		{"clean", s.Clean},
		{"scrollTop", s.ScrollTop},
		{"cursor.line", s.Cursor.Line},
		{"cursor.ch", s.Cursor.Ch},
		{"highlights", nonNil(s.Highlights)},
	}
	for _, kv := range sets {
		var err error
		doc, err = sjson.Set(doc, kv.path, kv.value)
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", kv.path, err)
		}
	}
	return string(pretty.Pretty([]byte(doc))), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Decode parses a document written by Encode. Missing fields keep their
// zero values.
func Decode(doc string) (SessionState, error) {
	if !gjson.Valid(doc) {
		return SessionState{}, ErrInvalidState
	}
	r := gjson.Parse(doc)

	s := SessionState{
		Text:      r.Get("text").String(),
		Clean:     r.Get("clean").Bool(),
		ScrollTop: int(r.Get("scrollTop").Int()),
		Cursor: buffer.Point{
			Line: int(r.Get("cursor.line").Int()),
			Ch:   int(r.Get("cursor.ch").Int()),
		},
	}
	r.Get("highlights").ForEach(func(_, v gjson.Result) bool {
		s.Highlights = append(s.Highlights, v.String())
		return true
	})
	return s, nil
}

// Load reads the session state from store. ok is false when nothing has
// been stored yet.
func Load(store Store) (s SessionState, ok bool, err error) {
	doc, err := store.Get(SessionKey)
	if errors.Is(err, ErrNotFound) {
		return SessionState{}, false, nil
	}
	if err != nil {
		return SessionState{}, false, err
	}
	s, err = Decode(doc)
	if err != nil {
		return SessionState{}, false, err
	}
	return s, true, nil
}

// Save writes s to store.
func Save(store Store, s SessionState) error {
	doc, err := Encode(s)
	if err != nil {
		return err
	}
	return store.Set(SessionKey, doc)
}
