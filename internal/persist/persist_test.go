package persist

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/scenepad/internal/engine/buffer"
)

func TestEncodeDecode(t *testing.T) {
	in := SessionState{
		Text:       "cameras:\n    main: {}\n\"quoted\"",
		Clean:      true,
		ScrollTop:  120,
		Cursor:     buffer.Point{Line: 3, Ch: 7},
		Highlights: []string{"2", "5-7"},
	}
	doc, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc, "\n  \"") {
		t.Errorf("document is not indented: %q", doc)
	}

	out, err := Decode(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("Decode = %+v, want %+v", out, in)
	}
}

func TestDecodePartial(t *testing.T) {
	s, err := Decode(`{"text":"a","clean":false}`)
	if err != nil {
		t.Fatal(err)
	}
	if s.Text != "a" || s.Clean || s.ScrollTop != 0 || s.Highlights != nil {
		t.Errorf("Decode = %+v", s)
	}
	if _, err := Decode("{not json"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestLoadSave(t *testing.T) {
	store := NewMemoryStore()
	if _, ok, err := Load(store); ok || err != nil {
		t.Fatalf("Load on empty store = %v, %v", ok, err)
	}

	want := SessionState{Text: "x", Highlights: []string{"1"}}
	if err := Save(store, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Load(store)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	fs := NewFileStore(dir)

	if _, err := fs.Get("last-scene"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get err = %v, want ErrNotFound", err)
	}
	if err := fs.Set("last-scene", `{"text":"a"}`); err != nil {
		t.Fatal(err)
	}
	got, err := fs.Get("last-scene")
	if err != nil || got != `{"text":"a"}` {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "last-scene.json")); err != nil {
		t.Errorf("expected file on disk: %v", err)
	}

	for _, key := range []string{"", "..", "a/b", `a\b`} {
		if err := fs.Set(key, "x"); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Set(%q) err = %v, want ErrInvalidKey", key, err)
		}
	}
}

func TestWriterDebounces(t *testing.T) {
	store := NewMemoryStore()
	var captures atomic.Int32
	var text atomic.Value
	text.Store("")

	w := NewWriter(store, 30*time.Millisecond, func() SessionState {
		captures.Add(1)
		return SessionState{Text: text.Load().(string)}
	}, nil)

	for i := 0; i < 5; i++ {
		text.Store(strings.Repeat("a", i+1))
		w.Touch()
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(80 * time.Millisecond)

	if captures.Load() != 1 {
		t.Errorf("captures = %d, want 1", captures.Load())
	}
	s, ok, err := Load(store)
	if err != nil || !ok || s.Text != "aaaaa" {
		t.Errorf("Load = %+v, %v, %v", s, ok, err)
	}
}

func TestWriterFlushAndStop(t *testing.T) {
	store := NewMemoryStore()
	w := NewWriter(store, time.Second, func() SessionState {
		return SessionState{Text: "flushed"}
	}, nil)

	w.Touch()
	w.Flush()
	if s, ok, _ := Load(store); !ok || s.Text != "flushed" {
		t.Errorf("after Flush Load = %+v, %v", s, ok)
	}

	store2 := NewMemoryStore()
	w2 := NewWriter(store2, 20*time.Millisecond, func() SessionState {
		return SessionState{Text: "dropped"}
	}, nil)
	w2.Touch()
	w2.Stop()
	time.Sleep(50 * time.Millisecond)
	if _, ok, _ := Load(store2); ok {
		t.Error("Stop should drop the pending write")
	}
}
