package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/rewrite"
)

const injected = "sources:\n    osm:\n        url: https://tile.mapzen.com/v1/all/{z}/{x}/{y}.topojson?api_key=vector-tiles-x4i7gmA"
const clean = "sources:\n    osm:\n        url: https://tile.mapzen.com/v1/all/{z}/{x}/{y}.topojson"

func newBridge(text string) (*Bridge, *buffer.Buffer) {
	buf := buffer.NewFromString(text)
	return New(buf, rewrite.New(rewrite.DefaultRule())), buf
}

func TestLoadStyleStripsToken(t *testing.T) {
	b, buf := newBridge("x")
	buf.SetText("edited")
	if b.Saved() {
		t.Fatal("mutation should clear saved state")
	}

	if !b.LoadStyle(injected) {
		t.Fatal("LoadStyle returned false")
	}
	if buf.Text() != clean {
		t.Errorf("buffer = %q, want %q", buf.Text(), clean)
	}
	if !b.Saved() {
		t.Error("LoadStyle should mark saved")
	}
}

func TestLoadStyleStripsTokenCRLF(t *testing.T) {
	b, buf := newBridge("x")
	crlf := strings.ReplaceAll(injected, "\n", "\r\n") + "\r\n"

	if !b.LoadStyle(crlf) {
		t.Fatal("LoadStyle returned false")
	}
	if buf.Text() != clean+"\n" {
		t.Errorf("buffer = %q, want %q", buf.Text(), clean+"\n")
	}
	if b.Clean(crlf) != b.Content() {
		t.Error("Clean should match what LoadStyle put in the buffer")
	}
}

func TestLoadStyleEmptyIsNoop(t *testing.T) {
	b, buf := newBridge("keep")
	buf.SetText("dirty")
	if b.LoadStyle("") {
		t.Error("LoadStyle(\"\") returned true")
	}
	if buf.Text() != "dirty" || b.Saved() {
		t.Errorf("state changed: text=%q saved=%v", buf.Text(), b.Saved())
	}
}

func TestContentIsVerbatim(t *testing.T) {
	b, _ := newBridge(clean)
	if b.Content() != clean {
		t.Errorf("Content = %q", b.Content())
	}
}

func TestSave(t *testing.T) {
	b, buf := newBridge("a")
	buf.SetText("b")

	var out bytes.Buffer
	if err := b.Save(&out); err != nil {
		t.Fatal(err)
	}
	if out.String() != "b" || !b.Saved() {
		t.Errorf("out = %q saved = %v", out.String(), b.Saved())
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestSaveFailureKeepsDirty(t *testing.T) {
	b, buf := newBridge("a")
	buf.SetText("b")
	if err := b.Save(failWriter{}); err == nil {
		t.Fatal("expected error")
	}
	if b.Saved() {
		t.Error("failed save must not mark saved")
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	b, buf := newBridge(clean)
	buf.SetText(clean + "\nlayers: {}")

	if err := b.SaveFile(path); err != nil {
		t.Fatal(err)
	}
	if b.Path() != path || !b.Saved() {
		t.Errorf("Path = %q Saved = %v", b.Path(), b.Saved())
	}

	b2, buf2 := newBridge("")
	if err := b2.OpenFile(path, nil); err != nil {
		t.Fatal(err)
	}
	if buf2.Text() != buf.Text() {
		t.Errorf("round trip = %q, want %q", buf2.Text(), buf.Text())
	}
}

func TestOpenDeclineLeavesState(t *testing.T) {
	b, buf := newBridge("original")
	buf.SetText("original\nedited")

	var prompt Prompt
	err := b.Open(strings.NewReader("new document"), func(p Prompt) bool {
		prompt = p
		return false
	})
	if !errors.Is(err, ErrOpenCanceled) {
		t.Fatalf("err = %v, want ErrOpenCanceled", err)
	}
	if buf.Text() != "original\nedited" || b.Saved() {
		t.Errorf("state changed: text=%q saved=%v", buf.Text(), b.Saved())
	}
	if !strings.Contains(prompt.Diff, "+edited") || !strings.Contains(prompt.Diff, "--- saved") {
		t.Errorf("prompt diff = %q", prompt.Diff)
	}
}

func TestOpenAccept(t *testing.T) {
	b, buf := newBridge("original")
	buf.SetText("edited")

	asked := false
	err := b.Open(strings.NewReader(injected), func(Prompt) bool {
		asked = true
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if !asked {
		t.Error("confirm not asked with unsaved changes")
	}
	if buf.Text() != clean || !b.Saved() {
		t.Errorf("text=%q saved=%v", buf.Text(), b.Saved())
	}
}

func TestOpenWhenSavedSkipsConfirm(t *testing.T) {
	b, buf := newBridge("original")
	err := b.Open(strings.NewReader("next"), func(Prompt) bool {
		t.Error("confirm should not be asked")
		return false
	})
	if err != nil || buf.Text() != "next" {
		t.Errorf("err=%v text=%q", err, buf.Text())
	}
}

func TestOpenNilConfirmDeclines(t *testing.T) {
	b, buf := newBridge("a")
	buf.SetText("b")
	if err := b.Open(strings.NewReader("c"), nil); !errors.Is(err, ErrOpenCanceled) {
		t.Errorf("err = %v, want ErrOpenCanceled", err)
	}
}

func TestOpenEmptyKeepsDocument(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(first, []byte("a: 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	b, buf := newBridge("")
	if err := b.OpenFile(first, nil); err != nil {
		t.Fatal(err)
	}
	buf.SetText("a: 2")

	asked := false
	err := b.OpenFile(empty, func(Prompt) bool {
		asked = true
		return true
	})
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("OpenFile(empty) = %v, want ErrEmptyDocument", err)
	}
	if asked {
		t.Error("confirm asked for a document that will not load")
	}
	if b.Path() != first {
		t.Errorf("Path() = %q, want %q", b.Path(), first)
	}
	if buf.Text() != "a: 2" || b.Saved() {
		t.Errorf("text = %q saved = %v", buf.Text(), b.Saved())
	}
}

func TestOpenDecodesBOM(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"utf8", []byte("\xef\xbb\xbfcameras: {}")},
		{"utf16le", []byte{0xff, 0xfe, 'c', 0, 'a', 0, 'm', 0, 'e', 0, 'r', 0, 'a', 0, 's', 0, ':', 0, ' ', 0, '{', 0, '}', 0}},
		{"utf16be", []byte{0xfe, 0xff, 0, 'c', 0, 'a', 0, 'm', 0, 'e', 0, 'r', 0, 'a', 0, 's', 0, ':', 0, ' ', 0, '{', 0, '}'}},
		{"plain", []byte("cameras: {}")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, buf := newBridge("")
			if err := b.Open(bytes.NewReader(tt.data), nil); err != nil {
				t.Fatal(err)
			}
			if buf.Text() != "cameras: {}" {
				t.Errorf("text = %q", buf.Text())
			}
		})
	}
}

func TestInitPlaceholder(t *testing.T) {
	b, buf := newBridge("")
	if err := b.Init(""); err != nil {
		t.Fatal(err)
	}
	if buf.Text() != Placeholder {
		t.Errorf("text = %q, want placeholder", buf.Text())
	}

	missing := filepath.Join(t.TempDir(), "missing.yaml")
	b2, buf2 := newBridge("")
	if err := b2.Init(missing); err != nil {
		t.Fatalf("Init(missing) = %v, want nil", err)
	}
	if buf2.Text() != Placeholder || b2.Path() != missing {
		t.Errorf("text = %q path = %q", buf2.Text(), b2.Path())
	}
}

func TestInitEmptyFileShowsPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	b, buf := newBridge("")
	if err := b.Init(path); err != nil {
		t.Fatalf("Init(empty) = %v, want nil", err)
	}
	if buf.Text() != Placeholder || b.Path() != path || !b.Saved() {
		t.Errorf("text = %q path = %q saved = %v", buf.Text(), b.Path(), b.Saved())
	}
}

func TestInitLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(injected), 0o644); err != nil {
		t.Fatal(err)
	}
	b, buf := newBridge("")
	if err := b.Init(path); err != nil {
		t.Fatal(err)
	}
	if buf.Text() != clean || !b.Saved() {
		t.Errorf("text = %q saved = %v", buf.Text(), b.Saved())
	}

	buf.SetText("changed on screen")
	if err := b.Reload(func(Prompt) bool { return true }); err != nil {
		t.Fatal(err)
	}
	if buf.Text() != clean {
		t.Errorf("after Reload text = %q", buf.Text())
	}
}

func TestMarkSaved(t *testing.T) {
	b, buf := newBridge("a")
	buf.SetText("b")
	b.MarkSaved(true)
	if !b.Saved() {
		t.Error("MarkSaved(true) ignored")
	}
	b.MarkSaved(false)
	if b.Saved() {
		t.Error("MarkSaved(false) ignored")
	}
}
