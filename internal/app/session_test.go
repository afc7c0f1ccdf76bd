package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/dshills/scenepad/internal/config"
	"github.com/dshills/scenepad/internal/document"
	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/persist"
	"github.com/dshills/scenepad/internal/render"
	"github.com/dshills/scenepad/internal/view"
)

const scene = `sources:
    osm:
        type: TopoJSON
        url: https://vector.mapzen.com/osm/all/{z}/{x}/{y}.topojson
layers:
    water:
        data: { source: osm }
        draw:
            polygons:
                color: [0.2, 0.4, 0.6]
    earth:
        draw:
            polygons:
                color: [0.3, 0.3, 0.3]`

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Pipeline.ContentDelay = config.Duration(10 * time.Millisecond)
	cfg.Pipeline.CompletionDelay = config.Duration(10 * time.Millisecond)
	cfg.Persist.Delay = config.Duration(10 * time.Millisecond)
	return cfg
}

func writeScene(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}

func startSession(t *testing.T, opts Options) *Session {
	t.Helper()
	if opts.Config == nil {
		opts.Config = fastConfig()
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartLoadsFile(t *testing.T) {
	path := writeScene(t, scene)
	s := startSession(t, Options{Path: path})

	if got := s.Buffer().Text(); got != scene {
		t.Errorf("buffer text = %q", got)
	}
	if !s.Document().Saved() {
		t.Error("freshly loaded document should be saved")
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}
}

func TestStartMissingFileShowsPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	s := startSession(t, Options{Path: path})

	if got := s.Buffer().Text(); got != document.Placeholder {
		t.Errorf("buffer text = %q, want placeholder", got)
	}
	if s.Document().Path() != path {
		t.Errorf("Path() = %q, want %q", s.Document().Path(), path)
	}
}

func TestStartAppliesFoldLevelQuery(t *testing.T) {
	s := startSession(t, Options{Path: writeScene(t, scene), Query: "?foldLevel=1"})

	want := []int{0, 1, 4, 5, 10}
	if got := s.Buffer().VisibleLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
	if level, ok := s.Navigator().FoldLevel(); !ok || level != 1 {
		t.Errorf("FoldLevel() = %d, %v", level, ok)
	}
}

func TestStartAppliesLinesQuery(t *testing.T) {
	s := startSession(t, Options{Path: writeScene(t, scene), Query: "foldLevel=1&lines=9-10"})
	buf := s.Buffer()

	for _, n := range []int{8, 9} {
		if buf.FoldState(n) != buffer.Visible {
			t.Errorf("line %d should be visible", n)
		}
	}
	sel, ok := buf.Selection()
	if !ok || sel.From != (buffer.Point{Line: 8}) || sel.To.Line != 9 {
		t.Errorf("selection = %v, %v", sel, ok)
	}
	if buf.FoldState(12) != buffer.Folded {
		t.Error("unrelated block should stay folded")
	}
}

func TestStartUsesConfigFoldLevel(t *testing.T) {
	cfg := fastConfig()
	cfg.Editor.FoldLevel = 0
	s := startSession(t, Options{Config: cfg, Path: writeScene(t, scene)})

	want := []int{0, 4}
	if got := s.Buffer().VisibleLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("visible = %v, want %v", got, want)
	}
}

func TestStartSceneParameter(t *testing.T) {
	path := writeScene(t, scene)
	s := startSession(t, Options{Query: "scene=" + path})
	if s.Document().Path() != path {
		t.Errorf("Path() = %q, want %q", s.Document().Path(), path)
	}
}

func TestPipelineReloadsTarget(t *testing.T) {
	store := render.NewStore()
	got := make(chan string, 16)
	target := render.Func(func(_ context.Context, h render.Handle) error {
		content, err := store.Resolve(h)
		if err != nil {
			return err
		}
		got <- content
		return nil
	})

	s := startSession(t, Options{Path: writeScene(t, scene), Target: target, Resources: store})

	select {
	case content := <-got:
		if !strings.Contains(content, ".topojson?api_key=") {
			t.Errorf("initial reload missing token: %q", content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no initial reload")
	}
	if strings.Contains(s.Buffer().Text(), "api_key") {
		t.Error("token leaked into the buffer")
	}

	s.Buffer().SetCursor(buffer.Point{Line: 0})
	if err := s.Execute(view.Command{Action: view.ActionInsert, Rune: '#'}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	select {
	case content := <-got:
		if !strings.HasPrefix(content, "#sources:") {
			t.Errorf("reload content = %q", content[:20])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload after edit")
	}

	waitFor(t, "widget refresh", func() bool {
		return s.Widgets().Revision() == s.Buffer().Revision()
	})
	if n := len(s.Widgets().Links()); n != 2 {
		t.Errorf("links = %d, want 2", n)
	}
}

func TestCompletionSurfacesInStatus(t *testing.T) {
	s := startSession(t, Options{Path: writeScene(t, scene)})

	s.Buffer().SetCursor(buffer.Point{Line: 11, Ch: 8})
	waitFor(t, "suggestions", func() bool {
		return len(s.Completion().Suggestions()) > 0
	})
	if status := s.Status(); !strings.Contains(status, "keys: data") {
		t.Errorf("status = %q", status)
	}
}

func TestRestoreSavedSession(t *testing.T) {
	store := persist.NewMemoryStore()
	saved := persist.SessionState{
		Text:       scene,
		Clean:      false,
		Cursor:     buffer.Point{Line: 3, Ch: 4},
		Highlights: []string{"2-3"},
	}
	if err := persist.Save(store, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s, err := New(Options{Config: fastConfig(), Store: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if s.Buffer().Text() != scene {
		t.Errorf("text not restored: %q", s.Buffer().Text())
	}
	if s.Document().Saved() {
		t.Error("dirty flag not restored")
	}
	if got := s.Buffer().Cursor(); got != saved.Cursor {
		t.Errorf("cursor = %v, want %v", got, saved.Cursor)
	}
	if got := s.Buffer().HighlightedLines(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("highlights = %v", got)
	}

	if err := s.Execute(view.Command{Action: view.ActionInsert, Rune: 'x'}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	state, ok, err := persist.Load(store)
	if err != nil || !ok {
		t.Fatalf("Load: %v, %v", ok, err)
	}
	if !strings.Contains(state.Text, "    x    url:") {
		t.Errorf("final state missing edit: %q", state.Text)
	}
	if state.Cursor != (buffer.Point{Line: 3, Ch: 5}) {
		t.Errorf("final cursor = %v", state.Cursor)
	}
}

func TestCloseNotRunning(t *testing.T) {
	s, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Close(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Close = %v, want ErrNotRunning", err)
	}
}

func TestNewBadScript(t *testing.T) {
	cfg := fastConfig()
	cfg.Script.Rewrite = filepath.Join(t.TempDir(), "missing.lua")
	if _, err := New(Options{Config: cfg}); !errors.Is(err, ErrInitialization) {
		t.Errorf("New = %v, want ErrInitialization", err)
	}
}

func TestScriptTransformReachesTarget(t *testing.T) {
	dir := t.TempDir()
	lua := filepath.Join(dir, "rewrite.lua")
	src := "function rewrite(content) return string.upper(content) end"
	if err := os.WriteFile(lua, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := fastConfig()
	cfg.Script.Rewrite = lua

	out := filepath.Join(dir, "out.yaml")
	store := render.NewStore()
	startSession(t, Options{
		Config:    cfg,
		Path:      writeScene(t, "a:\n    b: 1"),
		Target:    render.NewFileTarget(out, store),
		Resources: store,
	})

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "A:\n    B: 1" {
		t.Errorf("output = %q", data)
	}
}

func TestDiskChange(t *testing.T) {
	path := writeScene(t, "a: 1")
	s := startSession(t, Options{Path: path})

	if err := os.WriteFile(path, []byte("a: 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.onDiskChange(path)
	if got := s.Buffer().Text(); got != "a: 2" {
		t.Errorf("clean buffer not reloaded: %q", got)
	}

	s.Buffer().SetCursor(buffer.Point{Line: 0, Ch: 4})
	if err := s.Execute(view.Command{Action: view.ActionInsert, Rune: '0'}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("a: 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.onDiskChange(path)
	if got := s.Buffer().Text(); got != "a: 20" {
		t.Errorf("dirty buffer replaced: %q", got)
	}
	if !strings.Contains(s.Status(), "changed on disk") {
		t.Errorf("status = %q", s.Status())
	}
}

func TestDiskChangeToEmptyFile(t *testing.T) {
	path := writeScene(t, "a: 1")
	s := startSession(t, Options{Path: path})

	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	s.onDiskChange(path)
	if got := s.Buffer().Text(); got != "a: 1" {
		t.Errorf("buffer = %q, want the previous document", got)
	}
	status := s.Status()
	if !strings.Contains(status, "(watcher)") || !strings.Contains(status, document.ErrEmptyDocument.Error()) {
		t.Errorf("status = %q", status)
	}
}

func TestDiskChangeCRLF(t *testing.T) {
	path := writeScene(t, "a: 1\nb: 2")
	s := startSession(t, Options{Path: path})

	if err := os.WriteFile(path, []byte("a: 1\r\nb: 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	s.onDiskChange(path)
	if strings.Contains(s.Status(), "reloaded") {
		t.Errorf("line-ending-only change reloaded the buffer: %q", s.Status())
	}
}

func TestWatchReloadsCleanBuffer(t *testing.T) {
	path := writeScene(t, "a: 1")
	s := startSession(t, Options{Path: path, Watch: true})

	if err := os.WriteFile(path, []byte("a: 9"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "watch reload", func() bool { return s.Buffer().Text() == "a: 9" })
}
