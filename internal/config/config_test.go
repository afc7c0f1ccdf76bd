package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

type staticEnv map[string]any

func (s staticEnv) Load() (map[string]any, error) { return s, nil }

func noEnv() Option {
	return WithEnv(staticEnv(nil))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenepad.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", noEnv())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load = %+v, want defaults", cfg)
	}
	if _, ok := cfg.FoldLevel(); ok {
		t.Error("default fold level should be unset")
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[editor]
indent_unit = 2
fold_level = 1

[pipeline]
content_delay = "250ms"

[rewrite]
suffixes = ["mvt"]
token = "secret"

[persist]
dir = "/tmp/state"

[script]
rewrite = "hook.lua"
`)
	cfg, err := Load(path, noEnv())
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Editor.IndentUnit != 2 {
		t.Errorf("IndentUnit = %d, want 2", cfg.Editor.IndentUnit)
	}
	if lvl, ok := cfg.FoldLevel(); !ok || lvl != 1 {
		t.Errorf("FoldLevel = %d, %v", lvl, ok)
	}
	if cfg.Pipeline.ContentDelay.Std() != 250*time.Millisecond {
		t.Errorf("ContentDelay = %v", cfg.Pipeline.ContentDelay.Std())
	}
	if cfg.Pipeline.CompletionDelay.Std() != time.Second {
		t.Errorf("CompletionDelay = %v, want default 1s", cfg.Pipeline.CompletionDelay.Std())
	}
	rule := cfg.Rewrite.Rule()
	if !reflect.DeepEqual(rule.Suffixes, []string{"mvt"}) || rule.Token != "secret" || rule.Host != "mapzen.com" {
		t.Errorf("Rule = %+v", rule)
	}
	if cfg.Persist.Dir != "/tmp/state" || cfg.Script.Rewrite != "hook.lua" {
		t.Errorf("Persist/Script = %+v %+v", cfg.Persist, cfg.Script)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[editor]\nindent_unit = 2\n[logging]\nlevel = \"warn\"\n")
	env := staticEnv{
		"editor":  map[string]any{"indent_unit": int64(8)},
		"logging": map[string]any{"level": "debug"},
	}
	cfg, err := Load(path, WithEnv(env))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.IndentUnit != 8 || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		content string
		path    string
	}{
		{"[editor]\nindent_unit = 0\n", "editor.indent_unit"},
		{"[editor]\nline_height = 0\n", "editor.line_height"},
		{"[pipeline]\ncontent_delay = \"-1s\"\n", "pipeline.content_delay"},
		{"[logging]\nlevel = \"loud\"\n", "logging.level"},
	}
	for _, tt := range tests {
		_, err := Load(writeConfig(t, tt.content), noEnv())
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Path != tt.path {
			t.Errorf("Load(%q) err = %v, want ValidationError at %s", tt.content, err, tt.path)
		}
	}
}

func TestLoadBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "[pipeline]\ncontent_delay = \"soon\"\n"), noEnv())
	if !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

type errFS struct{}

func (errFS) ReadFile(string) ([]byte, error)  { return nil, fs.ErrPermission }
func (errFS) Stat(string) (fs.FileInfo, error) { return nil, fs.ErrPermission }

func TestLoadReadError(t *testing.T) {
	if _, err := Load("/etc/scenepad.toml", WithFS(errFS{}), noEnv()); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("err = %v, want ErrPermission", err)
	}
}

func TestDurationText(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatal(err)
	}
	b, _ := d.MarshalText()
	if string(b) != "1m30s" {
		t.Errorf("MarshalText = %q", b)
	}
}
