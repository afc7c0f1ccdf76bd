// Package config holds scenepad's settings.
//
// Settings come from three layers, later ones winning: built-in defaults,
// a TOML file and SCENEPAD_* environment variables. Example file:
//
//	[editor]
//	indent_unit = 4
//	fold_level = 2
//
//	[pipeline]
//	content_delay = "500ms"
//
//	[rewrite]
//	token = "my-key"
package config

import (
	"fmt"
	"time"

	"github.com/dshills/scenepad/internal/rewrite"
)

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

// UnmarshalText parses a duration string.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full configuration.
type Config struct {
	Editor   EditorConfig   `toml:"editor"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Rewrite  RewriteConfig  `toml:"rewrite"`
	Persist  PersistConfig  `toml:"persist"`
	Script   ScriptConfig   `toml:"script"`
	Logging  LoggingConfig  `toml:"logging"`
}

// EditorConfig holds buffer and view settings.
type EditorConfig struct {
	// IndentUnit is the indentation width in columns.
	IndentUnit int `toml:"indent_unit"`
	// LineHeight is the pixel height of one row.
	LineHeight int `toml:"line_height"`
	// FoldLevel is the fold level applied at start; negative disables it.
	FoldLevel int `toml:"fold_level"`
}

// PipelineConfig holds the sync channel delays.
type PipelineConfig struct {
	ContentDelay    Duration `toml:"content_delay"`
	CompletionDelay Duration `toml:"completion_delay"`
}

// RewriteConfig is the access-token rewrite rule.
type RewriteConfig struct {
	Host     string   `toml:"host"`
	Suffixes []string `toml:"suffixes"`
	Param    string   `toml:"param"`
	Token    string   `toml:"token"`
}

// Rule converts the section to a rewrite rule.
func (r RewriteConfig) Rule() rewrite.Rule {
	return rewrite.Rule{
		Host:     r.Host,
		Suffixes: append([]string(nil), r.Suffixes...),
		Param:    r.Param,
		Token:    r.Token,
	}
}

// PersistConfig controls session state storage.
type PersistConfig struct {
	// Dir is the state directory. Empty disables persistence.
	Dir   string   `toml:"dir"`
	Delay Duration `toml:"delay"`
}

// ScriptConfig names the optional Lua rewrite hook.
type ScriptConfig struct {
	Rewrite string `toml:"rewrite"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rule := rewrite.DefaultRule()
	return &Config{
		Editor: EditorConfig{
			IndentUnit: 4,
			LineHeight: 1,
			FoldLevel:  -1,
		},
		Pipeline: PipelineConfig{
			ContentDelay:    Duration(500 * time.Millisecond),
			CompletionDelay: Duration(1000 * time.Millisecond),
		},
		Rewrite: RewriteConfig{
			Host:     rule.Host,
			Suffixes: rule.Suffixes,
			Param:    rule.Param,
			Token:    rule.Token,
		},
		Persist: PersistConfig{
			Delay: Duration(500 * time.Millisecond),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate checks every setting and returns the first failure as a
// *ValidationError.
func (c *Config) Validate() error {
	switch {
	case c.Editor.IndentUnit < 1 || c.Editor.IndentUnit > 16:
		return &ValidationError{Path: "editor.indent_unit", Message: "must be between 1 and 16", Value: c.Editor.IndentUnit}
	case c.Editor.LineHeight < 1:
		return &ValidationError{Path: "editor.line_height", Message: "must be positive", Value: c.Editor.LineHeight}
	case c.Pipeline.ContentDelay <= 0:
		return &ValidationError{Path: "pipeline.content_delay", Message: "must be positive", Value: c.Pipeline.ContentDelay.Std()}
	case c.Pipeline.CompletionDelay <= 0:
		return &ValidationError{Path: "pipeline.completion_delay", Message: "must be positive", Value: c.Pipeline.CompletionDelay.Std()}
	case c.Persist.Delay <= 0:
		return &ValidationError{Path: "persist.delay", Message: "must be positive", Value: c.Persist.Delay.Std()}
	case c.Rewrite.Param == "":
		return &ValidationError{Path: "rewrite.param", Message: "must not be empty", Value: c.Rewrite.Param}
	case !logLevels[c.Logging.Level]:
		return &ValidationError{Path: "logging.level", Message: "must be debug, info, warn or error", Value: c.Logging.Level}
	}
	return nil
}

// FoldLevel returns the start fold level, if one is set.
func (c *Config) FoldLevel() (int, bool) {
	return c.Editor.FoldLevel, c.Editor.FoldLevel >= 0
}

// String renders the configuration for logs.
func (c *Config) String() string {
	return fmt.Sprintf("indent=%d content_delay=%s completion_delay=%s persist=%q script=%q",
		c.Editor.IndentUnit, c.Pipeline.ContentDelay.Std(), c.Pipeline.CompletionDelay.Std(),
		c.Persist.Dir, c.Script.Rewrite)
}
