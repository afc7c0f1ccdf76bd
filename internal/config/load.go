package config

import (
	"fmt"

	"github.com/dshills/scenepad/internal/config/loader"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "SCENEPAD_"

// Option configures Load.
type Option func(*options)

type options struct {
	fs  loader.FileSystem
	env loader.Loader
}

// WithFS reads the config file through fs.
func WithFS(fs loader.FileSystem) Option {
	return func(o *options) { o.fs = fs }
}

// WithEnv replaces the environment source.
func WithEnv(l loader.Loader) Option {
	return func(o *options) { o.env = l }
}

// Load builds the configuration from the defaults, the TOML file at path
// (skipped when empty or missing) and the environment, then validates it.
func Load(path string, opts ...Option) (*Config, error) {
	o := options{fs: loader.DefaultFS(), env: loader.NewEnvLoader(EnvPrefix)}
	for _, opt := range opts {
		opt(&o)
	}

	merged := make(map[string]any)
	for _, src := range []loader.Loader{loader.NewTOMLLoaderWithFS(o.fs, path), o.env} {
		m, err := src.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode applies a raw settings map over the defaults. The map is
// round-tripped through TOML so the struct tags and text unmarshalers
// drive conversion.
func decode(m map[string]any) (*Config, error) {
	cfg := Default()
	if len(m) == 0 {
		return cfg, nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return cfg, nil
}
