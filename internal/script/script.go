// Package script runs a user-supplied Lua hook over document content
// before it reaches the render target.
//
// The script must define a global function rewrite(content) returning the
// new content. It runs in a sandboxed state with only the base, table,
// string and math libraries; file loading functions are removed.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dshills/scenepad/internal/logging"
	lua "github.com/yuin/gopher-lua"
)

// EntryPoint is the global function a script must define.
const EntryPoint = "rewrite"

// DefaultTimeout bounds a single rewrite call.
const DefaultTimeout = time.Second

var (
	// ErrNoEntryPoint is returned when a script does not define rewrite.
	ErrNoEntryPoint = errors.New("script: rewrite function not defined")
	// ErrBadResult is returned when rewrite does not return a string.
	ErrBadResult = errors.New("script: rewrite must return a string")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("script: hook closed")
)

// Option configures a Hook.
type Option func(*Hook)

// WithTimeout sets the per-call time limit.
func WithTimeout(d time.Duration) Option {
	return func(h *Hook) { h.timeout = d }
}

// WithLogger sets the logger the script's log() function writes to.
func WithLogger(l *logging.Logger) Option {
	return func(h *Hook) { h.logger = l }
}

// Hook is a compiled rewrite script.
//
// Thread-safety: All methods are safe for concurrent use; calls are
// serialized because a Lua state is single-threaded.
type Hook struct {
	mu      sync.Mutex
	L       *lua.LState
	name    string
	timeout time.Duration
	logger  *logging.Logger
	closed  bool
}

// Load compiles source. name identifies the script in errors.
func Load(name, source string, opts ...Option) (*Hook, error) {
	h := &Hook{
		name:    name,
		timeout: DefaultTimeout,
		logger:  logging.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("script").WithField("script", name)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, fn := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(fn, lua.LNil)
	}
	L.SetGlobal("log", L.NewFunction(h.luaLog))
	h.L = L

	if err := h.protect(func() error { return L.DoString(source) }); err != nil {
		L.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	if L.GetGlobal(EntryPoint).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("load %s: %w", name, ErrNoEntryPoint)
	}
	return h, nil
}

// LoadFile reads and compiles the script at path.
func LoadFile(path string, opts ...Option) (*Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Load(path, string(data), opts...)
}

// Name returns the script name.
func (h *Hook) Name() string {
	return h.name
}

// Rewrite passes content through the script.
func (h *Hook) Rewrite(ctx context.Context, content string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", ErrClosed
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	h.L.SetContext(ctx)
	defer h.L.RemoveContext()

	top := h.L.GetTop()
	defer h.L.SetTop(top)

	err := h.protect(func() error {
		return h.L.CallByParam(lua.P{
			Fn:      h.L.GetGlobal(EntryPoint),
			NRet:    1,
			Protect: true,
		}, lua.LString(content))
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", h.name, err)
	}

	ret := h.L.Get(-1)
	s, ok := ret.(lua.LString)
	if !ok {
		return "", fmt.Errorf("%s: %w (got %s)", h.name, ErrBadResult, ret.Type())
	}
	return string(s), nil
}

// Transform adapts the hook to a content transform that runs with a
// background context.
func (h *Hook) Transform() func(string) (string, error) {
	return func(content string) (string, error) {
		return h.Rewrite(context.Background(), content)
	}
}

// Close releases the Lua state.
func (h *Hook) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		h.L.Close()
	}
}

func (h *Hook) luaLog(L *lua.LState) int {
	h.logger.Info("%s", L.CheckString(1))
	return 0
}

func (h *Hook) protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
