package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dshills/scenepad/internal/completion"
	"github.com/dshills/scenepad/internal/config"
	"github.com/dshills/scenepad/internal/document"
	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/engine/fold"
	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/navigation"
	"github.com/dshills/scenepad/internal/persist"
	"github.com/dshills/scenepad/internal/pipeline"
	"github.com/dshills/scenepad/internal/query"
	"github.com/dshills/scenepad/internal/render"
	"github.com/dshills/scenepad/internal/rewrite"
	"github.com/dshills/scenepad/internal/script"
	"github.com/dshills/scenepad/internal/watcher"
	"github.com/dshills/scenepad/internal/widget"
)

// DefaultRows is the viewport height used until a front end reports one.
const DefaultRows = 24

// Options configures a Session.
type Options struct {
	// Config is the loaded configuration. Nil uses config.Default().
	Config *config.Config
	// Path is the style file to open. Empty falls back to the query's
	// scene parameter, then to the saved session.
	Path string
	// Query holds startup directives such as "foldLevel=2&lines=5-9".
	Query string
	// Target receives reloads. Nil leaves the content channel idle.
	Target render.Target
	// Resources is where reload handles are materialized. A target that
	// resolves handles should share it. Nil creates a private store.
	Resources *render.Store
	// Store overrides the state store built from Config.Persist.Dir.
	Store persist.Store
	// Watch reloads the document when its file changes on disk.
	Watch bool
	// Confirm answers discard prompts. Nil declines them.
	Confirm document.ConfirmFunc
	// Logger is the session logger. Nil discards.
	Logger *logging.Logger
}

// Session is one editing session: a buffer and everything kept in sync
// with it.
//
// Thread-safety: Session methods are safe for concurrent use. Execute and
// Frame are normally called from a single front-end goroutine.
type Session struct {
	cfg    *config.Config
	opts   Options
	logger *logging.Logger

	buf        *buffer.Buffer
	folds      *fold.Engine
	view       *navigation.Viewport
	nav        *navigation.Controller
	rw         *rewrite.Rewriter
	doc        *document.Bridge
	pipe       *pipeline.Pipeline
	completion *completion.Model
	widgets    *widget.Index
	hook       *script.Hook
	store      persist.Store
	writer     *persist.Writer
	watcher    *watcher.FileWatcher
	metrics    *Metrics

	running atomic.Bool

	mu      sync.Mutex
	unsubs  []func()
	confirm document.ConfirmFunc
	redraw  func()
	message string
}

// New builds a session. Nothing runs until Start.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	s := &Session{
		cfg:     cfg,
		opts:    opts,
		logger:  logger.WithComponent("session"),
		confirm: opts.Confirm,
		metrics: NewMetrics(),
		widgets: &widget.Index{},
	}

	s.buf = buffer.New(buffer.WithIndentUnit(cfg.Editor.IndentUnit))
	s.folds = fold.New(s.buf)
	s.view = navigation.NewViewport(cfg.Editor.LineHeight, DefaultRows)
	s.nav = navigation.NewController(s.buf, s.folds, s.view)
	s.rw = rewrite.New(cfg.Rewrite.Rule())
	s.doc = document.New(s.buf, s.rw, document.WithLogger(logger))
	s.completion = completion.NewModel(s.buf)

	pipeOpts := []pipeline.Option{
		pipeline.WithRewriter(s.rw),
		pipeline.WithLogger(logger),
		pipeline.WithAfterReload(s.afterReload),
		pipeline.WithCompletion(s.suggest),
	}
	if opts.Resources != nil {
		pipeOpts = append(pipeOpts, pipeline.WithStore(opts.Resources))
	}
	if cfg.Script.Rewrite != "" {
		hook, err := script.LoadFile(cfg.Script.Rewrite, script.WithLogger(logger))
		if err != nil {
			s.doc.Close()
			return nil, fmt.Errorf("%w: %w", ErrInitialization, NewComponentError("script", "load", err))
		}
		s.hook = hook
		pipeOpts = append(pipeOpts, pipeline.WithTransform(hook.Transform()))
	}
	s.pipe = pipeline.New(s.buf, pipeline.Config{
		ContentDelay:    cfg.Pipeline.ContentDelay.Std(),
		CompletionDelay: cfg.Pipeline.CompletionDelay.Std(),
	}, pipeOpts...)
	if opts.Target != nil {
		s.pipe.SetTarget(opts.Target)
	}

	s.store = opts.Store
	if s.store == nil && cfg.Persist.Dir != "" {
		s.store = persist.NewFileStore(cfg.Persist.Dir)
	}
	if s.store != nil {
		s.writer = persist.NewWriter(s.store, cfg.Persist.Delay.Std(), s.State, logger)
	}
	return s, nil
}

// Start loads the initial document, applies startup directives and starts
// the sync pipeline.
func (s *Session) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	params := query.Parse(s.opts.Query)
	if err := s.load(params); err != nil {
		s.running.Store(false)
		return err
	}

	if !params.HasFoldLevel {
		params.FoldLevel, params.HasFoldLevel = s.cfg.FoldLevel()
	}
	query.Apply(s.nav, s.folds, params)
	s.revealCursor()

	s.pipe.Start(ctx)
	if err := s.pipe.ReloadNow(ctx); err != nil && !errors.Is(err, render.ErrNoTarget) {
		s.logger.Warn("initial reload failed: %v", err)
	}

	s.mu.Lock()
	if s.writer != nil {
		s.unsubs = append(s.unsubs,
			s.buf.OnMutate(func(buffer.Change) { s.writer.Touch() }),
			s.buf.OnCursor(func(buffer.Point) { s.writer.Touch() }),
		)
	}
	s.mu.Unlock()

	if s.opts.Watch && s.doc.Path() != "" {
		w, err := watcher.New(s.doc.Path(), s.onDiskChange, watcher.WithLogger(s.logger))
		if err != nil {
			s.logger.Warn("not watching %s: %v", s.doc.Path(), NewComponentError("watcher", "start", err))
		} else {
			s.watcher = w
		}
	}

	s.logger.Info("session started (%s)", s.cfg)
	return nil
}

// load fills the buffer from the path, the scene parameter or the saved
// session, in that order.
func (s *Session) load(params query.Params) error {
	path := s.opts.Path
	if path == "" {
		path = params.Scene
	}
	if path == "" && s.store != nil {
		state, ok, err := persist.Load(s.store)
		if err != nil {
			s.logger.Warn("ignoring saved session: %v", err)
		}
		if ok {
			s.restore(state)
			return nil
		}
	}
	if err := s.doc.Init(path); err != nil {
		return NewOperationError("open", path, err)
	}
	return nil
}

func (s *Session) restore(state persist.SessionState) {
	if !s.doc.LoadStyle(state.Text) {
		s.doc.LoadStyle(document.Placeholder)
	}
	s.doc.MarkSaved(state.Clean)
	s.buf.SetCursor(state.Cursor)
	s.nav.HighlightRanges(state.Highlights)
	s.view.ScrollTo(state.ScrollTop)
	s.logger.Debug("restored session: %d highlights", len(state.Highlights))
}

// Close stops every component and writes the final session state.
func (s *Session) Close() error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	var errs ErrorList
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()
	for _, u := range unsubs {
		u()
	}

	if s.watcher != nil {
		errs.Add(s.watcher.Close())
	}
	s.pipe.Stop()
	if s.writer != nil {
		s.writer.Stop()
		if err := persist.Save(s.store, s.State()); err != nil {
			errs.Add(NewComponentError("persist", "save session", err))
		}
	}
	if s.hook != nil {
		s.hook.Close()
	}
	s.doc.Close()

	s.logger.Info("session closed")
	return errs.AsError()
}

// Running reports whether the session is started.
func (s *Session) Running() bool {
	return s.running.Load()
}

// State captures what a restart needs to pick up where this session is.
func (s *Session) State() persist.SessionState {
	return persist.SessionState{
		Text:       s.doc.Content(),
		Clean:      s.doc.Saved(),
		ScrollTop:  s.view.Top(),
		Cursor:     s.buf.Cursor(),
		Highlights: s.nav.HighlightedRanges(),
	}
}

// Save writes the buffer to the document path.
func (s *Session) Save() error {
	path := s.doc.Path()
	if path == "" {
		return NewOperationError("save", "", ErrNoPath)
	}
	return s.SaveAs(path)
}

// SaveAs writes the buffer to path and makes it the document path.
func (s *Session) SaveAs(path string) error {
	if err := s.doc.SaveFile(path); err != nil {
		return NewOperationError("save", path, err)
	}
	s.setMessage("saved " + filepath.Base(path))
	return nil
}

// Open replaces the buffer with the file at path. With unsaved changes the
// session's confirm func decides.
func (s *Session) Open(path string) error {
	if err := s.doc.OpenFile(path, s.confirmFunc()); err != nil {
		return NewOperationError("open", path, err)
	}
	s.afterOpen()
	return nil
}

// Reload re-reads the document path.
func (s *Session) Reload() error {
	path := s.doc.Path()
	if path == "" {
		return NewOperationError("reload", "", ErrNoPath)
	}
	return s.Open(path)
}

func (s *Session) afterOpen() {
	if level, ok := s.nav.FoldLevel(); ok {
		s.folds.FoldByLevel(level)
	}
	s.revealCursor()
	s.follow()
}

func (s *Session) onDiskChange(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("%v", NewOperationError("read", path, err).WithContext("watcher"))
		return
	}
	if s.doc.Clean(string(data)) == s.doc.Content() {
		return
	}
	if !s.doc.Saved() {
		s.logger.Warn("%s changed on disk; keeping unsaved buffer", path)
		s.setMessage("file changed on disk")
		s.notify()
		return
	}
	if err := s.doc.OpenFile(path, nil); err != nil {
		opErr := NewOperationError("reload", path, err).WithContext("watcher")
		s.logger.Warn("%v", opErr)
		s.setMessage(opErr.Error())
		s.notify()
		return
	}
	s.afterOpen()
	s.setMessage("reloaded " + filepath.Base(path))
	s.notify()
}

func (s *Session) afterReload(snap buffer.Snapshot) {
	s.widgets.Refresh(snap)
	s.notify()
}

func (s *Session) suggest(cursor buffer.Point) {
	s.completion.Update(cursor)
	s.notify()
}

// SetConfirm replaces the discard prompt.
func (s *Session) SetConfirm(fn document.ConfirmFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirm = fn
}

func (s *Session) confirmFunc() document.ConfirmFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirm
}

// SetRedraw registers fn to be called when state changes off the front
// end's goroutine.
func (s *Session) SetRedraw(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redraw = fn
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.redraw
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) setMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}

// Message returns the last status message.
func (s *Session) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// Status is the one-line summary shown under the document.
func (s *Session) Status() string {
	var sb strings.Builder
	name := "[scratch]"
	if p := s.doc.Path(); p != "" {
		name = filepath.Base(p)
	}
	sb.WriteString(name)
	if !s.doc.Saved() {
		sb.WriteString(" [+]")
	}
	cur := s.buf.Cursor()
	fmt.Fprintf(&sb, "  Ln %d, Col %d", cur.Line+1, cur.Ch+1)
	if level, ok := s.nav.FoldLevel(); ok {
		fmt.Fprintf(&sb, "  fold %d", level)
	}
	if keys := s.completion.Suggestions(); len(keys) > 0 && s.completion.Cursor() == cur {
		sb.WriteString("  keys: ")
		sb.WriteString(strings.Join(keys, ", "))
	}
	if msg := s.Message(); msg != "" {
		sb.WriteString("  | ")
		sb.WriteString(msg)
	}
	return sb.String()
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Buffer returns the session buffer.
func (s *Session) Buffer() *buffer.Buffer { return s.buf }

// Folds returns the fold engine.
func (s *Session) Folds() *fold.Engine { return s.folds }

// Navigator returns the navigation controller.
func (s *Session) Navigator() *navigation.Controller { return s.nav }

// Document returns the load/save bridge.
func (s *Session) Document() *document.Bridge { return s.doc }

// Pipeline returns the sync pipeline.
func (s *Session) Pipeline() *pipeline.Pipeline { return s.pipe }

// Completion returns the suggestion model.
func (s *Session) Completion() *completion.Model { return s.completion }

// Widgets returns the widget link index.
func (s *Session) Widgets() *widget.Index { return s.widgets }

// Metrics returns the session metrics.
func (s *Session) Metrics() *Metrics { return s.metrics }
