// Package pipeline keeps an external render target and the completion
// model in sync with a buffer under continuous edits.
//
// Two debounced channels run independently. The content channel fires
// after edits go quiet, reads the buffer at fire time and reloads the
// render target. The completion channel fires after edits or cursor moves
// go quiet and recomputes suggestions.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/scenepad/internal/engine/buffer"
	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/render"
	"github.com/dshills/scenepad/internal/rewrite"
)

// Default quiet periods.
const (
	DefaultContentDelay    = 500 * time.Millisecond
	DefaultCompletionDelay = 1000 * time.Millisecond
)

// Transform rewrites content on its way to the render target. A transform
// that fails leaves content unchanged.
type Transform func(content string) (string, error)

// Config holds the channel delays.
type Config struct {
	ContentDelay    time.Duration
	CompletionDelay time.Duration
}

// DefaultConfig returns the default delays.
func DefaultConfig() Config {
	return Config{
		ContentDelay:    DefaultContentDelay,
		CompletionDelay: DefaultCompletionDelay,
	}
}

// Stats counts pipeline activity.
type Stats struct {
	Reloads     uint64
	Skipped     uint64
	Failures    uint64
	Suggestions uint64
	LastHandle  render.Handle
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRewriter sets the compatibility rewrite applied before reload.
func WithRewriter(rw *rewrite.Rewriter) Option {
	return func(p *Pipeline) { p.rw = rw }
}

// WithStore sets the resource store handles are materialized in.
func WithStore(s *render.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithTransform appends a content transform run after the rewrite.
func WithTransform(t Transform) Option {
	return func(p *Pipeline) { p.transforms = append(p.transforms, t) }
}

// WithAfterReload registers fn to run after each successful reload with
// the snapshot that was sent.
func WithAfterReload(fn func(buffer.Snapshot)) Option {
	return func(p *Pipeline) { p.afterReload = fn }
}

// WithCompletion sets the completion channel consumer.
func WithCompletion(fn func(buffer.Point)) Option {
	return func(p *Pipeline) { p.suggest = fn }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline wires a buffer to a render target through two debounced
// channels.
type Pipeline struct {
	buf         *buffer.Buffer
	rw          *rewrite.Rewriter
	store       *render.Store
	transforms  []Transform
	afterReload func(buffer.Snapshot)
	suggest     func(buffer.Point)
	logger      *logging.Logger

	content    *Channel[buffer.Snapshot]
	completion *Channel[buffer.Point]

	mu     sync.Mutex
	target render.Target
	ctx    context.Context
	unsubs []func()
	last   render.Handle

	// runMu serializes content cycles so handles are revoked in order.
	runMu sync.Mutex

	reloads     atomic.Uint64
	skipped     atomic.Uint64
	failures    atomic.Uint64
	suggestions atomic.Uint64
}

// New creates a pipeline for buf.
func New(buf *buffer.Buffer, cfg Config, opts ...Option) *Pipeline {
	if cfg.ContentDelay <= 0 {
		cfg.ContentDelay = DefaultContentDelay
	}
	if cfg.CompletionDelay <= 0 {
		cfg.CompletionDelay = DefaultCompletionDelay
	}

	p := &Pipeline{
		buf:    buf,
		logger: logging.Nop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rw == nil {
		p.rw = rewrite.New(rewrite.DefaultRule())
	}
	if p.store == nil {
		p.store = render.NewStore()
	}
	p.logger = p.logger.WithComponent("pipeline")

	p.content = NewChannel(cfg.ContentDelay, buf.Snapshot, p.fireContent)
	p.completion = NewChannel(cfg.CompletionDelay, buf.Cursor, p.fireCompletion)
	return p
}

// Store returns the resource store.
func (p *Pipeline) Store() *render.Store {
	return p.store
}

// SetTarget attaches the render target. A nil target detaches it.
func (p *Pipeline) SetTarget(t render.Target) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.target = t
}

// Start subscribes to buffer events. Reloads issued from debounced fires
// use ctx until Stop.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.unsubs) > 0 {
		return
	}
	p.ctx = ctx
	p.unsubs = append(p.unsubs,
		p.buf.OnMutate(func(buffer.Change) {
			p.content.Trigger()
			p.completion.Trigger()
		}),
		p.buf.OnCursor(func(buffer.Point) {
			p.completion.Trigger()
		}),
	)
}

// Stop unsubscribes and drops pending fires.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	p.content.Cancel()
	p.completion.Cancel()
}

// Flush fires both channels now if they are pending.
func (p *Pipeline) Flush() {
	p.content.Flush()
	p.completion.Flush()
}

// SetDelays changes the channel delays for calls made from now on.
func (p *Pipeline) SetDelays(cfg Config) {
	if cfg.ContentDelay > 0 {
		p.content.SetDelay(cfg.ContentDelay)
	}
	if cfg.CompletionDelay > 0 {
		p.completion.SetDelay(cfg.CompletionDelay)
	}
}

// ReloadNow runs one content cycle immediately and disarms the content
// channel.
func (p *Pipeline) ReloadNow(ctx context.Context) error {
	p.content.Cancel()
	return p.reload(ctx, p.buf.Snapshot())
}

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	last := p.last
	p.mu.Unlock()
	return Stats{
		Reloads:     p.reloads.Load(),
		Skipped:     p.skipped.Load(),
		Failures:    p.failures.Load(),
		Suggestions: p.suggestions.Load(),
		LastHandle:  last,
	}
}

func (p *Pipeline) fireContent(snap buffer.Snapshot) {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	if err := p.reload(ctx, snap); err != nil && !errors.Is(err, render.ErrNoTarget) {
		p.logger.Warn("reload failed: %v", err)
	}
}

// reload sends snap, or the current buffer if snap has been superseded by
// the time the previous cycle finishes.
func (p *Pipeline) reload(ctx context.Context, snap buffer.Snapshot) error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target == nil {
		p.skipped.Add(1)
		return render.ErrNoTarget
	}

	if snap.Revision() != p.buf.Revision() {
		snap = p.buf.Snapshot()
	}
	content := p.rw.Inject(snap.Text())
	for _, t := range p.transforms {
		out, err := t(content)
		if err != nil {
			p.logger.Warn("transform failed: %v", err)
			continue
		}
		content = out
	}

	h := p.store.Materialize(content)
	if err := target.Reload(ctx, h); err != nil {
		p.store.Revoke(h)
		p.failures.Add(1)
		return err
	}

	p.mu.Lock()
	prev := p.last
	p.last = h
	p.mu.Unlock()
	if prev != "" {
		p.store.Revoke(prev)
	}
	p.reloads.Add(1)
	p.logger.Debug("reloaded revision %s as %s", snap.Revision(), h)

	if p.afterReload != nil {
		p.afterReload(snap)
	}
	return nil
}

func (p *Pipeline) fireCompletion(cursor buffer.Point) {
	if p.suggest == nil {
		return
	}
	p.suggest(cursor)
	p.suggestions.Add(1)
}
