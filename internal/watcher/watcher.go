// Package watcher reports changes made on disk to the open style file by
// other programs.
//
// The parent directory is watched instead of the file, so that editors
// which save by writing a temp file and renaming it over the original are
// still observed. Bursts of events are coalesced into one notification.
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/pipeline"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay is the quiet period before a change is reported.
const DefaultDelay = 100 * time.Millisecond

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Stats provides watcher status information.
type Stats struct {
	// Events is the number of relevant file system events seen.
	Events int64
	// Changes is the number of change notifications delivered.
	Changes int64
	// Errors is the number of watcher errors.
	Errors int64
	// LastError is the most recent watcher error.
	LastError error
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDelay sets the coalescing delay.
func WithDelay(d time.Duration) Option {
	return func(w *FileWatcher) { w.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *FileWatcher) { w.logger = l }
}

// FileWatcher watches one file.
type FileWatcher struct {
	mu sync.Mutex

	watcher  *fsnotify.Watcher
	path     string
	delay    time.Duration
	logger   *logging.Logger
	onChange func(path string)
	ch       *pipeline.Channel[error]

	events    atomic.Int64
	changes   atomic.Int64
	errs      atomic.Int64
	lastError error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// New starts watching path. onChange runs on the watcher's goroutine
// after changes to the file go quiet.
func New(path string, onChange func(path string), opts ...Option) (*FileWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(absPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPathNotExist
		}
		return nil, err
	}

	w := &FileWatcher{
		path:     absPath,
		delay:    DefaultDelay,
		logger:   logging.Nop(),
		onChange: onChange,
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.WithComponent("watcher")
	w.ch = pipeline.NewChannel(w.delay, w.stat, w.notify)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// Close stops the watcher. Pending notifications are dropped.
func (w *FileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	w.ch.Cancel()
	return w.watcher.Close()
}

// Stats returns watcher statistics.
func (w *FileWatcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Events:    w.events.Load(),
		Changes:   w.changes.Load(),
		Errors:    w.errs.Load(),
		LastError: w.lastError,
	}
}

func (w *FileWatcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
		}
	}
}

func (w *FileWatcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	w.events.Add(1)
	w.ch.Trigger()
}

func (w *FileWatcher) stat() error {
	_, err := os.Stat(w.path)
	return err
}

func (w *FileWatcher) notify(statErr error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}
	// A rename away with nothing put back is not a change we can load.
	if statErr != nil {
		w.logger.Debug("skipping change, %s is gone", w.path)
		return
	}
	w.changes.Add(1)
	w.onChange(w.path)
}

func (w *FileWatcher) recordError(err error) {
	w.errs.Add(1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
	w.logger.Warn("watch error: %v", err)
}
