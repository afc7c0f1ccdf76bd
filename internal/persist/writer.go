package persist

import (
	"time"

	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/pipeline"
)

// DefaultDelay is the quiet period before state is written.
const DefaultDelay = 500 * time.Millisecond

// Writer saves session state after changes go quiet. Capture is called at
// write time, so the saved state is always current.
type Writer struct {
	store  Store
	logger *logging.Logger
	ch     *pipeline.Channel[SessionState]
}

// NewWriter creates a writer. A delay of zero uses DefaultDelay.
func NewWriter(store Store, delay time.Duration, capture func() SessionState, logger *logging.Logger) *Writer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = logging.Nop()
	}
	w := &Writer{
		store:  store,
		logger: logger.WithComponent("persist"),
	}
	w.ch = pipeline.NewChannel(delay, capture, w.write)
	return w
}

// Touch schedules a write.
func (w *Writer) Touch() {
	w.ch.Trigger()
}

// Flush writes now if a write is pending.
func (w *Writer) Flush() {
	w.ch.Flush()
}

// Stop drops a pending write.
func (w *Writer) Stop() {
	w.ch.Cancel()
}

func (w *Writer) write(state SessionState) {
	if err := Save(w.store, state); err != nil {
		w.logger.Warn("failed to save session: %v", err)
	}
}
