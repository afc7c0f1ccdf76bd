package buffer

import "sync"

// ChangeKind identifies the edit that produced a Change.
type ChangeKind uint8

const (
	// ChangeReset replaces the whole buffer.
	ChangeReset ChangeKind = iota
	// ChangeInsert adds lines or text.
	ChangeInsert
	// ChangeDelete removes lines or text.
	ChangeDelete
	// ChangeReplace rewrites lines in place.
	ChangeReplace
)

// String returns the string representation of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case ChangeReset:
		return "reset"
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// Change describes one buffer mutation.
type Change struct {
	Kind      ChangeKind
	StartLine int // first affected line
	OldLines  int // lines covered before the edit
	NewLines  int // lines covered after the edit
	Revision  string
}

// MutateFunc is called after every buffer mutation.
type MutateFunc func(Change)

// CursorFunc is called after the cursor or selection moves.
type CursorFunc func(Point)

// subscribers holds the registered handlers for one event kind.
type subscribers[F any] struct {
	mu      sync.Mutex
	nextID  uint64
	entries []subscriber[F]
}

type subscriber[F any] struct {
	id uint64
	fn F
}

func (s *subscribers[F]) add(fn F) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.entries = append(s.entries, subscriber[F]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, e := range s.entries {
				if e.id == id {
					s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// snapshot returns the handlers in registration order.
func (s *subscribers[F]) snapshot() []F {
	s.mu.Lock()
	defer s.mu.Unlock()
	fns := make([]F, len(s.entries))
	for i, e := range s.entries {
		fns[i] = e.fn
	}
	return fns
}

// OnMutate registers fn to run after every mutation.
// The returned function removes the subscription.
func (b *Buffer) OnMutate(fn MutateFunc) (unsubscribe func()) {
	return b.mutateSubs.add(fn)
}

// OnCursor registers fn to run after the cursor or selection moves.
// The returned function removes the subscription.
func (b *Buffer) OnCursor(fn CursorFunc) (unsubscribe func()) {
	return b.cursorSubs.add(fn)
}

func (b *Buffer) emitMutate(c Change) {
	for _, fn := range b.mutateSubs.snapshot() {
		fn(c)
	}
}

func (b *Buffer) emitCursor(p Point) {
	for _, fn := range b.cursorSubs.snapshot() {
		fn(p)
	}
}
