package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// Channel is one debounced channel. Every Trigger pushes the deadline
// back by the quiet period. When the deadline passes the channel calls
// read and hands the value to fire, so a burst of triggers delivers the
// state as of the end of the burst, never a value captured mid-burst.
//
// A channel owns a single timer handle for its whole life. A timer that
// expires while the deadline has since moved re-arms itself for the
// remaining time instead of firing.
type Channel[T any] struct {
	read func() T
	fire func(T)

	mu    sync.Mutex
	delay time.Duration
	due   time.Time // zero while idle
	timer *time.Timer

	fires atomic.Uint64
}

// NewChannel creates an idle channel.
func NewChannel[T any](delay time.Duration, read func() T, fire func(T)) *Channel[T] {
	return &Channel[T]{
		read:  read,
		fire:  fire,
		delay: delay,
	}
}

// Delay returns the quiet period.
func (c *Channel[T]) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// SetDelay changes the quiet period for triggers from now on.
func (c *Channel[T]) SetDelay(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = delay
}

// Trigger arms the channel, or pushes back its deadline if armed.
func (c *Channel[T]) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.due = time.Now().Add(c.delay)
	if c.timer == nil {
		c.timer = time.AfterFunc(c.delay, c.expire)
		return
	}
	c.timer.Reset(c.delay)
}

func (c *Channel[T]) expire() {
	c.mu.Lock()
	if c.due.IsZero() {
		c.mu.Unlock()
		return
	}
	if wait := time.Until(c.due); wait > 0 {
		c.timer.Reset(wait)
		c.mu.Unlock()
		return
	}
	c.due = time.Time{}
	c.mu.Unlock()

	c.deliver()
}

// Flush fires now if the channel is armed.
func (c *Channel[T]) Flush() {
	c.mu.Lock()
	if c.due.IsZero() {
		c.mu.Unlock()
		return
	}
	c.due = time.Time{}
	c.timer.Stop()
	c.mu.Unlock()

	c.deliver()
}

// Cancel disarms the channel without firing.
func (c *Channel[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.due = time.Time{}
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Pending reports whether the channel is armed.
func (c *Channel[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.due.IsZero()
}

// Fires returns how many times the channel has fired.
func (c *Channel[T]) Fires() uint64 {
	return c.fires.Load()
}

func (c *Channel[T]) deliver() {
	c.fires.Add(1)
	c.fire(c.read())
}
