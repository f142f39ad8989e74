// Package countdown turns a fixed duration in seconds into a decreasing
// remaining-time value and a one-shot expiry signal.
package countdown

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateExpired State = "expired"
	StateStopped State = "stopped"
)

var ErrAlreadyStarted = errors.New("countdown already started")

// Countdown is the Idle -> Running -> {Expired | Stopped} state machine.
// A countdown that is never started (unknown duration from the server)
// stays Idle forever and never fires expiry: the exam is untimed.
type Countdown struct {
	mu        sync.Mutex
	scheduler Scheduler
	state     State
	remaining int
	cancel    func()
	onTick    func(remaining int)
	onExpire  func()
}

// New creates an idle countdown. A nil scheduler falls back to the
// production ticker scheduler.
func New(scheduler Scheduler) *Countdown {
	if scheduler == nil {
		scheduler = NewTickerScheduler()
	}
	return &Countdown{
		scheduler: scheduler,
		state:     StateIdle,
	}
}

// Start moves Idle -> Running and schedules a one-second logical tick.
// onTick observes every new remaining value; onExpire fires exactly once
// when remaining reaches zero. A non-positive duration leaves the countdown
// Idle, matching an untimed exam.
func (c *Countdown) Start(durationSeconds int, onTick func(remaining int), onExpire func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrAlreadyStarted
	}
	if durationSeconds <= 0 {
		return nil
	}

	c.state = StateRunning
	c.remaining = durationSeconds
	c.onTick = onTick
	c.onExpire = onExpire
	c.cancel = c.scheduler.Schedule(time.Second, c.tick)
	return nil
}

func (c *Countdown) tick() {
	c.mu.Lock()
	// A late tick delivered after Stop or after expiry must not fire
	// callbacks again.
	if c.state != StateRunning {
		c.mu.Unlock()
		return
	}

	c.remaining--
	remaining := c.remaining
	onTick := c.onTick

	var onExpire func()
	if remaining <= 0 {
		c.remaining = 0
		remaining = 0
		c.state = StateExpired
		onExpire = c.onExpire
		if c.cancel != nil {
			c.cancel()
		}
	}
	c.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the
	// countdown (or the session controller) safely.
	if onTick != nil {
		onTick(remaining)
	}
	if onExpire != nil {
		onExpire()
	}
}

// Stop moves Running -> Stopped and cancels pending ticks. No callback
// fires after Stop returns a true transition. Stopping an idle, expired or
// already stopped countdown is a no-op.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return
	}
	c.state = StateStopped
	if c.cancel != nil {
		c.cancel()
	}
}

// Remaining returns the current remaining seconds. It never goes negative.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FormatRemaining renders remaining seconds as mm:ss. It is a pure
// projection, not part of the state machine; negative input clamps to
// 00:00.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
