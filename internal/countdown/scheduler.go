package countdown

import (
	"sync"
	"time"
)

// Scheduler produces the periodic tick that drives a countdown. Owning the
// tick source behind an interface keeps start/stop lifecycle in one place
// and lets tests advance time deterministically.
type Scheduler interface {
	// Schedule invokes fn every interval until the returned cancel
	// function is called. Cancel is safe to call more than once.
	Schedule(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler is the production scheduler backed by time.Ticker.
type TickerScheduler struct{}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

func (s *TickerScheduler) Schedule(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
		})
	}
}

// ManualScheduler is a test scheduler whose ticks are driven explicitly via
// Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	fn     func()
	active bool
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(interval time.Duration, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = fn
	s.active = true

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.active = false
	}
}

// Advance fires n ticks, stopping early if the schedule was cancelled.
func (s *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fn, active := s.fn, s.active
		s.mu.Unlock()

		if !active || fn == nil {
			return
		}
		fn()
	}
}

// Active reports whether the schedule is still running.
func (s *ManualScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
