// Package countdown drives the attempt deadline. The timer recomputes the
// remaining time from the absolute deadline on every tick, so a paused or
// backgrounded process cannot stretch the allowed duration.
package countdown

import (
	"sync"
	"time"
)

// Timer watches an absolute deadline and fires an expiry callback exactly
// once when it passes. A nil Timer is valid and does nothing, which is how
// quizzes without a time limit are handled.
type Timer struct {
	deadline time.Time
	interval time.Duration

	onTick   func(remaining time.Duration)
	onExpire func()

	now func() time.Time

	mu      sync.Mutex
	expired bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval overrides the tick interval. The default is one second.
func WithInterval(d time.Duration) Option {
	return func(t *Timer) { t.interval = d }
}

// WithClock is test-only for deterministic time.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) { t.now = now }
}

// WithTickFunc registers a callback invoked with the remaining duration on
// every tick, including the final zero tick.
func WithTickFunc(fn func(remaining time.Duration)) Option {
	return func(t *Timer) { t.onTick = fn }
}

// New builds a timer for a quiz started at startedAt with a time limit in
// minutes. Returns nil when timeLimit is nil.
func New(startedAt time.Time, timeLimit *int, onExpire func(), opts ...Option) *Timer {
	if timeLimit == nil {
		return nil
	}

	t := &Timer{
		deadline: startedAt.Add(time.Duration(*timeLimit) * time.Minute),
		interval: time.Second,
		onExpire: onExpire,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Remaining returns the time left until the deadline, clamped at zero.
func (t *Timer) Remaining() time.Duration {
	if t == nil {
		return 0
	}
	remaining := t.deadline.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Start runs the tick loop in a goroutine. Safe to call on a nil timer.
func (t *Timer) Start() {
	if t == nil {
		return
	}

	t.mu.Lock()
	if t.started || t.stopped {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.mu.Unlock()

	go t.run()
}

func (t *Timer) run() {
	defer close(t.doneCh)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	// Handle deadlines already in the past at start
	if t.Tick() {
		return
	}

	for {
		select {
		case <-t.stopCh:
			return
		case <-ticker.C:
			if t.Tick() {
				return
			}
		}
	}
}

// Tick evaluates the deadline once and reports whether it has expired. The
// expiry callback runs on the first expired tick only, no matter how many
// ticks observe an elapsed deadline.
func (t *Timer) Tick() bool {
	if t == nil {
		return false
	}

	remaining := t.Remaining()
	if t.onTick != nil {
		t.onTick(remaining)
	}

	if remaining > 0 {
		return false
	}

	t.mu.Lock()
	alreadyExpired := t.expired
	t.expired = true
	t.mu.Unlock()

	if !alreadyExpired && t.onExpire != nil {
		t.onExpire()
	}
	return true
}

// Stop tears the timer down and waits for the tick loop to exit. Safe to
// call on a nil timer, repeatedly, before Start, or from within the expiry
// callback itself. Once expired the loop is already exiting, so Stop does
// not wait for it; that keeps an auto-submit triggered inside a tick from
// deadlocking against its own goroutine.
func (t *Timer) Stop() {
	if t == nil {
		return
	}

	t.mu.Lock()
	alreadyStopped := t.stopped
	t.stopped = true
	started := t.started
	expired := t.expired
	t.mu.Unlock()

	if !alreadyStopped {
		close(t.stopCh)
	}
	if started && !expired {
		<-t.doneCh
	}
}
