package countdown

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func minutes(n int) *int { return &n }

func TestNew_NilTimeLimit(t *testing.T) {
	timer := New(time.Now(), nil, func() { t.Error("expiry fired for unlimited quiz") })
	if timer != nil {
		t.Fatal("expected nil timer for nil time limit")
	}

	// Nil timers are inert
	timer.Start()
	timer.Stop()
	if got := timer.Remaining(); got != 0 {
		t.Errorf("Remaining() = %v, want 0", got)
	}
	if timer.Tick() {
		t.Error("nil timer reported expiry")
	}
}

func TestRemaining_AnchoredToStart(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}

	timer := New(start, minutes(30), func() {}, WithClock(clock.Now))

	if got := timer.Remaining(); got != 30*time.Minute {
		t.Errorf("Remaining() = %v, want 30m", got)
	}

	clock.Advance(10 * time.Minute)
	if got := timer.Remaining(); got != 20*time.Minute {
		t.Errorf("Remaining() after 10m = %v, want 20m", got)
	}

	// Past the deadline it clamps at zero
	clock.Advance(25 * time.Minute)
	if got := timer.Remaining(); got != 0 {
		t.Errorf("Remaining() past deadline = %v, want 0", got)
	}
}

func TestTick_FiresExpiryExactlyOnce(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}

	fired := 0
	timer := New(start, minutes(5), func() { fired++ }, WithClock(clock.Now))

	if timer.Tick() {
		t.Error("Tick() reported expiry before the deadline")
	}
	if fired != 0 {
		t.Fatalf("expiry fired %d times before the deadline", fired)
	}

	clock.Advance(5 * time.Minute)
	for i := 0; i < 3; i++ {
		if !timer.Tick() {
			t.Errorf("Tick() #%d after deadline reported not expired", i)
		}
	}
	if fired != 1 {
		t.Errorf("expiry fired %d times, want 1", fired)
	}
}

func TestTick_ReportsRemaining(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}

	var seen []time.Duration
	timer := New(start, minutes(2), func() {},
		WithClock(clock.Now),
		WithTickFunc(func(remaining time.Duration) { seen = append(seen, remaining) }))

	timer.Tick()
	clock.Advance(time.Minute)
	timer.Tick()
	clock.Advance(2 * time.Minute)
	timer.Tick()

	want := []time.Duration{2 * time.Minute, time.Minute, 0}
	if len(seen) != len(want) {
		t.Fatalf("tick callbacks = %d, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("tick %d remaining = %v, want %v", i, seen[i], want[i])
		}
	}
}

func TestStartStop(t *testing.T) {
	start := time.Now()

	fired := make(chan struct{}, 1)
	timer := New(start, minutes(60), func() { fired <- struct{}{} },
		WithInterval(time.Millisecond))

	timer.Start()
	timer.Stop()

	select {
	case <-fired:
		t.Error("expiry fired after Stop with 60m remaining")
	case <-time.After(10 * time.Millisecond):
	}

	// Stop is idempotent
	timer.Stop()
}

func TestStart_DeadlineAlreadyPassed(t *testing.T) {
	start := time.Now().Add(-2 * time.Hour)

	fired := make(chan struct{}, 1)
	timer := New(start, minutes(60), func() { fired <- struct{}{} },
		WithInterval(time.Millisecond))

	timer.Start()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("expiry did not fire for an elapsed deadline")
	}

	timer.Stop()
}
