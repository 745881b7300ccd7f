package testutil

import (
	"context"
	"sync"
	"time"
)

// SeqRand replays a fixed sequence of draws, wrapping around at the end.
// An empty sequence always yields 0.
type SeqRand struct {
	mu     sync.Mutex
	Values []float64
	next   int
}

// NewSeqRand returns a SeqRand replaying values.
func NewSeqRand(values ...float64) *SeqRand {
	return &SeqRand{Values: values}
}

func (r *SeqRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Values) == 0 {
		return 0
	}
	v := r.Values[r.next%len(r.Values)]
	r.next++
	return v
}

// Draws reports how many values have been consumed.
func (r *SeqRand) Draws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}

var fakeEpoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// FakeClock advances its own time on Sleep instead of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	slept  []time.Duration
	onTick func(n int)
}

// NewFakeClock starts a clock at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: fakeEpoch}
}

// OnSleep registers fn to run after every Sleep with the number of sleeps so far.
func (c *FakeClock) OnSleep(fn func(n int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	n := len(c.slept)
	fn := c.onTick
	c.mu.Unlock()
	if fn != nil {
		fn(n)
	}
	return ctx.Err()
}

// Slept returns a copy of every duration passed to Sleep.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// GateClock blocks every Sleep until the test lets it through with Release
// or Open. Time advances by the slept duration once a sleep is released.
type GateClock struct {
	FakeClock
	gate chan struct{}
	once sync.Once
}

// NewGateClock returns a closed gate.
func NewGateClock() *GateClock {
	return &GateClock{FakeClock: FakeClock{now: fakeEpoch}, gate: make(chan struct{})}
}

func (c *GateClock) Sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-c.gate:
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.FakeClock.Sleep(ctx, d)
}

// Release lets n pending or future sleeps through, blocking until each is taken.
func (c *GateClock) Release(n int) {
	for i := 0; i < n; i++ {
		c.gate <- struct{}{}
	}
}

// Open lets every remaining sleep through.
func (c *GateClock) Open() {
	c.once.Do(func() { close(c.gate) })
}
