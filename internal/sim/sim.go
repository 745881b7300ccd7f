// Package sim holds the random source and clock shared by the diagnostic
// simulators. Nothing here touches the network.
package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Rand yields uniform draws in [0,1).
type Rand interface {
	Float64() float64
}

// Clock tells time and waits. Sleep returns early with ctx.Err() when ctx ends.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// NewRand returns a goroutine-safe Rand seeded from the runtime.
func NewRand() Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededRand returns a reproducible Rand.
func NewSeededRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type realClock struct{}

// RealClock is backed by time.Now and a timer.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Uniform maps a draw onto [lo,hi).
func Uniform(r Rand, lo, hi float64) float64 {
	return r.Float64()*(hi-lo) + lo
}

// UniformInt maps a draw onto the integers [lo,hi).
func UniformInt(r Rand, lo, hi int) int {
	v := lo + int(math.Floor(r.Float64()*float64(hi-lo)))
	if v >= hi {
		v = hi - 1
	}
	return v
}

// Truncate2 drops everything past the second decimal.
func Truncate2(v float64) float64 {
	return math.Floor(v*100) / 100
}
