// Package ping fabricates ICMP-style echo results on a fixed tick. No packet
// is sent; each sample's latency and outcome are random draws.
package ping

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/validate"
)

// Status is the outcome of one echo.
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
)

const (
	Interval   = time.Second
	MaxSamples = 20

	minLatencyMs = 10
	maxLatencyMs = 110
	timeoutBelow = 0.05
)

// Sample is one echo. Timeouts report a zero round trip.
type Sample struct {
	Sequence    int    `json:"sequence"`
	RoundTripMs int    `json:"time_ms"`
	Status      Status `json:"status"`
}

// Snapshot is an immutable view of a run after a sample lands.
type Snapshot struct {
	Host    string   `json:"host"`
	Samples []Sample `json:"samples"`
	Stats   Stats    `json:"stats"`

	// CurrentMs is the latest successful round trip, nil after a timeout.
	CurrentMs *int `json:"current_ms,omitempty"`
	Stopped   bool `json:"stopped"`
}

// Request is a ping as submitted by a user.
type Request struct {
	Host string `json:"host" validate:"required,nethost"`
}

// Validate trims and checks the host.
func (r *Request) Validate() error {
	r.Host = strings.TrimSpace(r.Host)
	return validate.Struct(r)
}

// Band classifies latency for display.
type Band string

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// LatencyBand buckets a round trip: under 50ms good, under 100ms fair.
func LatencyBand(ms int) Band {
	switch {
	case ms < 50:
		return BandGood
	case ms < 100:
		return BandFair
	default:
		return BandPoor
	}
}

// Runner produces up to MaxSamples samples, one per Interval.
type Runner struct {
	Host       string
	Rand       sim.Rand
	Clock      sim.Clock
	Interval   time.Duration
	MaxSamples int

	stopped atomic.Bool
}

// NewRunner returns a Runner with the standard interval and sample cap.
func NewRunner(host string, r sim.Rand, c sim.Clock) *Runner {
	return &Runner{Host: host, Rand: r, Clock: c, Interval: Interval, MaxSamples: MaxSamples}
}

// Stop asks the run to finish. A tick that is already scheduled still lands.
func (r *Runner) Stop() {
	r.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (r *Runner) Stopped() bool {
	return r.stopped.Load()
}

// Run ticks until MaxSamples, Stop, or ctx ends, emitting a Snapshot per
// sample. The returned Snapshot is the final state; it is marked Stopped
// when ctx ended the run early.
func (r *Runner) Run(ctx context.Context, emit func(Snapshot)) (Snapshot, error) {
	var samples []Sample
	last := r.snapshot(samples)
	for len(samples) < r.MaxSamples {
		if r.stopped.Load() {
			break
		}
		if err := r.Clock.Sleep(ctx, r.Interval); err != nil {
			last.Stopped = true
			return last, err
		}
		sample, delay := r.draw(len(samples) + 1)
		if err := r.Clock.Sleep(ctx, delay); err != nil {
			last.Stopped = true
			return last, err
		}
		samples = append(samples, sample)
		last = r.snapshot(samples)
		if emit != nil {
			emit(last)
		}
	}
	last.Stopped = r.stopped.Load() && len(samples) < r.MaxSamples
	return last, nil
}

// draw fabricates the sample for seq and the artificial delay before it
// resolves, which is the drawn latency even when the sample times out.
func (r *Runner) draw(seq int) (Sample, time.Duration) {
	latency := sim.UniformInt(r.Rand, minLatencyMs, maxLatencyMs)
	success := r.Rand.Float64() > timeoutBelow
	s := Sample{Sequence: seq, Status: StatusTimeout}
	if success {
		s.Status = StatusSuccess
		s.RoundTripMs = latency
	}
	return s, time.Duration(latency) * time.Millisecond
}

func (r *Runner) snapshot(samples []Sample) Snapshot {
	cp := append([]Sample(nil), samples...)
	snap := Snapshot{Host: r.Host, Samples: cp, Stats: Compute(cp)}
	if n := len(cp); n > 0 && cp[n-1].Status == StatusSuccess {
		ms := cp[n-1].RoundTripMs
		snap.CurrentMs = &ms
	}
	return snap
}
