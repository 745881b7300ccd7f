// Package speedtest fabricates a bandwidth test. It walks a fixed sequence
// of phases with live random readouts, then draws the final figures afresh.
package speedtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sloppy/nettools/internal/sim"
)

// Phase is a state of the test. The order is fixed:
// idle -> ping -> download -> upload -> complete.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePing     Phase = "ping"
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
	PhaseComplete Phase = "complete"
)

// Placeholders reported with every outcome.
const (
	ServerLabel = "Test Server - New York, NY"
	ClientIP    = "192.168.1.100"
)

// ErrBusy is returned when Run is called outside idle or Reset during a run.
var ErrBusy = errors.New("speed test is not idle")

// Outcome is the frozen result of a finished run.
type Outcome struct {
	DownloadMbps float64 `json:"download_mbps"`
	UploadMbps   float64 `json:"upload_mbps"`
	PingMs       int     `json:"ping_ms"`
	JitterMs     int     `json:"jitter_ms"`
	ServerLabel  string  `json:"server"`
	ClientIP     string  `json:"ip"`
}

// Snapshot is emitted on every tick.
type Snapshot struct {
	Phase       Phase    `json:"phase"`
	Progress    int      `json:"progress"`
	CurrentMbps float64  `json:"current_mbps"`
	Outcome     *Outcome `json:"outcome,omitempty"`
}

type stage struct {
	phase    Phase
	step     int
	tick     time.Duration
	lo, hi   float64
	readouts bool
}

var stages = []stage{
	{phase: PhasePing, step: 10, tick: 100 * time.Millisecond},
	{phase: PhaseDownload, step: 5, tick: 150 * time.Millisecond, lo: 50, hi: 150, readouts: true},
	{phase: PhaseUpload, step: 5, tick: 150 * time.Millisecond, lo: 20, hi: 70, readouts: true},
}

// Runner is a single speed test. It is re-used through Reset.
type Runner struct {
	Rand  sim.Rand
	Clock sim.Clock

	mu      sync.Mutex
	phase   Phase
	running bool
	outcome *Outcome
}

// NewRunner returns an idle Runner.
func NewRunner(r sim.Rand, c sim.Clock) *Runner {
	return &Runner{Rand: r, Clock: c, phase: PhaseIdle}
}

// Phase returns the current phase.
func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Outcome returns the result once the run is complete.
func (r *Runner) Outcome() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == nil {
		return Outcome{}, false
	}
	return *r.outcome, true
}

// Reset returns a finished runner to idle and clears its outcome.
func (r *Runner) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrBusy
	}
	r.phase = PhaseIdle
	r.outcome = nil
	return nil
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
}

// Run drives the phases in order. The live readouts are only for display;
// the outcome is drawn independently once upload finishes. If ctx ends the
// runner drops back to idle with no outcome.
func (r *Runner) Run(ctx context.Context, emit func(Snapshot)) (Outcome, error) {
	r.mu.Lock()
	if r.running || r.phase != PhaseIdle {
		r.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	for _, st := range stages {
		r.setPhase(st.phase)
		for progress := 0; progress <= 100; progress += st.step {
			snap := Snapshot{Phase: st.phase, Progress: progress}
			if st.readouts {
				snap.CurrentMbps = sim.Uniform(r.Rand, st.lo, st.hi)
			}
			if emit != nil {
				emit(snap)
			}
			if err := r.Clock.Sleep(ctx, st.tick); err != nil {
				r.setPhase(PhaseIdle)
				return Outcome{}, err
			}
		}
	}

	out := Outcome{
		DownloadMbps: sim.Truncate2(sim.Uniform(r.Rand, 75, 125)),
		UploadMbps:   sim.Truncate2(sim.Uniform(r.Rand, 35, 65)),
		PingMs:       sim.UniformInt(r.Rand, 10, 30),
		JitterMs:     sim.UniformInt(r.Rand, 1, 6),
		ServerLabel:  ServerLabel,
		ClientIP:     ClientIP,
	}
	r.mu.Lock()
	r.phase = PhaseComplete
	r.outcome = &out
	r.mu.Unlock()
	if emit != nil {
		final := out
		emit(Snapshot{Phase: PhaseComplete, Progress: 100, Outcome: &final})
	}
	return out, nil
}
