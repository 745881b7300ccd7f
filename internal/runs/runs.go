// Package runs keeps track of live simulator runs. Each run executes in its
// own goroutine; callers observe it through immutable snapshots.
package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sloppy/nettools/internal/ping"
	"github.com/sloppy/nettools/internal/portscan"
	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/speedtest"
	"github.com/sloppy/nettools/internal/validate"
)

// Kind names the simulator behind a run.
type Kind string

const (
	KindScan  Kind = "scan"
	KindPing  Kind = "ping"
	KindSpeed Kind = "speed"
)

// State is the lifecycle position of a run.
type State string

const (
	StateRunning  State = "running"
	StateComplete State = "complete"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

var (
	// ErrNotFound is returned for an unknown run id.
	ErrNotFound = errors.New("run not found")
	// ErrActive is returned when an operation needs a finished run.
	ErrActive = errors.New("run is still active")
)

// ScanState is the scan-specific part of a snapshot.
type ScanState struct {
	Mode      portscan.Mode `json:"mode"`
	PortRange string        `json:"port_range,omitempty"`
	Total     int           `json:"total"`
	Run       portscan.Run  `json:"run"`
}

// Snapshot is a point-in-time copy of a run. Exactly one of Scan, Ping and
// Speed is set, matching Kind.
type Snapshot struct {
	ID         string     `json:"id"`
	Kind       Kind       `json:"kind"`
	State      State      `json:"state"`
	Progress   int        `json:"progress"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`

	Scan  *ScanState          `json:"scan,omitempty"`
	Ping  *ping.Snapshot      `json:"ping,omitempty"`
	Speed *speedtest.Snapshot `json:"speed,omitempty"`
}

// Done reports whether the run has left the running state.
func (s Snapshot) Done() bool {
	return s.State != StateRunning
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		out.FinishedAt = &t
	}
	if s.Scan != nil {
		sc := *s.Scan
		sc.Run.Ports = append([]portscan.Result(nil), s.Scan.Run.Ports...)
		out.Scan = &sc
	}
	if s.Ping != nil {
		p := *s.Ping
		p.Samples = append([]ping.Sample(nil), s.Ping.Samples...)
		if s.Ping.CurrentMs != nil {
			ms := *s.Ping.CurrentMs
			p.CurrentMs = &ms
		}
		out.Ping = &p
	}
	if s.Speed != nil {
		sp := *s.Speed
		if s.Speed.Outcome != nil {
			o := *s.Speed.Outcome
			sp.Outcome = &o
		}
		out.Speed = &sp
	}
	return out
}

// Store persists finished runs.
type Store interface {
	SaveScan(id string, scan ScanState) error
	SavePing(id string, snap ping.Snapshot) error
	SaveSpeed(id string, out speedtest.Outcome) error
}

type entry struct {
	mu     sync.Mutex
	snap   Snapshot
	cancel context.CancelFunc
	stop   func()
	speed  *speedtest.Runner
	done   chan struct{}
}

func (e *entry) update(fn func(*Snapshot)) {
	e.mu.Lock()
	fn(&e.snap)
	e.mu.Unlock()
}

func (e *entry) snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap.clone()
}

// Manager owns every live and finished run until it is reset.
type Manager struct {
	Rand   sim.Rand
	Clock  sim.Clock
	Store  Store
	Logger *slog.Logger

	// ScanDelay and PingInterval override the simulator pacing when non-zero.
	ScanDelay    time.Duration
	PingInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs map[string]*entry
	wg   sync.WaitGroup

	// speed is shared by every speed test; speedID is the latest one.
	speedMu sync.Mutex
	speed   *speedtest.Runner
	speedID string
}

// NewManager returns a Manager. store may be nil to skip persistence.
func NewManager(r sim.Rand, c sim.Clock, store Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		Rand:   r,
		Clock:  c,
		Store:  store,
		Logger: logger,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]*entry),
	}
}

// launch registers e, applies init to its first snapshot and starts body in
// a goroutine under a per-run context.
func (m *Manager) launch(kind Kind, e *entry, init func(*Snapshot), body func(ctx context.Context) error) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(m.ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.snap = Snapshot{ID: id, Kind: kind, State: StateRunning, StartedAt: m.Clock.Now()}
	init(&e.snap)

	m.mu.Lock()
	m.runs[id] = e
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer close(e.done)
		defer cancel()
		err := body(ctx)
		m.finish(e, err)
	}()
	return id
}

func (m *Manager) finish(e *entry, err error) {
	now := m.Clock.Now()
	var snap Snapshot
	e.update(func(s *Snapshot) {
		s.FinishedAt = &now
		switch {
		case err == nil && s.Ping != nil && s.Ping.Stopped:
			s.State = StateStopped
		case err == nil:
			s.State = StateComplete
			s.Progress = 100
		case errors.Is(err, context.Canceled):
			s.State = StateStopped
		default:
			s.State = StateFailed
			s.Error = err.Error()
		}
		snap = s.clone()
	})
	m.Logger.Info("run finished", "id", snap.ID, "kind", snap.Kind, "state", snap.State)
	m.persist(snap)
}

func (m *Manager) persist(snap Snapshot) {
	if m.Store == nil || snap.State == StateFailed {
		return
	}
	var err error
	switch {
	case snap.Scan != nil && len(snap.Scan.Run.Ports) > 0:
		err = m.Store.SaveScan(snap.ID, *snap.Scan)
	case snap.Ping != nil && len(snap.Ping.Samples) > 0:
		err = m.Store.SavePing(snap.ID, *snap.Ping)
	case snap.Speed != nil && snap.Speed.Outcome != nil:
		err = m.Store.SaveSpeed(snap.ID, *snap.Speed.Outcome)
	default:
		return
	}
	if err != nil {
		m.Logger.Error("persist run", "id", snap.ID, "kind", snap.Kind, "err", err)
	}
}

// StartScan validates req and starts a port scan.
func (m *Manager) StartScan(req portscan.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	ports, err := portscan.Candidates(req.Mode, req.PortRange)
	if errors.Is(err, portscan.ErrBadRange) {
		return "", validate.Errors{{Field: "port_range", Message: validate.MsgRangeInvalid}}
	}
	if err != nil {
		return "", err
	}

	scanner := portscan.New(m.Rand, m.Clock)
	if m.ScanDelay > 0 {
		scanner.Delay = m.ScanDelay
	}
	e := &entry{}
	initScan := func(s *Snapshot) {
		s.Scan = &ScanState{
			Mode:      req.Mode,
			PortRange: req.PortRange,
			Total:     len(ports),
			Run:       portscan.Run{Host: req.Host},
		}
	}
	id := m.launch(KindScan, e, initScan, func(ctx context.Context) error {
		run, err := scanner.Scan(ctx, req.Host, ports, func(p portscan.Progress) {
			e.update(func(s *Snapshot) {
				s.Progress = int(p.Fraction * 100)
				s.Scan.Run.Ports = append(s.Scan.Run.Ports, p.Result)
			})
		})
		e.update(func(s *Snapshot) { s.Scan.Run = run })
		return err
	})
	m.Logger.Info("run started", "id", id, "kind", KindScan, "host", req.Host, "ports", len(ports))
	return id, nil
}

// StartPing validates req and starts a ping run.
func (m *Manager) StartPing(req ping.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	runner := ping.NewRunner(req.Host, m.Rand, m.Clock)
	if m.PingInterval > 0 {
		runner.Interval = m.PingInterval
	}
	e := &entry{stop: runner.Stop}
	initPing := func(s *Snapshot) { s.Ping = &ping.Snapshot{Host: req.Host} }
	id := m.launch(KindPing, e, initPing, func(ctx context.Context) error {
		last, err := runner.Run(ctx, func(snap ping.Snapshot) {
			e.update(func(s *Snapshot) {
				s.Progress = len(snap.Samples) * 100 / runner.MaxSamples
				s.Ping = &snap
			})
		})
		e.update(func(s *Snapshot) { s.Ping = &last })
		return err
	})
	m.Logger.Info("run started", "id", id, "kind", KindPing, "host", req.Host)
	return id, nil
}

// StartSpeed starts a speed test. Only one speed test runs at a time, and a
// completed one must be Reset before the next starts.
func (m *Manager) StartSpeed() (string, error) {
	m.speedMu.Lock()
	defer m.speedMu.Unlock()

	if m.speed == nil {
		m.speed = speedtest.NewRunner(m.Rand, m.Clock)
	}
	if m.speedID != "" {
		if e, err := m.lookup(m.speedID); err == nil && !e.snapshot().Done() {
			return "", speedtest.ErrBusy
		}
	}
	if m.speed.Phase() != speedtest.PhaseIdle {
		return "", speedtest.ErrBusy
	}

	runner := m.speed
	e := &entry{speed: runner}
	initSpeed := func(s *Snapshot) { s.Speed = &speedtest.Snapshot{Phase: speedtest.PhaseIdle} }
	id := m.launch(KindSpeed, e, initSpeed, func(ctx context.Context) error {
		_, err := runner.Run(ctx, func(snap speedtest.Snapshot) {
			e.update(func(s *Snapshot) {
				s.Progress = snap.Progress
				s.Speed = &snap
			})
		})
		return err
	})
	m.speedID = id
	m.Logger.Info("run started", "id", id, "kind", KindSpeed)
	return id, nil
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// Snapshot returns the current state of a run.
func (m *Manager) Snapshot(id string) (Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return e.snapshot(), nil
}

// List returns every known run, oldest first.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	out := make([]Snapshot, 0, len(m.runs))
	for _, e := range m.runs {
		out = append(out, e.snapshot())
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Stop asks a run to end. A ping finishes its in-flight sample first; other
// kinds are cancelled. Stopping a finished run is a no-op.
func (m *Manager) Stop(id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if e.snapshot().Done() {
		return nil
	}
	if e.stop != nil {
		e.stop()
	} else {
		e.cancel()
	}
	m.Logger.Info("run stop requested", "id", id)
	return nil
}

// Reset forgets a finished run. Resetting the latest speed test returns the
// speed runner to idle.
func (m *Manager) Reset(id string) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if !e.snapshot().Done() {
		return ErrActive
	}
	if e.speed != nil {
		m.speedMu.Lock()
		if id == m.speedID {
			if err := e.speed.Reset(); err != nil {
				m.speedMu.Unlock()
				return err
			}
			m.speedID = ""
		}
		m.speedMu.Unlock()
	}
	m.mu.Lock()
	delete(m.runs, id)
	m.mu.Unlock()
	return nil
}

// Wait blocks until the run finishes or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	select {
	case <-e.done:
		return e.snapshot(), nil
	case <-ctx.Done():
		return e.snapshot(), ctx.Err()
	}
}

// Close cancels every live run and waits for them to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
