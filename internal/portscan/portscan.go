// Package portscan fabricates port-scan results. No port is ever contacted:
// each status is drawn from a weighted random distribution.
package portscan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sloppy/nettools/internal/reference"
	"github.com/sloppy/nettools/internal/sim"
	"github.com/sloppy/nettools/internal/validate"
)

// Status is the fabricated state of one port.
type Status string

const (
	StatusOpen     Status = "open"
	StatusClosed   Status = "closed"
	StatusFiltered Status = "filtered"
)

// Mode selects which ports are scanned.
type Mode string

const (
	ModeCommon Mode = "common"
	ModeRange  Mode = "range"
)

const (
	// PortDelay is the simulated time spent on each port.
	PortDelay = 50 * time.Millisecond

	// MaxRangePorts bounds a range-mode run.
	MaxRangePorts = 100
	MaxPort       = 65535

	openBelow       = 0.10
	closedBelow     = 0.80
	commonOpenBelow = 0.30
)

// ErrBadRange is returned for a range that is not "start-end".
var ErrBadRange = errors.New("invalid port range")

// Result is one probed port. Results are never modified after creation.
type Result struct {
	Port        int    `json:"port"`
	Status      Status `json:"status"`
	Service     string `json:"service"`
	Description string `json:"description"`
}

// Run is a complete scan in scan order.
type Run struct {
	Host           string   `json:"host"`
	Ports          []Result `json:"ports"`
	ScanDurationMs int64    `json:"scan_time_ms"`
}

// Count returns how many results have status s.
func (r Run) Count(s Status) int {
	n := 0
	for _, p := range r.Ports {
		if p.Status == s {
			n++
		}
	}
	return n
}

// Request describes a scan as submitted by a user.
type Request struct {
	Host      string `json:"host" validate:"required,nethost"`
	Mode      Mode   `json:"mode" validate:"omitempty,oneof=common range"`
	PortRange string `json:"port_range"`
}

// Validate trims the request and checks it. Mode defaults to common.
func (r *Request) Validate() error {
	r.Host = strings.TrimSpace(r.Host)
	r.PortRange = strings.TrimSpace(r.PortRange)
	if r.Mode == "" {
		r.Mode = ModeCommon
	}
	return validate.Struct(r)
}

// Progress is emitted after each port.
type Progress struct {
	Index    int     `json:"index"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
	Result   Result  `json:"result"`
}

// ParseRange splits "start-end". A start below 1 is raised to 1 and an end
// past MaxPort is clamped; the result may be empty (start > end).
func ParseRange(spec string) (int, int, error) {
	bounds := strings.SplitN(strings.TrimSpace(spec), "-", 2)
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRange, spec)
	}
	start, err := parseBound(bounds[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRange, spec)
	}
	end, err := parseBound(bounds[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadRange, spec)
	}
	if start < 1 {
		start = 1
	}
	if end > MaxPort {
		end = MaxPort
	}
	return start, end, nil
}

// parseBound reads one side of a range. Out-of-range integers saturate so
// the caller's clamping still applies.
func parseBound(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if errors.Is(err, strconv.ErrRange) {
		return n, nil
	}
	return n, err
}

// Candidates lists the ports a run will visit, in visiting order.
func Candidates(mode Mode, portRange string) ([]int, error) {
	switch mode {
	case ModeCommon, "":
		table := reference.CommonPorts()
		ports := make([]int, 0, len(table))
		for _, p := range table {
			ports = append(ports, p.Port)
		}
		return ports, nil
	case ModeRange:
		start, end, err := ParseRange(portRange)
		if err != nil {
			return nil, err
		}
		var ports []int
		for p := start; p <= end && len(ports) < MaxRangePorts; p++ {
			ports = append(ports, p)
		}
		return ports, nil
	default:
		return nil, fmt.Errorf("unknown scan mode %q", mode)
	}
}

// Scanner draws port states.
type Scanner struct {
	Rand  sim.Rand
	Clock sim.Clock
	Delay time.Duration
}

// New returns a Scanner using PortDelay between ports.
func New(r sim.Rand, c sim.Clock) *Scanner {
	return &Scanner{Rand: r, Clock: c, Delay: PortDelay}
}

// Probe fabricates the result for a single port. A common port gets a second,
// independent chance to come up open; that roll never closes a port.
func (s *Scanner) Probe(port int) Result {
	var status Status
	switch r := s.Rand.Float64(); {
	case r < openBelow:
		status = StatusOpen
	case r < closedBelow:
		status = StatusClosed
	default:
		status = StatusFiltered
	}
	if reference.IsCommonPort(port) && s.Rand.Float64() < commonOpenBelow {
		status = StatusOpen
	}
	info := reference.LookupService(port)
	return Result{Port: port, Status: status, Service: info.Service, Description: info.Description}
}

// Scan walks ports in order, calling emit after each one. On cancellation the
// partial run is returned with ctx's error.
func (s *Scanner) Scan(ctx context.Context, host string, ports []int, emit func(Progress)) (Run, error) {
	run := Run{Host: host, Ports: make([]Result, 0, len(ports))}
	start := s.Clock.Now()
	for i, port := range ports {
		if err := ctx.Err(); err != nil {
			run.ScanDurationMs = s.Clock.Now().Sub(start).Milliseconds()
			return run, err
		}
		res := s.Probe(port)
		run.Ports = append(run.Ports, res)
		if emit != nil {
			emit(Progress{
				Index:    i,
				Total:    len(ports),
				Fraction: float64(i+1) / float64(len(ports)),
				Result:   res,
			})
		}
		if err := s.Clock.Sleep(ctx, s.Delay); err != nil {
			run.ScanDurationMs = s.Clock.Now().Sub(start).Milliseconds()
			return run, err
		}
	}
	run.ScanDurationMs = s.Clock.Now().Sub(start).Milliseconds()
	return run, nil
}
