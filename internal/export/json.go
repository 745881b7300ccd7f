package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sloppy/nettools/internal/db"
)

// HistoryExport captures every stored run and lookup for JSON export.
type HistoryExport struct {
	ExportedAt time.Time    `json:"exported_at"`
	Scans      []ScanExport `json:"scans"`
	Pings      []PingExport `json:"pings"`
	SpeedTests []SpeedInfo  `json:"speed_tests"`
	Lookups    []LookupInfo `json:"lookups"`
}

// ScanExport is a scan with its port results in scan order.
type ScanExport struct {
	RunID      string     `json:"run_id"`
	Host       string     `json:"host"`
	Mode       string     `json:"mode"`
	PortRange  string     `json:"port_range,omitempty"`
	DurationMs int64      `json:"scan_time_ms"`
	OpenPorts  int        `json:"open_ports"`
	CreatedAt  time.Time  `json:"created_at"`
	Ports      []PortInfo `json:"ports"`
}

type PortInfo struct {
	Port        int    `json:"port"`
	Status      string `json:"status"`
	Service     string `json:"service"`
	Description string `json:"description"`
}

// PingExport is a ping run with its samples.
type PingExport struct {
	RunID          string       `json:"run_id"`
	Host           string       `json:"host"`
	Sent           int          `json:"sent"`
	Received       int          `json:"received"`
	Lost           int          `json:"lost"`
	LossPercentage float64      `json:"loss_percentage"`
	MinMs          int          `json:"min_ms"`
	MaxMs          int          `json:"max_ms"`
	AvgMs          int          `json:"avg_ms"`
	Stopped        bool         `json:"stopped"`
	CreatedAt      time.Time    `json:"created_at"`
	Samples        []SampleInfo `json:"samples"`
}

type SampleInfo struct {
	Sequence    int    `json:"sequence"`
	RoundTripMs int    `json:"time_ms"`
	Status      string `json:"status"`
}

type SpeedInfo struct {
	RunID        string    `json:"run_id"`
	DownloadMbps float64   `json:"download_mbps"`
	UploadMbps   float64   `json:"upload_mbps"`
	PingMs       int       `json:"ping_ms"`
	JitterMs     int       `json:"jitter_ms"`
	ServerLabel  string    `json:"server"`
	ClientIP     string    `json:"ip"`
	CreatedAt    time.Time `json:"created_at"`
}

type LookupInfo struct {
	Kind      string    `json:"kind"`
	Query     string    `json:"query"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Collect loads the full history, including scan ports and ping samples.
func Collect(database *db.DB, now time.Time) (HistoryExport, error) {
	h, err := database.LoadHistory(0)
	if err != nil {
		return HistoryExport{}, fmt.Errorf("load history: %w", err)
	}

	out := HistoryExport{
		ExportedAt: now.UTC(),
		Scans:      make([]ScanExport, 0, len(h.Scans)),
		Pings:      make([]PingExport, 0, len(h.Pings)),
		SpeedTests: make([]SpeedInfo, 0, len(h.SpeedTests)),
		Lookups:    make([]LookupInfo, 0, len(h.Lookups)),
	}
	for _, s := range h.Scans {
		_, ports, _, err := database.GetScanRun(s.RunID)
		if err != nil {
			return HistoryExport{}, fmt.Errorf("get scan %s: %w", s.RunID, err)
		}
		out.Scans = append(out.Scans, toScanExport(s, ports))
	}
	for _, p := range h.Pings {
		_, samples, _, err := database.GetPingRun(p.RunID)
		if err != nil {
			return HistoryExport{}, fmt.Errorf("get ping %s: %w", p.RunID, err)
		}
		out.Pings = append(out.Pings, toPingExport(p, samples))
	}
	for _, t := range h.SpeedTests {
		out.SpeedTests = append(out.SpeedTests, SpeedInfo{
			RunID:        t.RunID,
			DownloadMbps: t.DownloadMbps,
			UploadMbps:   t.UploadMbps,
			PingMs:       t.PingMs,
			JitterMs:     t.JitterMs,
			ServerLabel:  t.ServerLabel,
			ClientIP:     t.ClientIP,
			CreatedAt:    t.CreatedAt,
		})
	}
	for _, l := range h.Lookups {
		out.Lookups = append(out.Lookups, LookupInfo{Kind: l.Kind, Query: l.Query, Summary: l.Summary, CreatedAt: l.CreatedAt})
	}
	return out, nil
}

// HistoryJSON writes the full history as indented JSON.
func HistoryJSON(database *db.DB, w io.Writer, now time.Time) error {
	payload, err := Collect(database, now)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func toScanExport(s db.ScanRun, ports []db.ScanPort) ScanExport {
	out := ScanExport{
		RunID:      s.RunID,
		Host:       s.Host,
		Mode:       s.Mode,
		PortRange:  s.PortRange,
		DurationMs: s.DurationMs,
		OpenPorts:  s.OpenPorts,
		CreatedAt:  s.CreatedAt,
		Ports:      make([]PortInfo, 0, len(ports)),
	}
	for _, p := range ports {
		out.Ports = append(out.Ports, PortInfo{Port: p.Port, Status: p.Status, Service: p.Service, Description: p.Description})
	}
	return out
}

func toPingExport(p db.PingRun, samples []db.PingSample) PingExport {
	out := PingExport{
		RunID:          p.RunID,
		Host:           p.Host,
		Sent:           p.Sent,
		Received:       p.Received,
		Lost:           p.Lost,
		LossPercentage: p.LossPercentage,
		MinMs:          p.MinMs,
		MaxMs:          p.MaxMs,
		AvgMs:          p.AvgMs,
		Stopped:        p.Stopped,
		CreatedAt:      p.CreatedAt,
		Samples:        make([]SampleInfo, 0, len(samples)),
	}
	for _, s := range samples {
		out.Samples = append(out.Samples, SampleInfo{Sequence: s.Sequence, RoundTripMs: s.RoundTripMs, Status: s.Status})
	}
	return out
}
