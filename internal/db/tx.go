package db

import (
	"database/sql"
	"fmt"
)

// Tx wraps sql.Tx to reuse DB helpers within a transaction.
type Tx struct {
	*sql.Tx
}

// Begin starts a transaction on the DB.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// InsertScanRun records scan metadata within a transaction.
func (tx *Tx) InsertScanRun(s ScanRun) (ScanRun, error) {
	var out ScanRun
	err := tx.QueryRow(
		`INSERT INTO scan_run (run_id, host, mode, port_range, duration_ms)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id, run_id, host, mode, port_range, duration_ms, created_at`,
		s.RunID, s.Host, s.Mode, s.PortRange, s.DurationMs,
	).Scan(&out.ID, &out.RunID, &out.Host, &out.Mode, &out.PortRange, &out.DurationMs, &out.CreatedAt)
	if err != nil {
		return ScanRun{}, fmt.Errorf("insert scan_run: %w", err)
	}
	return out, nil
}

// InsertScanPort records one port result within a transaction.
func (tx *Tx) InsertScanPort(p ScanPort) (ScanPort, error) {
	out := p
	err := tx.QueryRow(
		`INSERT INTO scan_port (scan_run_id, position, port, status, service, description)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		p.ScanRunID, p.Position, p.Port, p.Status, p.Service, p.Description,
	).Scan(&out.ID)
	if err != nil {
		return ScanPort{}, fmt.Errorf("insert scan_port: %w", err)
	}
	return out, nil
}

// InsertPingRun records ping statistics within a transaction.
func (tx *Tx) InsertPingRun(p PingRun) (PingRun, error) {
	out := p
	err := tx.QueryRow(
		`INSERT INTO ping_run (run_id, host, sent, received, lost, loss_percentage, min_ms, max_ms, avg_ms, stopped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id, created_at`,
		p.RunID, p.Host, p.Sent, p.Received, p.Lost, p.LossPercentage, p.MinMs, p.MaxMs, p.AvgMs, boolToInt(p.Stopped),
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return PingRun{}, fmt.Errorf("insert ping_run: %w", err)
	}
	return out, nil
}

// InsertPingSample records one echo within a transaction.
func (tx *Tx) InsertPingSample(s PingSample) (PingSample, error) {
	out := s
	err := tx.QueryRow(
		`INSERT INTO ping_sample (ping_run_id, sequence, round_trip_ms, status)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		s.PingRunID, s.Sequence, s.RoundTripMs, s.Status,
	).Scan(&out.ID)
	if err != nil {
		return PingSample{}, fmt.Errorf("insert ping_sample: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
