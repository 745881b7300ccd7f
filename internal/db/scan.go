package db

import (
	"database/sql"
	"errors"
	"fmt"
)

const scanRunColumns = `
	s.id, s.run_id, s.host, s.mode, s.port_range, s.duration_ms, s.created_at,
	(SELECT COUNT(*) FROM scan_port p WHERE p.scan_run_id = s.id AND p.status = 'open'),
	(SELECT COUNT(*) FROM scan_port p WHERE p.scan_run_id = s.id)`

// SaveScanRun stores a scan and its port results in one transaction.
func (db *DB) SaveScanRun(run ScanRun, ports []ScanPort) (ScanRun, error) {
	tx, err := db.Begin()
	if err != nil {
		return ScanRun{}, err
	}
	defer tx.Rollback()

	saved, err := tx.InsertScanRun(run)
	if err != nil {
		return ScanRun{}, err
	}
	for i, p := range ports {
		p.ScanRunID = saved.ID
		p.Position = i
		if _, err := tx.InsertScanPort(p); err != nil {
			return ScanRun{}, err
		}
		saved.TotalPorts++
		if p.Status == "open" {
			saved.OpenPorts++
		}
	}
	if err := tx.Commit(); err != nil {
		return ScanRun{}, fmt.Errorf("commit scan run: %w", err)
	}
	return saved, nil
}

// GetScanRun returns a stored scan by run ID with its ports in scan order.
func (db *DB) GetScanRun(runID string) (ScanRun, []ScanPort, bool, error) {
	var s ScanRun
	err := db.QueryRow(`SELECT `+scanRunColumns+` FROM scan_run s WHERE s.run_id = ?`, runID).
		Scan(&s.ID, &s.RunID, &s.Host, &s.Mode, &s.PortRange, &s.DurationMs, &s.CreatedAt, &s.OpenPorts, &s.TotalPorts)
	if errors.Is(err, sql.ErrNoRows) {
		return ScanRun{}, nil, false, nil
	}
	if err != nil {
		return ScanRun{}, nil, false, fmt.Errorf("get scan_run: %w", err)
	}

	rows, err := db.Query(
		`SELECT id, scan_run_id, position, port, status, service, description
		 FROM scan_port WHERE scan_run_id = ? ORDER BY position`, s.ID)
	if err != nil {
		return ScanRun{}, nil, false, fmt.Errorf("list scan_port: %w", err)
	}
	defer rows.Close()

	var ports []ScanPort
	for rows.Next() {
		var p ScanPort
		if err := rows.Scan(&p.ID, &p.ScanRunID, &p.Position, &p.Port, &p.Status, &p.Service, &p.Description); err != nil {
			return ScanRun{}, nil, false, fmt.Errorf("scan scan_port: %w", err)
		}
		ports = append(ports, p)
	}
	if err := rows.Err(); err != nil {
		return ScanRun{}, nil, false, fmt.Errorf("iterate scan_port: %w", err)
	}
	return s, ports, true, nil
}

// ListScanRuns returns the most recent scans first. A non-positive limit lists all.
func (db *DB) ListScanRuns(limit int) ([]ScanRun, error) {
	rows, err := db.Query(
		`SELECT `+scanRunColumns+` FROM scan_run s ORDER BY s.created_at DESC, s.id DESC LIMIT ?`,
		limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list scan_run: %w", err)
	}
	defer rows.Close()

	var out []ScanRun
	for rows.Next() {
		var s ScanRun
		if err := rows.Scan(&s.ID, &s.RunID, &s.Host, &s.Mode, &s.PortRange, &s.DurationMs, &s.CreatedAt, &s.OpenPorts, &s.TotalPorts); err != nil {
			return nil, fmt.Errorf("scan scan_run: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan_run: %w", err)
	}
	return out, nil
}
