package db

import (
	"database/sql"
	"errors"
	"fmt"
)

const pingRunColumns = `id, run_id, host, sent, received, lost, loss_percentage, min_ms, max_ms, avg_ms, stopped, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPingRun(row rowScanner) (PingRun, error) {
	var p PingRun
	var stopped int
	err := row.Scan(&p.ID, &p.RunID, &p.Host, &p.Sent, &p.Received, &p.Lost, &p.LossPercentage,
		&p.MinMs, &p.MaxMs, &p.AvgMs, &stopped, &p.CreatedAt)
	p.Stopped = stopped != 0
	return p, err
}

// SavePingRun stores ping statistics and samples in one transaction.
func (db *DB) SavePingRun(run PingRun, samples []PingSample) (PingRun, error) {
	tx, err := db.Begin()
	if err != nil {
		return PingRun{}, err
	}
	defer tx.Rollback()

	saved, err := tx.InsertPingRun(run)
	if err != nil {
		return PingRun{}, err
	}
	for _, s := range samples {
		s.PingRunID = saved.ID
		if _, err := tx.InsertPingSample(s); err != nil {
			return PingRun{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return PingRun{}, fmt.Errorf("commit ping run: %w", err)
	}
	return saved, nil
}

// GetPingRun returns a stored ping by run ID with its samples by sequence.
func (db *DB) GetPingRun(runID string) (PingRun, []PingSample, bool, error) {
	p, err := scanPingRun(db.QueryRow(`SELECT `+pingRunColumns+` FROM ping_run WHERE run_id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return PingRun{}, nil, false, nil
	}
	if err != nil {
		return PingRun{}, nil, false, fmt.Errorf("get ping_run: %w", err)
	}

	rows, err := db.Query(
		`SELECT id, ping_run_id, sequence, round_trip_ms, status
		 FROM ping_sample WHERE ping_run_id = ? ORDER BY sequence`, p.ID)
	if err != nil {
		return PingRun{}, nil, false, fmt.Errorf("list ping_sample: %w", err)
	}
	defer rows.Close()

	var samples []PingSample
	for rows.Next() {
		var s PingSample
		if err := rows.Scan(&s.ID, &s.PingRunID, &s.Sequence, &s.RoundTripMs, &s.Status); err != nil {
			return PingRun{}, nil, false, fmt.Errorf("scan ping_sample: %w", err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return PingRun{}, nil, false, fmt.Errorf("iterate ping_sample: %w", err)
	}
	return p, samples, true, nil
}

// ListPingRuns returns the most recent pings first. A non-positive limit lists all.
func (db *DB) ListPingRuns(limit int) ([]PingRun, error) {
	rows, err := db.Query(
		`SELECT `+pingRunColumns+` FROM ping_run ORDER BY created_at DESC, id DESC LIMIT ?`,
		limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list ping_run: %w", err)
	}
	defer rows.Close()

	var out []PingRun
	for rows.Next() {
		p, err := scanPingRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ping_run: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ping_run: %w", err)
	}
	return out, nil
}
