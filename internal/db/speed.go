package db

import "fmt"

// SaveSpeedTest stores a completed speed test outcome.
func (db *DB) SaveSpeedTest(t SpeedTest) (SpeedTest, error) {
	out := t
	err := db.QueryRow(
		`INSERT INTO speed_test (run_id, download_mbps, upload_mbps, ping_ms, jitter_ms, server_label, client_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id, created_at`,
		t.RunID, t.DownloadMbps, t.UploadMbps, t.PingMs, t.JitterMs, t.ServerLabel, t.ClientIP,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return SpeedTest{}, fmt.Errorf("insert speed_test: %w", err)
	}
	return out, nil
}

// ListSpeedTests returns the most recent tests first. A non-positive limit lists all.
func (db *DB) ListSpeedTests(limit int) ([]SpeedTest, error) {
	rows, err := db.Query(
		`SELECT id, run_id, download_mbps, upload_mbps, ping_ms, jitter_ms, server_label, client_ip, created_at
		 FROM speed_test ORDER BY created_at DESC, id DESC LIMIT ?`,
		limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list speed_test: %w", err)
	}
	defer rows.Close()

	var out []SpeedTest
	for rows.Next() {
		var t SpeedTest
		if err := rows.Scan(&t.ID, &t.RunID, &t.DownloadMbps, &t.UploadMbps, &t.PingMs, &t.JitterMs,
			&t.ServerLabel, &t.ClientIP, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan speed_test: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate speed_test: %w", err)
	}
	return out, nil
}
