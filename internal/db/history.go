package db

import "fmt"

// History is every stored record, newest first within each kind.
type History struct {
	Scans      []ScanRun
	Pings      []PingRun
	SpeedTests []SpeedTest
	Lookups    []Lookup
}

// LoadHistory collects the most recent records of every kind.
func (db *DB) LoadHistory(limit int) (History, error) {
	var h History
	var err error
	if h.Scans, err = db.ListScanRuns(limit); err != nil {
		return History{}, err
	}
	if h.Pings, err = db.ListPingRuns(limit); err != nil {
		return History{}, err
	}
	if h.SpeedTests, err = db.ListSpeedTests(limit); err != nil {
		return History{}, err
	}
	if h.Lookups, err = db.ListLookups("", limit); err != nil {
		return History{}, err
	}
	return h, nil
}

// DeleteHistory removes every stored run and lookup. Ports and samples cascade.
func (db *DB) DeleteHistory() error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"scan_run", "ping_run", "speed_test", "lookup"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete history: %w", err)
	}
	return nil
}
