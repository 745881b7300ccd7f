package db

import "fmt"

// RecordLookup stores one lookup query and its one-line summary.
func (db *DB) RecordLookup(kind, query, summary string) (Lookup, error) {
	var l Lookup
	err := db.QueryRow(
		`INSERT INTO lookup (kind, query, summary) VALUES (?, ?, ?)
		 RETURNING id, kind, query, summary, created_at`,
		kind, query, summary,
	).Scan(&l.ID, &l.Kind, &l.Query, &l.Summary, &l.CreatedAt)
	if err != nil {
		return Lookup{}, fmt.Errorf("insert lookup: %w", err)
	}
	return l, nil
}

// ListLookups returns recent lookups, newest first. An empty kind lists every kind.
func (db *DB) ListLookups(kind string, limit int) ([]Lookup, error) {
	query := `SELECT id, kind, query, summary, created_at FROM lookup`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limitArg(limit))

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list lookup: %w", err)
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Kind, &l.Query, &l.Summary, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lookup: %w", err)
	}
	return out, nil
}
