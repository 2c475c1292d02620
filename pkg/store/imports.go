package store

import (
	"context"
	"fmt"
)

// ImportRun is the ledger row of the last import of one form.
type ImportRun struct {
	FormID    string  `json:"form_id"`
	Title     string  `json:"title"`
	LastRun   int64   `json:"last_run"`
	Responses int     `json:"responses"`
	Skipped   int     `json:"skipped"`
	Records   int     `json:"records"`
	Stats     Stats   `json:"stats"`
	LastError *string `json:"last_error,omitempty"`
}

// RecordImport replaces the ledger row of run.FormID.
func (s *Store) RecordImport(ctx context.Context, run ImportRun) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO imports
		(form_id, title, last_run, responses, skipped, records, created, matched, changed, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.FormID, run.Title, run.LastRun, run.Responses, run.Skipped, run.Records,
		run.Stats.Created, run.Stats.Matched, run.Stats.Changed, run.LastError)
	if err != nil {
		return fmt.Errorf("record import for %s: %w", run.FormID, err)
	}
	return nil
}

// ListImports returns all ledger rows ordered by form_id.
func (s *Store) ListImports(ctx context.Context) ([]ImportRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT form_id, title, last_run, responses, skipped, records,
		created, matched, changed, last_error
		FROM imports ORDER BY form_id`)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var r ImportRun
		if err := rows.Scan(&r.FormID, &r.Title, &r.LastRun, &r.Responses, &r.Skipped, &r.Records,
			&r.Stats.Created, &r.Stats.Matched, &r.Stats.Changed, &r.LastError); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
