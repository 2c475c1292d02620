// CLAUDE:SUMMARY Idempotent record and form-summary upserts in batched or sequential mode with created/matched/changed counts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/formsync/pkg/flatten"
)

// Mode selects how a batch is submitted.
type Mode string

const (
	// ModeBatched submits the whole batch in one transaction; a failing key
	// does not prevent the others from being written.
	ModeBatched Mode = "batched"
	// ModeSequential writes one key at a time and stops at the first failure.
	ModeSequential Mode = "sequential"
)

// ParseMode validates a mode name. Empty means batched.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeBatched:
		return ModeBatched, nil
	case ModeSequential:
		return ModeSequential, nil
	default:
		return "", fmt.Errorf("unknown write mode %q (want batched or sequential)", s)
	}
}

// Stats counts the outcome of the keys of one or more batches.
type Stats struct {
	Created int `json:"created"`
	Matched int `json:"matched"`
	Changed int `json:"changed"`
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Created += o.Created
	s.Matched += o.Matched
	s.Changed += o.Changed
}

func (s *Stats) count(o outcome) {
	switch o {
	case outcomeCreated:
		s.Created++
	case outcomeMatched:
		s.Matched++
	case outcomeChanged:
		s.Changed++
	}
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeMatched
	outcomeChanged
)

// KeyError is the failure of one key in a batch.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string { return fmt.Sprintf("%s: %v", e.Key, e.Err) }
func (e *KeyError) Unwrap() error { return e.Err }

// BatchError reports the keys of a batched write that failed. Keys not listed
// were committed.
type BatchError struct {
	Total  int
	Failed []*KeyError
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%d of %d writes failed: %s", len(e.Failed), e.Total, strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failed))
	for i, f := range e.Failed {
		errs[i] = f
	}
	return errs
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UpsertRecords writes records keyed by (Identity, Index).
func (s *Store) UpsertRecords(ctx context.Context, recs []flatten.Record, mode Mode) (Stats, error) {
	return upsertAll(ctx, s.db, mode, recs, recordKey, upsertRecord)
}

// UpsertForms writes form summaries keyed by FormID.
func (s *Store) UpsertForms(ctx context.Context, sums []flatten.FormSummary, mode Mode) (Stats, error) {
	return upsertAll(ctx, s.db, mode, sums, func(f flatten.FormSummary) string { return f.FormID }, upsertForm)
}

func recordKey(r flatten.Record) string {
	return fmt.Sprintf("%s#%d", r.Identity, r.Index)
}

func upsertAll[T any](ctx context.Context, db *sql.DB, mode Mode, items []T,
	key func(T) string, write func(context.Context, querier, T) (outcome, error)) (Stats, error) {

	var stats Stats
	if len(items) == 0 {
		return stats, nil
	}

	if mode == ModeSequential {
		for _, it := range items {
			o, err := write(ctx, db, it)
			if err != nil {
				return stats, &KeyError{Key: key(it), Err: err}
			}
			stats.count(o)
		}
		return stats, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin batch: %w", err)
	}

	var failed []*KeyError
	var pending Stats
	for _, it := range items {
		if ctx.Err() != nil {
			tx.Rollback()
			return stats, ctx.Err()
		}
		// A failed statement is undone on its own; the transaction stays usable.
		o, err := write(ctx, tx, it)
		if err != nil {
			failed = append(failed, &KeyError{Key: key(it), Err: err})
			continue
		}
		pending.count(o)
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit batch: %w", err)
	}
	stats.Add(pending)

	if len(failed) > 0 {
		return stats, &BatchError{Total: len(items), Failed: failed}
	}
	return stats, nil
}

func upsertRecord(ctx context.Context, q querier, r flatten.Record) (outcome, error) {
	var cur flatten.Record
	err := q.QueryRowContext(ctx, `SELECT value, chiffre, email, date, field_id, form_id, question, response_id
		FROM records WHERE identity = ? AND idx = ?`, r.Identity, r.Index).
		Scan(&cur.Value, &cur.Chiffre, &cur.Email, &cur.Date, &cur.FieldID, &cur.FormID, &cur.Question, &cur.ResponseID)

	now := time.Now().Unix()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = q.ExecContext(ctx, `INSERT INTO records
			(identity, idx, value, chiffre, email, date, field_id, form_id, question, response_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.Identity, r.Index, r.Value, r.Chiffre, r.Email, r.Date, r.FieldID, r.FormID, r.Question, r.ResponseID, now)
		if err != nil {
			return 0, fmt.Errorf("insert: %w", err)
		}
		return outcomeCreated, nil
	case err != nil:
		return 0, fmt.Errorf("read: %w", err)
	}

	cur.Identity, cur.Index = r.Identity, r.Index
	if sameRecord(cur, r) {
		return outcomeMatched, nil
	}

	_, err = q.ExecContext(ctx, `UPDATE records SET
		value = ?, chiffre = ?, email = ?, date = ?, field_id = ?, form_id = ?, question = ?, response_id = ?, updated_at = ?
		WHERE identity = ? AND idx = ?`,
		r.Value, r.Chiffre, r.Email, r.Date, r.FieldID, r.FormID, r.Question, r.ResponseID, now,
		r.Identity, r.Index)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return outcomeChanged, nil
}

func upsertForm(ctx context.Context, q querier, f flatten.FormSummary) (outcome, error) {
	var title string
	err := q.QueryRowContext(ctx, `SELECT title FROM forms WHERE form_id = ?`, f.FormID).Scan(&title)

	now := time.Now().Unix()
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = q.ExecContext(ctx, `INSERT INTO forms (form_id, title, title_fold, updated_at) VALUES (?, ?, ?, ?)`,
			f.FormID, f.Title, Fold(f.Title), now)
		if err != nil {
			return 0, fmt.Errorf("insert: %w", err)
		}
		return outcomeCreated, nil
	case err != nil:
		return 0, fmt.Errorf("read: %w", err)
	}

	if title == f.Title {
		return outcomeMatched, nil
	}
	_, err = q.ExecContext(ctx, `UPDATE forms SET title = ?, title_fold = ?, updated_at = ? WHERE form_id = ?`,
		f.Title, Fold(f.Title), now, f.FormID)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	return outcomeChanged, nil
}

func sameRecord(a, b flatten.Record) bool {
	return eqPtr(a.Value, b.Value) &&
		eqPtr(a.Chiffre, b.Chiffre) &&
		eqPtr(a.Email, b.Email) &&
		eqPtr(a.Date, b.Date) &&
		eqPtr(a.FieldID, b.FieldID) &&
		a.FormID == b.FormID &&
		eqPtr(a.Question, b.Question) &&
		a.ResponseID == b.ResponseID
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
