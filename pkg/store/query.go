package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/formsync/pkg/flatten"
)

// ResponseSummary condenses the records of one response.
type ResponseSummary struct {
	FormID     string  `json:"form_id"`
	ResponseID string  `json:"response_id"`
	Count      int     `json:"count"`
	Email      *string `json:"email"`
	Chiffre    *string `json:"chiffre"`
	Date       *string `json:"date"`
}

// ChiffreGroup gathers everything stored under one chiffre across forms.
type ChiffreGroup struct {
	Chiffre   string   `json:"chiffre"`
	Forms     []string `json:"forms"`
	Responses int      `json:"responses"`
	Emails    []string `json:"emails"`
}

// ValueCount is the frequency of one value among a field's answers.
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

const defaultLimit = 100

func clampLimit(n int) int {
	if n <= 0 || n > 1000 {
		return defaultLimit
	}
	return n
}

// SearchForms returns form summaries whose folded title or id contains q.
// An empty q lists every form.
func (s *Store) SearchForms(ctx context.Context, q string, limit int) ([]flatten.FormSummary, error) {
	folded := Fold(q)
	rows, err := s.db.QueryContext(ctx, `SELECT form_id, title FROM forms
		WHERE ? = '' OR title_fold LIKE '%' || ? || '%' ESCAPE '\' OR form_id LIKE '%' || ? || '%' ESCAPE '\'
		ORDER BY title, form_id LIMIT ?`, folded, escapeLike(folded), escapeLike(strings.TrimSpace(q)), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search forms: %w", err)
	}
	defer rows.Close()

	out := []flatten.FormSummary{}
	for rows.Next() {
		var f flatten.FormSummary
		if err := rows.Scan(&f.FormID, &f.Title); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ResponseSummaries groups the records of a form by response, newest first.
func (s *Store) ResponseSummaries(ctx context.Context, formID string) ([]ResponseSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT form_id, response_id, COUNT(*), MAX(email), MAX(chiffre), MAX(date)
		FROM records WHERE form_id = ?
		GROUP BY form_id, response_id
		ORDER BY MAX(date) DESC, response_id`, formID)
	if err != nil {
		return nil, fmt.Errorf("response summaries: %w", err)
	}
	return scanSummaries(rows)
}

// SearchRecords matches q against form_id, chiffre and email and returns the
// matching responses.
func (s *Store) SearchRecords(ctx context.Context, q string, limit int) ([]ResponseSummary, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []ResponseSummary{}, nil
	}
	pat := escapeLike(q)
	rows, err := s.db.QueryContext(ctx, `SELECT form_id, response_id, COUNT(*), MAX(email), MAX(chiffre), MAX(date)
		FROM records
		WHERE form_id LIKE '%' || ? || '%' ESCAPE '\'
			OR chiffre LIKE '%' || ? || '%' ESCAPE '\'
			OR email LIKE '%' || ? || '%' ESCAPE '\'
		GROUP BY form_id, response_id
		ORDER BY MAX(date) DESC, form_id, response_id
		LIMIT ?`, pat, pat, pat, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return scanSummaries(rows)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes q match literally inside a LIKE pattern with ESCAPE '\'.
func escapeLike(q string) string { return likeEscaper.Replace(q) }

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

func scanSummaries(rows rowScanner) ([]ResponseSummary, error) {
	defer rows.Close()
	out := []ResponseSummary{}
	for rows.Next() {
		var r ResponseSummary
		if err := rows.Scan(&r.FormID, &r.ResponseID, &r.Count, &r.Email, &r.Chiffre, &r.Date); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResponseRecords returns the records of one response ordered by index.
func (s *Store) ResponseRecords(ctx context.Context, responseID string) ([]flatten.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, idx, value, chiffre, email, date, field_id, form_id, question, response_id
		FROM records WHERE response_id = ? ORDER BY idx`, responseID)
	if err != nil {
		return nil, fmt.Errorf("response records: %w", err)
	}
	defer rows.Close()

	out := []flatten.Record{}
	for rows.Next() {
		var r flatten.Record
		if err := rows.Scan(&r.Identity, &r.Index, &r.Value, &r.Chiffre, &r.Email, &r.Date,
			&r.FieldID, &r.FormID, &r.Question, &r.ResponseID); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ChiffreGroups groups records by chiffre across all forms.
func (s *Store) ChiffreGroups(ctx context.Context) ([]ChiffreGroup, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT chiffre,
			GROUP_CONCAT(DISTINCT form_id),
			COUNT(DISTINCT response_id),
			COALESCE(GROUP_CONCAT(DISTINCT email), '')
		FROM records WHERE chiffre IS NOT NULL
		GROUP BY chiffre ORDER BY chiffre`)
	if err != nil {
		return nil, fmt.Errorf("chiffre groups: %w", err)
	}
	defer rows.Close()

	out := []ChiffreGroup{}
	for rows.Next() {
		var g ChiffreGroup
		var formsCSV, emailsCSV string
		if err := rows.Scan(&g.Chiffre, &formsCSV, &g.Responses, &emailsCSV); err != nil {
			return nil, fmt.Errorf("scan chiffre group: %w", err)
		}
		g.Forms = splitList(formsCSV)
		g.Emails = splitList(emailsCSV)
		out = append(out, g)
	}
	return out, rows.Err()
}

// ValueFrequencies counts the distinct values answered to (formID, fieldID),
// leaving out the response excludeResponseID.
func (s *Store) ValueFrequencies(ctx context.Context, formID, fieldID, excludeResponseID string) ([]ValueCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT value, COUNT(*) FROM records
		WHERE form_id = ? AND field_id = ? AND value IS NOT NULL AND response_id != ?
		GROUP BY value ORDER BY COUNT(*) DESC, value`, formID, fieldID, excludeResponseID)
	if err != nil {
		return nil, fmt.Errorf("value frequencies: %w", err)
	}
	defer rows.Close()

	out := []ValueCount{}
	for rows.Next() {
		var v ValueCount
		if err := rows.Scan(&v.Value, &v.Count); err != nil {
			return nil, fmt.Errorf("scan value count: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func splitList(csv string) []string {
	out := []string{}
	for _, p := range strings.Split(csv, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
