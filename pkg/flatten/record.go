// CLAUDE:SUMMARY Builds one flattened, deterministically keyed Record per answer of a response.
package flatten

import (
	"strings"
	"time"

	"github.com/hazyhaar/formsync/pkg/forms"
)

// AbsentSlot fills an identity segment whose value is absent. It can never
// collide with a real value: emails contain "@" and chiffres match
// chiffrePattern.
const AbsentSlot = "undefined"

// Record is one persisted answer. The pair (Identity, Index) is unique.
type Record struct {
	Identity   string  `json:"identity"`
	Index      int     `json:"index"`
	Value      *string `json:"value"`
	Chiffre    *string `json:"chiffre"`
	Email      *string `json:"email"`
	Date       *string `json:"date"`
	FieldID    *string `json:"field_id"`
	FormID     string  `json:"form_id"`
	Question   *string `json:"question"`
	ResponseID string  `json:"response_id"`
}

// FormSummary is the per-form document, keyed by FormID alone.
type FormSummary struct {
	FormID string `json:"form_id"`
	Title  string `json:"title"`
}

// Identity composes formId_{chiffre|email}_{responseId}_{email}.
func Identity(formID string, sig IdentitySignals, responseID string) string {
	primary := AbsentSlot
	switch {
	case sig.Chiffre != nil:
		primary = *sig.Chiffre
	case sig.Email != nil:
		primary = *sig.Email
	}
	email := AbsentSlot
	if sig.Email != nil {
		email = *sig.Email
	}
	return strings.Join([]string{formID, primary, responseID, email}, "_")
}

// SubmissionDate returns the UTC calendar date of an RFC 3339 timestamp, or
// nil when it cannot be parsed.
func SubmissionDate(ts string) *string {
	if ts == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return nil
	}
	d := t.UTC().Format(time.DateOnly)
	return &d
}

// Builder turns the responses of one form into records.
type Builder struct {
	FormID string
	Fields Fields
}

// NewBuilder resolves the form's fields once for all of its responses.
func NewBuilder(form *forms.Form) *Builder {
	return &Builder{FormID: form.ID, Fields: ResolveFields(form.FlatFields())}
}

// Build returns one record per answer, in answer order, indexed from 0.
// A response without answers yields no records.
func (b *Builder) Build(resp forms.Response) []Record {
	if len(resp.Answers) == 0 {
		return nil
	}

	sig := ExtractIdentity(resp.Answers)
	identity := Identity(b.FormID, sig, resp.ID)
	date := SubmissionDate(resp.SubmittedAt)

	records := make([]Record, 0, len(resp.Answers))
	for i, a := range resp.Answers {
		meta := b.Fields.Lookup(a.FieldID())
		rec := Record{
			Identity:   identity,
			Index:      i,
			Value:      Normalize(a, meta),
			Chiffre:    sig.Chiffre,
			Email:      sig.Email,
			Date:       date,
			FieldID:    str(a.FieldID()),
			FormID:     b.FormID,
			ResponseID: resp.ID,
		}
		if meta != nil {
			rec.Question = str(meta.Title)
		}
		records = append(records, rec)
	}
	return records
}
