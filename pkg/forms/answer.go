// CLAUDE:SUMMARY Answer sum type with one variant per answer shape, decoded by an ordered list of precedence rules.
package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Answer is one respondent's answer to one field. Exactly one concrete
// variant is produced per raw answer; see DecodeAnswer for precedence.
type Answer interface {
	// FieldID returns the referenced field identifier, or "" when the
	// payload carried no usable reference.
	FieldID() string
	answer()
}

type answerField struct {
	Field string
}

func (a answerField) FieldID() string { return a.Field }
func (answerField) answer()           {}

type TextAnswer struct {
	answerField
	Text string
}

type EmailAnswer struct {
	answerField
	Email string
}

type NumberAnswer struct {
	answerField
	Number float64
}

type DateAnswer struct {
	answerField
	Date string
}

type BooleanAnswer struct {
	answerField
	Boolean bool
}

type URLAnswer struct {
	answerField
	URL string
}

// ChoiceAnswer is a single-choice answer. Any of ID, Label and Other may be empty.
type ChoiceAnswer struct {
	answerField
	ID    string
	Label string
	Other string
}

// ChoicesAnswer is a multi-choice answer. Labels keep the payload order.
type ChoicesAnswer struct {
	answerField
	IDs    []string
	Labels []string
	Other  string
}

type FileAnswer struct {
	answerField
	URL string
}

type PhoneAnswer struct {
	answerField
	Phone string
}

// UnrecognizedAnswer is an answer none of the decoding rules matched.
type UnrecognizedAnswer struct {
	answerField
	Type string
	Raw  json.RawMessage
}

// NewTextAnswer and friends build variants without a JSON round-trip.
func NewTextAnswer(field, text string) TextAnswer {
	return TextAnswer{answerField{field}, text}
}

func NewEmailAnswer(field, email string) EmailAnswer {
	return EmailAnswer{answerField{field}, email}
}

func NewNumberAnswer(field string, n float64) NumberAnswer {
	return NumberAnswer{answerField{field}, n}
}

func NewChoiceAnswer(field, id, label, other string) ChoiceAnswer {
	return ChoiceAnswer{answerField{field}, id, label, other}
}

func NewChoicesAnswer(field string, ids, labels []string, other string) ChoicesAnswer {
	return ChoicesAnswer{answerField{field}, ids, labels, other}
}

type rawChoice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Other string `json:"other"`
}

type rawChoices struct {
	IDs    []string `json:"ids"`
	Labels []string `json:"labels"`
	Other  string   `json:"other"`
}

type rawAnswer struct {
	Type        string      `json:"type"`
	Field       fieldRef    `json:"field"`
	FieldID     string      `json:"field_id"`
	Text        *string     `json:"text"`
	Email       *string     `json:"email"`
	Number      looseNumber `json:"number"`
	Date        *string     `json:"date"`
	Boolean     *bool       `json:"boolean"`
	URL         *string     `json:"url"`
	Choice      *rawChoice  `json:"choice"`
	Choices     *rawChoices `json:"choices"`
	FileURL     *string     `json:"file_url"`
	PhoneNumber *string     `json:"phone_number"`
}

func nonEmpty(s *string) bool { return s != nil && *s != "" }

// looseNumber accepts a JSON number or a string holding one. Any other value
// leaves it unset.
type looseNumber struct {
	v   float64
	set bool
}

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = looseNumber{f, true}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = looseNumber{f, true}
		}
	}
	return nil
}

// decodeRules are evaluated in order; the first rule that applies picks the
// variant. The order is the value precedence of a raw answer.
var decodeRules = []struct {
	name  string
	apply func(r *rawAnswer, f answerField) (Answer, bool)
}{
	{"text", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.Text) {
			return nil, false
		}
		return TextAnswer{f, *r.Text}, true
	}},
	{"email", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.Email) {
			return nil, false
		}
		return EmailAnswer{f, *r.Email}, true
	}},
	{"number", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !r.Number.set {
			return nil, false
		}
		return NumberAnswer{f, r.Number.v}, true
	}},
	{"date", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.Date) {
			return nil, false
		}
		return DateAnswer{f, *r.Date}, true
	}},
	{"boolean", func(r *rawAnswer, f answerField) (Answer, bool) {
		if r.Boolean == nil {
			return nil, false
		}
		return BooleanAnswer{f, *r.Boolean}, true
	}},
	{"url", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.URL) {
			return nil, false
		}
		return URLAnswer{f, *r.URL}, true
	}},
	{"choice", func(r *rawAnswer, f answerField) (Answer, bool) {
		if r.Choice == nil {
			return nil, false
		}
		return ChoiceAnswer{f, r.Choice.ID, r.Choice.Label, r.Choice.Other}, true
	}},
	{"choices", func(r *rawAnswer, f answerField) (Answer, bool) {
		if r.Choices == nil {
			return nil, false
		}
		return ChoicesAnswer{f, r.Choices.IDs, r.Choices.Labels, r.Choices.Other}, true
	}},
	{"file_url", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.FileURL) {
			return nil, false
		}
		return FileAnswer{f, *r.FileURL}, true
	}},
	{"phone_number", func(r *rawAnswer, f answerField) (Answer, bool) {
		if !nonEmpty(r.PhoneNumber) {
			return nil, false
		}
		return PhoneAnswer{f, *r.PhoneNumber}, true
	}},
}

// DecodeAnswer decodes one raw answer object into its Answer variant.
// Payloads that match no rule decode to UnrecognizedAnswer, never to an error;
// only malformed JSON is an error. A member of an unexpected type is left
// unset and the others still take part in the rules.
func DecodeAnswer(data []byte) (Answer, error) {
	var raw rawAnswer
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode answer: %w", err)
		}
	}

	f := answerField{Field: string(raw.Field)}
	if f.Field == "" {
		f.Field = raw.FieldID
	}

	for _, rule := range decodeRules {
		if a, ok := rule.apply(&raw, f); ok {
			return a, nil
		}
	}
	return UnrecognizedAnswer{answerField: f, Type: raw.Type, Raw: json.RawMessage(data)}, nil
}
