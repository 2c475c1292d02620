// CLAUDE:SUMMARY Forms API payload types: form definitions, responses, and field-reference decoding tolerant of payload drift.
package forms

import (
	"encoding/json"
	"fmt"
)

// FormRef is one entry of the form listing.
type FormRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Choice is one declared option of a choice-bearing field.
type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// FieldProperties carries the type-specific part of a field definition.
type FieldProperties struct {
	Choices []Choice `json:"choices,omitempty"`
	// Fields holds the children of a "group" field.
	Fields []Field `json:"fields,omitempty"`
}

// Field is a raw field definition as returned by the form definition endpoint.
type Field struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Type       string          `json:"type"`
	Properties FieldProperties `json:"properties"`
}

// Form is a form definition.
type Form struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// FlatFields returns the form's fields in declaration order with group
// children inlined after their group.
func (f *Form) FlatFields() []Field {
	var out []Field
	var walk func([]Field)
	walk = func(fields []Field) {
		for _, fd := range fields {
			out = append(out, fd)
			if len(fd.Properties.Fields) > 0 {
				walk(fd.Properties.Fields)
			}
		}
	}
	walk(f.Fields)
	return out
}

// Response is one respondent's submission to a form.
type Response struct {
	ID          string
	SubmittedAt string
	Answers     []Answer
}

type rawResponse struct {
	ResponseID  string            `json:"response_id"`
	Token       string            `json:"token"`
	SubmittedAt string            `json:"submitted_at"`
	LandedAt    string            `json:"landed_at"`
	Answers     []json.RawMessage `json:"answers"`
}

// UnmarshalJSON accepts either response_id or token as the identifier and
// submitted_at or landed_at as the timestamp.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = raw.ResponseID
	if r.ID == "" {
		r.ID = raw.Token
	}
	r.SubmittedAt = raw.SubmittedAt
	if r.SubmittedAt == "" {
		r.SubmittedAt = raw.LandedAt
	}

	r.Answers = make([]Answer, 0, len(raw.Answers))
	for i, msg := range raw.Answers {
		a, err := DecodeAnswer(msg)
		if err != nil {
			return fmt.Errorf("response %s answer %d: %w", r.ID, i, err)
		}
		r.Answers = append(r.Answers, a)
	}
	return nil
}

// fieldRef decodes the "field" member of an answer, which may be an object
// carrying id or ref, or a bare identifier string.
type fieldRef string

func (f *fieldRef) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = fieldRef(s)
		return nil
	}

	var obj struct {
		ID  string `json:"id"`
		Ref string `json:"ref"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unknown shape: leave the reference unresolved.
		*f = ""
		return nil
	}
	if obj.ID != "" {
		*f = fieldRef(obj.ID)
	} else {
		*f = fieldRef(obj.Ref)
	}
	return nil
}
