package forms

import (
	"encoding/json"
	"testing"
)

func TestDecodeAnswer_Variants(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		check func(t *testing.T, a Answer)
	}{
		{"text", `{"type":"text","field":{"id":"f1"},"text":"Hallo"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(TextAnswer); !ok || v.Text != "Hallo" {
				t.Errorf("got %#v", a)
			}
		}},
		{"email", `{"type":"email","field":{"id":"f1"},"email":"a@b.de"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(EmailAnswer); !ok || v.Email != "a@b.de" {
				t.Errorf("got %#v", a)
			}
		}},
		{"number", `{"type":"number","field":{"id":"f1"},"number":0}`, func(t *testing.T, a Answer) {
			if v, ok := a.(NumberAnswer); !ok || v.Number != 0 {
				t.Errorf("got %#v", a)
			}
		}},
		{"boolean", `{"type":"boolean","field":{"id":"f1"},"boolean":false}`, func(t *testing.T, a Answer) {
			if v, ok := a.(BooleanAnswer); !ok || v.Boolean {
				t.Errorf("got %#v", a)
			}
		}},
		{"choice", `{"type":"choice","field":{"id":"f1"},"choice":{"id":"c1","label":"Malen"}}`, func(t *testing.T, a Answer) {
			if v, ok := a.(ChoiceAnswer); !ok || v.ID != "c1" || v.Label != "Malen" {
				t.Errorf("got %#v", a)
			}
		}},
		{"choices", `{"type":"choices","field":{"id":"f1"},"choices":{"labels":["Malen","Karate"]}}`, func(t *testing.T, a Answer) {
			if v, ok := a.(ChoicesAnswer); !ok || len(v.Labels) != 2 {
				t.Errorf("got %#v", a)
			}
		}},
		{"file", `{"type":"file_url","field":{"id":"f1"},"file_url":"https://x/y.pdf"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(FileAnswer); !ok || v.URL != "https://x/y.pdf" {
				t.Errorf("got %#v", a)
			}
		}},
		{"unknown", `{"type":"payment","field":{"id":"f1"},"payment":{"amount":"1"}}`, func(t *testing.T, a Answer) {
			if v, ok := a.(UnrecognizedAnswer); !ok || v.Type != "payment" {
				t.Errorf("got %#v", a)
			}
		}},
		{"number as string", `{"type":"number","field":{"id":"fld2"},"number":"12345"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(NumberAnswer); !ok || v.Number != 12345 || v.FieldID() != "fld2" {
				t.Errorf("got %#v", a)
			}
		}},
		{"text beside non-numeric number", `{"type":"text","field":{"id":"fld1"},"text":"Hallo","number":"zwölf"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(TextAnswer); !ok || v.Text != "Hallo" || v.FieldID() != "fld1" {
				t.Errorf("got %#v", a)
			}
		}},
		{"wrong member type keeps the rest", `{"type":"text","field":{"id":"fld1"},"text":"Hallo","choices":"Malen"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(TextAnswer); !ok || v.Text != "Hallo" || v.FieldID() != "fld1" {
				t.Errorf("got %#v", a)
			}
		}},
		{"only wrong member types", `{"type":"boolean","field":{"id":"fld3"},"boolean":"ja"}`, func(t *testing.T, a Answer) {
			if v, ok := a.(UnrecognizedAnswer); !ok || v.FieldID() != "fld3" || v.Type != "boolean" {
				t.Errorf("got %#v", a)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAnswer([]byte(tt.json))
			if err != nil {
				t.Fatalf("DecodeAnswer: %v", err)
			}
			tt.check(t, a)
		})
	}
}

func TestDecodeAnswer_Precedence(t *testing.T) {
	// Text wins over email when both are populated.
	a, err := DecodeAnswer([]byte(`{"field":{"id":"f"},"email":"a@b.de","text":"t"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := a.(TextAnswer); !ok {
		t.Fatalf("got %#v, want TextAnswer", a)
	}

	// Empty text falls through to the next populated shape.
	a, _ = DecodeAnswer([]byte(`{"field":{"id":"f"},"text":"","email":"a@b.de"}`))
	if _, ok := a.(EmailAnswer); !ok {
		t.Fatalf("got %#v, want EmailAnswer", a)
	}
}

func TestDecodeAnswer_FieldReferenceShapes(t *testing.T) {
	tests := map[string]string{
		`{"field":{"id":"fld1","ref":"r"},"text":"x"}`: "fld1",
		`{"field":{"ref":"ref1"},"text":"x"}`:          "ref1",
		`{"field":"fld2","text":"x"}`:                  "fld2",
		`{"field_id":"fld3","text":"x"}`:               "fld3",
		`{"field":[1,2],"text":"x"}`:                   "",
	}
	for in, want := range tests {
		a, err := DecodeAnswer([]byte(in))
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if a.FieldID() != want {
			t.Errorf("%s: FieldID = %q, want %q", in, a.FieldID(), want)
		}
	}
}

func TestDecodeAnswer_Malformed(t *testing.T) {
	if _, err := DecodeAnswer([]byte(`[1,2`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestResponse_UnmarshalFallbacks(t *testing.T) {
	var r Response
	in := `{"token":"tok1","landed_at":"2025-01-02T00:00:00Z","answers":[{"field":{"id":"f"},"text":"x"}]}`
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatal(err)
	}
	if r.ID != "tok1" {
		t.Errorf("ID = %q, want tok1", r.ID)
	}
	if r.SubmittedAt != "2025-01-02T00:00:00Z" {
		t.Errorf("SubmittedAt = %q", r.SubmittedAt)
	}
	if len(r.Answers) != 1 {
		t.Errorf("answers = %d", len(r.Answers))
	}

	var r2 Response
	in = `{"response_id":"R1","token":"tok1","submitted_at":"s","landed_at":"l"}`
	if err := json.Unmarshal([]byte(in), &r2); err != nil {
		t.Fatal(err)
	}
	if r2.ID != "R1" || r2.SubmittedAt != "s" {
		t.Errorf("got %+v", r2)
	}
}
