package flatten

import (
	"testing"

	"github.com/hazyhaar/formsync/pkg/forms"
)

func deref(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestExtractIdentity_ChiffrePrecedence(t *testing.T) {
	answers := []forms.Answer{
		forms.NewNumberAnswer("n", 12345),
		forms.NewTextAnswer("t", "12345X67890123"),
	}
	sig := ExtractIdentity(answers)
	if deref(sig.Chiffre) != "12345X67890123" {
		t.Fatalf("chiffre = %s, want 12345X67890123", deref(sig.Chiffre))
	}
	if sig.Email != nil {
		t.Errorf("email = %s, want nil", *sig.Email)
	}
}

func TestExtractIdentity_FirstMatchWins(t *testing.T) {
	answers := []forms.Answer{
		forms.NewTextAnswer("a", "meine Chiffre: 11111A22222222"),
		forms.NewTextAnswer("b", "33333B44444444"),
	}
	sig := ExtractIdentity(answers)
	if deref(sig.Chiffre) != "11111A22222222" {
		t.Fatalf("chiffre = %s", deref(sig.Chiffre))
	}
}

func TestExtractIdentity_EmailAndChiffreIndependent(t *testing.T) {
	answers := []forms.Answer{
		forms.NewTextAnswer("a", "12345X67890123"),
		forms.NewEmailAnswer("b", "first@example.de"),
		forms.NewEmailAnswer("c", "second@example.de"),
	}
	sig := ExtractIdentity(answers)
	if deref(sig.Email) != "first@example.de" {
		t.Errorf("email = %s, want first@example.de", deref(sig.Email))
	}
	if deref(sig.Chiffre) != "12345X67890123" {
		t.Errorf("chiffre = %s", deref(sig.Chiffre))
	}
}

func TestExtractIdentity_EmailMatchingChiffre(t *testing.T) {
	answers := []forms.Answer{forms.NewEmailAnswer("e", "12345X67890123")}
	sig := ExtractIdentity(answers)
	if deref(sig.Email) != "12345X67890123" || deref(sig.Chiffre) != "12345X67890123" {
		t.Fatalf("sig = %s / %s", deref(sig.Email), deref(sig.Chiffre))
	}
}

func TestExtractIdentity_ChoiceLabels(t *testing.T) {
	answers := []forms.Answer{
		forms.NewChoicesAnswer("m", nil, []string{"Malen", "99999Z00000001"}, ""),
	}
	sig := ExtractIdentity(answers)
	if deref(sig.Chiffre) != "99999Z00000001" {
		t.Fatalf("chiffre = %s", deref(sig.Chiffre))
	}
}

func TestMatchChiffre(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"12345X67890123", true},
		{"Chiffre 12345x67890123.", true},
		{"1234X67890123", false},
		{"12345XY7890123", false},
		{"12345X678901234", false},
		{"912345X67890123", false},
		{"ID12345X67890123", true},
		{"Chiffre_12345X67890123", true},
		{"12345X67890123abc", true},
		{"", false},
	}
	for _, tt := range tests {
		got, ok := MatchChiffre(tt.in)
		if ok != tt.want {
			t.Errorf("MatchChiffre(%q) = %v, want %v", tt.in, ok, tt.want)
		}
		if ok && len(got) != 14 {
			t.Errorf("MatchChiffre(%q) = %q, want the bare chiffre", tt.in, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	fields := ResolveFields([]forms.Field{
		{ID: "dd", Title: "Wahl", Type: "dropdown", Properties: forms.FieldProperties{
			Choices: []forms.Choice{{ID: "c1", Label: "Malen"}, {ID: "c2", Label: "Karate"}},
		}},
	})
	meta := fields.Lookup("dd")

	tests := []struct {
		name string
		a    forms.Answer
		meta *FieldMeta
		want string
	}{
		{"text", forms.NewTextAnswer("x", "Hallo"), nil, "Hallo"},
		{"number", forms.NewNumberAnswer("x", 42), nil, "42"},
		{"decimal", forms.NewNumberAnswer("x", 2.5), nil, "2.5"},
		{"boolean", forms.BooleanAnswer{Boolean: true}, nil, "true"},
		{"choice label", forms.NewChoiceAnswer("dd", "c1", "Malen", ""), meta, "Malen"},
		{"choice by id", forms.NewChoiceAnswer("dd", "c2", "", ""), meta, "Karate"},
		{"choice other", forms.NewChoiceAnswer("dd", "c9", "", "Tanzen"), meta, "Tanzen"},
		{"choice nothing", forms.NewChoiceAnswer("dd", "c9", "", ""), meta, "<nil>"},
		{"choice no meta", forms.NewChoiceAnswer("dd", "c2", "", ""), nil, "<nil>"},
		{"choices labels", forms.NewChoicesAnswer("dd", nil, []string{"Malen", "Karate"}, ""), meta, "Malen, Karate"},
		{"choices ids", forms.NewChoicesAnswer("dd", []string{"c2", "c1"}, nil, ""), meta, "Karate, Malen"},
		{"choices other", forms.NewChoicesAnswer("dd", nil, []string{"Malen"}, "Judo"), meta, "Malen, Judo"},
		{"file", forms.FileAnswer{URL: "https://f/x.pdf"}, nil, "https://f/x.pdf"},
		{"unrecognized", forms.UnrecognizedAnswer{Type: "payment"}, nil, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deref(Normalize(tt.a, tt.meta)); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveFields_ChoiceTables(t *testing.T) {
	fields := ResolveFields([]forms.Field{
		{ID: "mc", Type: "multiple_choice", Properties: forms.FieldProperties{
			Choices: []forms.Choice{{ID: "c1", Label: "Ja"}},
		}},
		{ID: "txt", Title: "Name", Type: "short_text"},
		{ID: "odd", Title: "?", Type: "something_new"},
	})

	mc := fields.Lookup("mc")
	if l, ok := mc.Choices.Resolve(ByID("c1")); !ok || l != "Ja" {
		t.Errorf("ByID = %q, %v", l, ok)
	}
	if l, ok := mc.Choices.Resolve(ByLabel("Ja")); !ok || l != "Ja" {
		t.Errorf("ByLabel = %q, %v", l, ok)
	}
	if _, ok := mc.Choices.Resolve(ByLabel("Nein")); ok {
		t.Error("unexpected label hit")
	}
	if fields.Lookup("txt").Choices != nil {
		t.Error("text field should have no choice table")
	}
	if odd := fields.Lookup("odd"); odd == nil || odd.Type != "something_new" {
		t.Errorf("unknown type not retained: %+v", odd)
	}
	if fields.Lookup("missing") != nil || fields.Lookup("") != nil {
		t.Error("lookup of unknown id should be nil")
	}
}

func TestIdentity(t *testing.T) {
	email := "minjana@web.de"
	chiffre := "12345X67890123"

	got := Identity("o4Sdlq5K", IdentitySignals{Email: &email}, "zw8p")
	if got != "o4Sdlq5K_minjana@web.de_zw8p_minjana@web.de" {
		t.Errorf("email only: %s", got)
	}

	got = Identity("F", IdentitySignals{Email: &email, Chiffre: &chiffre}, "R")
	if got != "F_12345X67890123_R_minjana@web.de" {
		t.Errorf("both: %s", got)
	}

	got = Identity("F", IdentitySignals{Chiffre: &chiffre}, "R")
	if got != "F_12345X67890123_R_undefined" {
		t.Errorf("chiffre only: %s", got)
	}
}

func TestSubmissionDate(t *testing.T) {
	if d := SubmissionDate("2025-08-29T10:00:00Z"); deref(d) != "2025-08-29" {
		t.Errorf("date = %s", deref(d))
	}
	if d := SubmissionDate("2025-08-29T23:30:00-02:00"); deref(d) != "2025-08-30" {
		t.Errorf("offset date = %s, want UTC 2025-08-30", deref(d))
	}
	if d := SubmissionDate("gestern"); d != nil {
		t.Errorf("unparseable date = %s, want nil", *d)
	}
	if d := SubmissionDate(""); d != nil {
		t.Errorf("empty date = %s, want nil", *d)
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	b := NewBuilder(&forms.Form{ID: "F1", Fields: []forms.Field{{ID: "fld1", Title: "Q1", Type: "short_text"}}})
	recs := b.Build(forms.Response{
		ID:          "R1",
		SubmittedAt: "2025-01-02T00:00:00Z",
		Answers:     []forms.Answer{forms.NewTextAnswer("fld1", "Hallo")},
	})

	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.Identity != "F1_undefined_R1_undefined" {
		t.Errorf("Identity = %s", r.Identity)
	}
	if r.Index != 0 || deref(r.Value) != "Hallo" || r.Chiffre != nil || r.Email != nil {
		t.Errorf("record = %+v", r)
	}
	if deref(r.Date) != "2025-01-02" || deref(r.FieldID) != "fld1" || deref(r.Question) != "Q1" {
		t.Errorf("provenance = %s %s %s", deref(r.Date), deref(r.FieldID), deref(r.Question))
	}
	if r.FormID != "F1" || r.ResponseID != "R1" {
		t.Errorf("ids = %s %s", r.FormID, r.ResponseID)
	}
}

func TestBuild_IndicesAndSharedIdentity(t *testing.T) {
	b := NewBuilder(&forms.Form{ID: "F"})
	answers := []forms.Answer{
		forms.NewTextAnswer("a", "eins"),
		forms.NewEmailAnswer("b", "x@y.de"),
		forms.UnrecognizedAnswer{},
		forms.NewNumberAnswer("d", 3),
	}
	recs := b.Build(forms.Response{ID: "R", Answers: answers})
	if len(recs) != len(answers) {
		t.Fatalf("records = %d, want %d", len(recs), len(answers))
	}
	for i, r := range recs {
		if r.Index != i {
			t.Errorf("record %d has index %d", i, r.Index)
		}
		if r.Identity != "F_x@y.de_R_x@y.de" {
			t.Errorf("record %d identity = %s", i, r.Identity)
		}
		if deref(r.Email) != "x@y.de" {
			t.Errorf("record %d email = %s", i, deref(r.Email))
		}
		if r.Question != nil {
			t.Errorf("record %d question should be nil for unknown field", i)
		}
	}
	if recs[2].Value != nil || recs[2].FieldID != nil {
		t.Errorf("unrecognized answer should resolve to nulls: %+v", recs[2])
	}
	if recs[0].Date != nil {
		t.Error("missing timestamp should give nil date")
	}
}

func TestBuild_EmptyResponse(t *testing.T) {
	b := NewBuilder(&forms.Form{ID: "F"})
	if recs := b.Build(forms.Response{ID: "R"}); len(recs) != 0 {
		t.Fatalf("records = %d, want 0", len(recs))
	}
}
