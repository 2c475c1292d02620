package flatten

import "github.com/hazyhaar/formsync/pkg/forms"

// choiceFieldTypes are the field types whose options get a ChoiceTable.
var choiceFieldTypes = map[string]bool{
	"multiple_choice": true,
	"dropdown":        true,
}

// ChoiceRef asks a ChoiceTable to resolve either an option identifier or a label.
type ChoiceRef struct {
	byLabel bool
	key     string
}

// ByID refers to an option by its internal identifier.
func ByID(id string) ChoiceRef { return ChoiceRef{key: id} }

// ByLabel refers to an option by its display label.
func ByLabel(label string) ChoiceRef { return ChoiceRef{byLabel: true, key: label} }

// ChoiceTable resolves option references of one field to display labels.
type ChoiceTable struct {
	byID    map[string]string
	byLabel map[string]string
}

func newChoiceTable(choices []forms.Choice) *ChoiceTable {
	t := &ChoiceTable{
		byID:    make(map[string]string, len(choices)),
		byLabel: make(map[string]string, len(choices)),
	}
	for _, c := range choices {
		if c.ID != "" {
			t.byID[c.ID] = c.Label
		}
		if c.Label != "" {
			t.byLabel[c.Label] = c.Label
		}
	}
	return t
}

// Resolve returns the display label for ref.
func (t *ChoiceTable) Resolve(ref ChoiceRef) (string, bool) {
	if t == nil || ref.key == "" {
		return "", false
	}
	m := t.byID
	if ref.byLabel {
		m = t.byLabel
	}
	label, ok := m[ref.key]
	return label, ok
}

// FieldMeta is the resolved description of one form field.
type FieldMeta struct {
	ID    string
	Title string
	Type  string
	// Choices is nil for fields without choice semantics.
	Choices *ChoiceTable
}

// Fields maps field identifiers to their metadata for one form.
type Fields map[string]*FieldMeta

// ResolveFields builds the lookup structure for a form's field definitions.
// Unknown field types are kept with identifier, title and type only.
func ResolveFields(defs []forms.Field) Fields {
	out := make(Fields, len(defs))
	for _, d := range defs {
		m := &FieldMeta{ID: d.ID, Title: d.Title, Type: d.Type}
		if choiceFieldTypes[d.Type] {
			m.Choices = newChoiceTable(d.Properties.Choices)
		}
		out[d.ID] = m
	}
	return out
}

// Lookup returns the metadata of a field, or nil when the identifier is unknown.
func (f Fields) Lookup(id string) *FieldMeta {
	if id == "" {
		return nil
	}
	return f[id]
}
