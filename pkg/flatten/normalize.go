package flatten

import (
	"strconv"
	"strings"

	"github.com/hazyhaar/formsync/pkg/forms"
)

// Normalize returns the display value of one answer, or nil when the answer
// carries nothing usable. meta may be nil.
func Normalize(a forms.Answer, meta *FieldMeta) *string {
	var choices *ChoiceTable
	if meta != nil {
		choices = meta.Choices
	}

	switch v := a.(type) {
	case forms.TextAnswer:
		return str(v.Text)
	case forms.EmailAnswer:
		return str(v.Email)
	case forms.NumberAnswer:
		return str(formatNumber(v.Number))
	case forms.DateAnswer:
		return str(v.Date)
	case forms.BooleanAnswer:
		return str(strconv.FormatBool(v.Boolean))
	case forms.URLAnswer:
		return str(v.URL)
	case forms.ChoiceAnswer:
		return normalizeChoice(v, choices)
	case forms.ChoicesAnswer:
		return normalizeChoices(v, choices)
	case forms.FileAnswer:
		return str(v.URL)
	case forms.PhoneAnswer:
		return str(v.Phone)
	default:
		return nil
	}
}

// normalizeChoice: the answer's own label, then the id looked up in the
// field's options, then the free-text "other".
func normalizeChoice(v forms.ChoiceAnswer, choices *ChoiceTable) *string {
	if v.Label != "" {
		if label, ok := choices.Resolve(ByLabel(v.Label)); ok {
			return str(label)
		}
		return str(v.Label)
	}
	if label, ok := choices.Resolve(ByID(v.ID)); ok && label != "" {
		return str(label)
	}
	if v.Other != "" {
		return str(v.Other)
	}
	return nil
}

func normalizeChoices(v forms.ChoicesAnswer, choices *ChoiceTable) *string {
	labels := make([]string, 0, len(v.Labels)+1)
	if len(v.Labels) > 0 {
		labels = append(labels, v.Labels...)
	} else {
		for _, id := range v.IDs {
			if label, ok := choices.Resolve(ByID(id)); ok && label != "" {
				labels = append(labels, label)
			}
		}
	}
	if v.Other != "" {
		labels = append(labels, v.Other)
	}
	if len(labels) == 0 {
		return nil
	}
	return str(strings.Join(labels, ", "))
}

func str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
