// CLAUDE:SUMMARY Extracts the respondent's email and chiffre from a response's answers with first-match-wins ordering.
package flatten

import (
	"regexp"
	"strconv"

	"github.com/hazyhaar/formsync/pkg/forms"
)

// chiffrePattern is 5 digits, one letter, 8 digits, not inside a longer run
// of digits. Letters or punctuation may touch it ("ID12345X67890123").
var chiffrePattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{5}[A-Za-z][0-9]{8})(?:[^0-9]|$)`)

// MatchChiffre returns the first chiffre found in s.
func MatchChiffre(s string) (string, bool) {
	m := chiffrePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IdentitySignals are the identity values of one response. Nil means absent.
type IdentitySignals struct {
	Email   *string
	Chiffre *string
}

// ExtractIdentity scans answers once, in order. The first non-empty email
// answer gives Email; the first textual candidate matching the chiffre
// pattern gives Chiffre. The two scans are independent.
func ExtractIdentity(answers []forms.Answer) IdentitySignals {
	var sig IdentitySignals
	for _, a := range answers {
		if sig.Email == nil {
			if e, ok := a.(forms.EmailAnswer); ok && e.Email != "" {
				email := e.Email
				sig.Email = &email
			}
		}
		if sig.Chiffre == nil {
			for _, c := range textCandidates(a) {
				if m, ok := MatchChiffre(c); ok {
					sig.Chiffre = &m
					break
				}
			}
		}
		if sig.Email != nil && sig.Chiffre != nil {
			break
		}
	}
	return sig
}

// textCandidates lists the string values an answer exposes, in the order
// they are tested against the chiffre pattern.
func textCandidates(a forms.Answer) []string {
	switch v := a.(type) {
	case forms.TextAnswer:
		return []string{v.Text}
	case forms.EmailAnswer:
		return []string{v.Email}
	case forms.NumberAnswer:
		return []string{formatNumber(v.Number)}
	case forms.DateAnswer:
		return []string{v.Date}
	case forms.ChoiceAnswer:
		return []string{v.Label}
	case forms.ChoicesAnswer:
		return v.Labels
	default:
		return nil
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
