package phi_extractor

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

// ---------------------------------------------------------------------------
// Known data sets
// ---------------------------------------------------------------------------

// patientDenylist holds tokens the model repeatedly mislabels as PATIENT.
var patientDenylist = []string{"PANCREAS", "Vessels", "HOOKWIRE", "SGP", "IMMUNOSTAINS", "HARTMANN"}

// durationUnits are the unit tokens a DURATION must contain.
var durationUnits = []string{"day", "week", "month", "year", "dy", "wk", "mth", "yr"}

// maxAge is the largest plausible AGE value.
const maxAge = 110

// ---------------------------------------------------------------------------
// Validation rules
// ---------------------------------------------------------------------------

// labelRule reports whether content is plausible for its category.
type labelRule func(content string) bool

// validationRules maps a category to its content rule.  Categories without an
// entry accept any content that passes the general rules.
var validationRules = map[phi.Category]labelRule{
	phi.Age:          validAge,
	phi.Date:         minLength(3),
	phi.Department:   minLength(3),
	phi.Doctor:       func(x string) bool { return !containsDigit(x) && x != "eh" },
	phi.Duration:     func(x string) bool { return containsAny(strings.ToLower(x), durationUnits) },
	phi.Hospital:     func(x string) bool { return runeLen(x) >= 4 && strings.Contains(x, " ") },
	phi.IDNum:        minLength(5),
	phi.Organization: minLength(5),
	phi.Patient:      func(x string) bool { return !containsDigit(x) && !containsAny(x, patientDenylist) },
	phi.Phone:        func(x string) bool { n := runeLen(x); return n == 8 || n == 9 },
	phi.Street:       func(x string) bool { return !strings.Contains(strings.ToLower(x), "box") },
	phi.Time:         minLength(5),
	phi.Zip:          func(x string) bool { return runeLen(x) == 4 },
}

// ValidateLabel decides whether a parsed (category, content) pair is kept.
// The general rules run first: the category must be known, only HOSPITAL may
// mention "hospital", and only AGE may be a single character.
func ValidateLabel(category phi.Category, content string) bool {
	if !category.IsKnown() {
		return false
	}
	if category != phi.Hospital && strings.Contains(strings.ToLower(content), "hospital") {
		return false
	}
	if category != phi.Age && runeLen(content) == 1 {
		return false
	}
	if rule, ok := validationRules[category]; ok {
		return rule(content)
	}
	return true
}

// validAge rejects long, alphabetic, non-integer or implausibly large ages.
func validAge(x string) bool {
	if runeLen(x) > 3 {
		return false
	}
	for _, r := range x {
		if unicode.IsLetter(r) {
			return false
		}
	}
	n, err := strconv.Atoi(x)
	if err != nil {
		return false
	}
	return n <= maxAge
}

func minLength(n int) labelRule {
	return func(x string) bool { return runeLen(x) >= n }
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

//Personal.AI order the ending
