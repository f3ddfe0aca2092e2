package vote

import "strings"

// ---------------------------------------------------------------------------
// Entry-level penalties
// ---------------------------------------------------------------------------

// Penalty rule names, used as the metric label.
const (
	RuleOrganization = "organization"
	RuleDate         = "date"
)

// organizationExclusions mark a genuine organization name.
var organizationExclusions = []string{"Corporation", "Inc", "Company", "Companies", "Energy", "Power"}

// timeTokens mark a DATE candidate that is probably a mis-split TIME.
var timeTokens = []string{"at", "on", "am", "pm", ":"}

// penaltyRule decrements a candidate's count when Applies matches its
// formatted record.  Matching is on the whole record line.
type penaltyRule struct {
	Name    string
	Applies func(record string) bool
}

var penaltyRules = []penaltyRule{
	{
		Name: RuleOrganization,
		Applies: func(r string) bool {
			return strings.Contains(r, "ORGANIZATION") && !containsAny(r, organizationExclusions)
		},
	},
	{
		Name: RuleDate,
		Applies: func(r string) bool {
			return strings.Contains(r, "DATE") && containsAny(r, timeTokens)
		},
	},
}

// applyPenalties decrements c.Count once per matching rule and reports the
// rules that fired and whether the candidate survives.
func applyPenalties(c *Candidate) (fired []string, survives bool) {
	for _, rule := range penaltyRules {
		if rule.Applies(c.Record) {
			c.Count--
			fired = append(fired, rule.Name)
		}
	}
	return fired, c.Count > 0
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
