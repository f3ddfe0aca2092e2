package phi_extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

func TestValidateLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category phi.Category
		content  string
		want     bool
	}{
		{"age two digits", phi.Age, "03", true},
		{"age single digit allowed", phi.Age, "8", true},
		{"age too long", phi.Age, "1234", false},
		{"age letters", phi.Age, "4y", false},
		{"age above limit", phi.Age, "120", false},
		{"age at limit", phi.Age, "110", true},
		{"age not an integer", phi.Age, "3.5", false},
		{"duration with unit", phi.Duration, "18 months", true},
		{"duration abbreviated unit", phi.Duration, "3 WKS", true},
		{"duration single char", phi.Duration, "X", false},
		{"duration without unit", phi.Duration, "18", false},
		{"date short", phi.Date, "56", false},
		{"date ok", phi.Date, "5/6", true},
		{"department short", phi.Department, "ED", false},
		{"time four chars", phi.Time, "9:30", false},
		{"time five chars", phi.Time, "9:30a", true},
		{"idnum short", phi.IDNum, "1234", false},
		{"idnum ok", phi.IDNum, "12345", true},
		{"doctor digit", phi.Doctor, "Smith2", false},
		{"doctor eh", phi.Doctor, "eh", false},
		{"doctor ok", phi.Doctor, "Smith", true},
		{"hospital needs space", phi.Hospital, "Royal", false},
		{"hospital keyword allowed", phi.Hospital, "Royal Hospital", true},
		{"hospital keyword elsewhere", phi.City, "Main Hospital", false},
		{"organization short", phi.Organization, "ACME", false},
		{"organization ok", phi.Organization, "Acme Inc", true},
		{"patient denylist", phi.Patient, "HOOKWIRE", false},
		{"patient digit", phi.Patient, "J0hn", false},
		{"patient ok", phi.Patient, "John", true},
		{"phone eight", phi.Phone, "12345678", true},
		{"phone nine", phi.Phone, "123456789", true},
		{"phone seven", phi.Phone, "1234567", false},
		{"street box", phi.Street, "PO Box 12", false},
		{"street ok", phi.Street, "12 Main St", true},
		{"zip four", phi.Zip, "2000", true},
		{"zip five", phi.Zip, "20000", false},
		{"no rule category", phi.Email, "a@b.c", true},
		{"no rule single char", phi.City, "Y", false},
		{"unknown category", phi.Category("PHI"), "Null", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidateLabel(tt.category, tt.content))
		})
	}
}

func TestValidateLabel_UnknownCategoryAlwaysRejected(t *testing.T) {
	t.Parallel()
	contents := []string{"", "a", "John Smith", "12/03/2019", "18 months", "Royal Hospital"}
	for _, c := range []phi.Category{"PHI", "NAME", "date", "LOCATION", ""} {
		for _, content := range contents {
			assert.False(t, ValidateLabel(c, content), "%s:%s", c, content)
		}
	}
}

func TestValidateLabel_CountsCharactersNotBytes(t *testing.T) {
	t.Parallel()
	// Four characters, eight bytes.
	assert.True(t, ValidateLabel(phi.Zip, "ääää"))
	assert.False(t, ValidateLabel(phi.City, "é"))
}

//Personal.AI order the ending
