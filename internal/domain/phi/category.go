// Package phi defines the protected-health-information vocabulary shared by
// every pipeline stage: the fixed category set, the raw label-string codec,
// prediction windows, located mentions and scoring records.
package phi

// Category names one PHI entity type.  Values outside the fixed set can be
// held (they arrive from model output) but IsKnown reports false for them.
type Category string

const (
	Patient       Category = "PATIENT"
	Doctor        Category = "DOCTOR"
	Username      Category = "USERNAME"
	Profession    Category = "PROFESSION"
	Room          Category = "ROOM"
	Department    Category = "DEPARTMENT"
	Hospital      Category = "HOSPITAL"
	Organization  Category = "ORGANIZATION"
	Street        Category = "STREET"
	City          Category = "CITY"
	State         Category = "STATE"
	Country       Category = "COUNTRY"
	Zip           Category = "ZIP"
	LocationOther Category = "LOCATION-OTHER"
	Age           Category = "AGE"
	Date          Category = "DATE"
	Time          Category = "TIME"
	Duration      Category = "DURATION"
	Set           Category = "SET"
	Phone         Category = "PHONE"
	Fax           Category = "FAX"
	Email         Category = "EMAIL"
	URL           Category = "URL"
	IPAddr        Category = "IPADDR"
	SSN           Category = "SSN"
	MedicalRecord Category = "MEDICALRECORD"
	HealthPlan    Category = "HEALTHPLAN"
	Account       Category = "ACCOUNT"
	License       Category = "LICENSE"
	Vehicle       Category = "VEHICLE"
	Device        Category = "DEVICE"
	BioID         Category = "BIOID"
	IDNum         Category = "IDNUM"
)

// categories is the fixed category list in its canonical order.
var categories = []Category{
	Patient, Doctor, Username, Profession, Room, Department, Hospital,
	Organization, Street, City, State, Country, Zip, LocationOther,
	Age, Date, Time, Duration, Set, Phone, Fax, Email, URL,
	IPAddr, SSN, MedicalRecord, HealthPlan, Account, License, Vehicle,
	Device, BioID, IDNum,
}

var knownCategories = func() map[Category]struct{} {
	m := make(map[Category]struct{}, len(categories))
	for _, c := range categories {
		m[c] = struct{}{}
	}
	return m
}()

// String returns the category name.
func (c Category) String() string { return string(c) }

// IsKnown reports whether c belongs to the fixed category set.  Matching is
// case sensitive.
func (c Category) IsKnown() bool {
	_, ok := knownCategories[c]
	return ok
}

// ParseCategory converts s to a Category and reports whether it is known.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.IsKnown()
}

// AllCategories returns a copy of the fixed category list.
func AllCategories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategorySet builds a lookup set from names, ignoring unknown entries.
func CategorySet(names []string) map[Category]struct{} {
	set := make(map[Category]struct{}, len(names))
	for _, n := range names {
		if c, ok := ParseCategory(n); ok {
			set[c] = struct{}{}
		}
	}
	return set
}

//Personal.AI order the ending
