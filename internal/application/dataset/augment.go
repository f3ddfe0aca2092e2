package dataset

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/divan/num2words"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// AugmentCounts is the sample budget per rare category.  A zero count
// disables the category.
type AugmentCounts struct {
	Phone         int
	LocationOther int
	Duration      int
	Set           int
	Organization  int
	Country       int
	// Noise enables the random insertion and deletion variants.
	Noise bool
	// NormalizeDurations rewrites the normalized value of forged durations.
	NormalizeDurations bool
}

// DefaultAugmentCounts is the budget used to build the released datasets.
var DefaultAugmentCounts = AugmentCounts{
	Phone:         50,
	LocationOther: 80,
	Duration:      80,
	Set:           50,
	Organization:  30,
	Country:       80,
	Noise:         true,
}

// Enabled reports whether any generator would run.
func (c AugmentCounts) Enabled() bool {
	return c.Phone > 0 || c.LocationOther > 0 || c.Duration > 0 ||
		c.Set > 0 || c.Organization > 0 || c.Country > 0
}

const (
	noiseToken = "[ADDED NOISE]"
	noiseRatio = 0.15
)

// ---------------------------------------------------------------------------
// Augmenter
// ---------------------------------------------------------------------------

// Augmenter forges variants of samples that carry rare categories.  Output
// is a deterministic function of the seed and the call sequence.  It is not
// safe for concurrent use.
type Augmenter struct {
	rnd    *rand.Rand
	counts AugmentCounts
}

// NewAugmenter creates an Augmenter seeded with seed.
func NewAugmenter(seed int64, counts AugmentCounts) *Augmenter {
	return &Augmenter{rnd: rand.New(rand.NewSource(seed)), counts: counts}
}

// Enhance returns the synthetic variants of w, without repeats.
func (a *Augmenter) Enhance(w phi.Window) []phi.Window {
	var out []phi.Window
	for _, t := range phi.ParseLabelString(w.Label) {
		switch t.Category {
		case phi.Phone:
			out = append(out, a.enhancePhone(w, t.Content)...)
		case phi.Country:
			out = append(out, a.enhanceCountry(w, t.Content)...)
		case phi.LocationOther:
			out = append(out, a.enhanceLocationOther(w, t.Content)...)
		case phi.Duration:
			out = append(out, a.enhanceDuration(w, t)...)
		case phi.Organization:
			out = append(out, a.enhanceOrganization(w, t.Content)...)
		case phi.Set:
			out = append(out, a.noised(w, a.counts.Set)...)
		}
	}
	return dedupeWindows(out)
}

// replaced swaps every occurrence of old for repl in both text and label.
func replaced(w phi.Window, old, repl string) phi.Window {
	w.Text = strings.ReplaceAll(w.Text, old, repl)
	w.Label = strings.ReplaceAll(w.Label, old, repl)
	return w
}

func (a *Augmenter) enhancePhone(w phi.Window, number string) []phi.Window {
	n := a.counts.Phone
	out := a.noised(w, int(float64(n)*0.2)/2)
	for _, p := range a.PhoneNumbers(int(float64(n) * 0.8)) {
		out = append(out, replaced(w, number, p))
	}
	return out
}

func (a *Augmenter) enhanceCountry(w phi.Window, country string) []phi.Window {
	n := a.counts.Country
	if n == 0 {
		return nil
	}
	noised := int(float64(n) * 0.4)
	repeat := (n - noised) / len(countries)
	out := a.noised(w, noised)
	for _, c := range countries {
		nw := replaced(w, country, c)
		out = append(out, nw)
		out = append(out, a.noised(nw, repeat)...)
	}
	return out
}

func (a *Augmenter) enhanceLocationOther(w phi.Window, location string) []phi.Window {
	n := a.counts.LocationOther
	var out []phi.Window
	lower := strings.ToLower(location)
	if strings.Contains(lower, "box") || strings.Contains(lower, "po") {
		generated := int(float64(n) * 0.5)
		n -= generated
		for _, box := range a.POBoxes(generated) {
			out = append(out, replaced(w, location, box))
		}
	}
	return append(out, a.noised(w, n)...)
}

func (a *Augmenter) enhanceDuration(w phi.Window, t phi.LabelTriple) []phi.Window {
	n := a.counts.Duration
	generated := int(float64(n) * 0.7)
	out := a.noised(w, n-generated)
	for _, d := range a.Durations(generated) {
		nw := replaced(w, t.Content, d.Text)
		if a.counts.NormalizeDurations && t.Normalized != "" {
			nw.Label = strings.ReplaceAll(nw.Label, t.Normalized, phi.NormMarker+d.Normalized)
		}
		out = append(out, nw)
	}
	return out
}

func (a *Augmenter) enhanceOrganization(w phi.Window, org string) []phi.Window {
	n := a.counts.Organization
	generated := int(float64(n) * 0.5)
	out := a.noised(w, n-generated)
	for _, o := range a.OrganizationNames(generated) {
		out = append(out, replaced(w, org, o))
	}
	return out
}

// ---------------------------------------------------------------------------
// Noise
// ---------------------------------------------------------------------------

// noised returns n variants of w, alternating inserted and deleted words.
// No variant loses the content of a label triple.
func (a *Augmenter) noised(w phi.Window, n int) []phi.Window {
	if !a.counts.Noise || n < 2 {
		return nil
	}
	contents := labelContents(w.Label)
	out := make([]phi.Window, 0, n/2*2)
	for i := 0; i < n/2; i++ {
		added := w
		added.Text = a.AddNoise(w.Text, contents)
		deleted := w
		deleted.Text = a.DeleteWords(w.Text, contents)
		out = append(out, added, deleted)
	}
	return out
}

func labelContents(label string) []string {
	triples := phi.ParseLabelString(label)
	out := make([]string, len(triples))
	for i, t := range triples {
		out[i] = t.Content
	}
	return out
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// AddNoise inserts the noise token between words of sentence for 15% of
// its words.  An insertion is kept in the sentence only while every
// protected string still occurs; rejected insertions stay in the working
// word list.
func (a *Augmenter) AddNoise(sentence string, protected []string) string {
	words := strings.Split(sentence, " ")
	times := int(float64(len(words)) * noiseRatio)
	for i := 0; i < times; i++ {
		idx := a.rnd.Intn(len(words))
		words = append(words[:idx], append([]string{noiseToken}, words[idx:]...)...)
		if candidate := strings.Join(words, " "); containsAll(candidate, protected) {
			sentence = candidate
		}
	}
	return sentence
}

// DeleteWords removes 15% of the words of sentence, skipping deletions that
// would remove a protected string.  At least one word is kept.
func (a *Augmenter) DeleteWords(sentence string, protected []string) string {
	words := strings.Split(sentence, " ")
	times := int(float64(len(words)) * noiseRatio)
	for i := 0; i < times && len(words) > 1; i++ {
		idx := a.rnd.Intn(len(words))
		candidate := append(append([]string{}, words[:idx]...), words[idx+1:]...)
		if containsAll(strings.Join(candidate, " "), protected) {
			words = candidate
		}
	}
	return strings.Join(words, " ")
}

// ---------------------------------------------------------------------------
// Generators
// ---------------------------------------------------------------------------

// intRange returns a uniform integer in [lo, hi].
func (a *Augmenter) intRange(lo, hi int) int { return lo + a.rnd.Intn(hi-lo+1) }

// PhoneNumbers forges n eight-digit numbers without zeros, half of them
// split into two groups of four.
func (a *Augmenter) PhoneNumbers(n int) []string {
	const digits = "123456789"
	group := func() string {
		b := make([]byte, 4)
		for i := range b {
			b[i] = digits[a.rnd.Intn(len(digits))]
		}
		return string(b)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		one, two := group(), group()
		if a.rnd.Intn(2) == 0 {
			out = append(out, one+" "+two)
		} else {
			out = append(out, one+two)
		}
	}
	return out
}

// POBoxes forges n post office boxes, half spelled "P.O. BOX" and half
// "PO BOX".
func (a *Augmenter) POBoxes(n int) []string {
	out := make([]string, 0, n/2*2)
	for _, prefix := range []string{"P.O. BOX", "PO BOX"} {
		for i := 0; i < n/2; i++ {
			out = append(out, fmt.Sprintf("%s %d", prefix, a.intRange(1, 10000)))
		}
	}
	return out
}

// ForgedSample is a synthetic surface form with its normalized value.
type ForgedSample struct {
	Text       string
	Normalized string
}

var durationUnits = []struct {
	name, abbr, iso string
}{
	{"day", "dy", "D"},
	{"week", "wk", "W"},
	{"month", "mth", "M"},
	{"year", "yr", "Y"},
}

// Durations forges duration phrases in groups of spellings of one random
// quantity and unit: words, digits and abbreviation, each also as a range
// and pluralised above one.  Words are only used up to ten.  A range is
// normalized to its mean.  n/8 groups are produced.
func (a *Augmenter) Durations(n int) []ForgedSample {
	var out []ForgedSample
	for i := 0; i < n/8; i++ {
		q := a.intRange(1, 50)
		r := a.intRange(1, 5)
		u := durationUnits[a.rnd.Intn(len(durationUnits))]

		wordFull := num2words.Convert(q) + " " + u.name
		numFull := fmt.Sprintf("%d %s", q, u.name)
		numAbbr := fmt.Sprintf("%d %s", q, u.abbr)
		rangeFull := fmt.Sprintf("%d-%d %s", q, q+r, u.name)
		rangeAbbr := fmt.Sprintf("%d-%d %s", q, q+r, u.abbr)

		var single, ranged []string
		switch {
		case q == 1:
			single = []string{wordFull, numFull, numAbbr}
			ranged = []string{rangeFull, rangeAbbr}
		case q <= 10:
			single = []string{wordFull, numFull, numAbbr, wordFull + "s", numFull + "s", numAbbr + "s"}
			ranged = []string{rangeFull, rangeAbbr, rangeFull + "s", rangeAbbr + "s"}
		default:
			single = []string{numFull, numAbbr, numFull + "s", numAbbr + "s"}
			ranged = []string{rangeFull, rangeAbbr, rangeFull + "s", rangeAbbr + "s"}
		}

		norm := fmt.Sprintf("P%d%s", q, u.iso)
		rangeNorm := "P" + RangeMean(q, r) + u.iso
		for _, s := range single {
			out = append(out, ForgedSample{Text: s, Normalized: norm})
		}
		for _, s := range ranged {
			out = append(out, ForgedSample{Text: s, Normalized: rangeNorm})
		}
	}
	return out
}

// RangeMean formats the midpoint of quantity and quantity+span: an integer
// for even spans, one decimal otherwise.
func RangeMean(quantity, span int) string {
	if span%2 == 0 {
		return strconv.Itoa(quantity + span/2)
	}
	return strconv.FormatFloat(float64(quantity)+float64(span)/2, 'f', 1, 64)
}

var setFrequencies = []ForgedSample{
	{"once", "R1"}, {"twice", "R2"}, {"three times", "R3"}, {"four times", "R4"},
	{"five times", "R5"}, {"six times", "R6"}, {"seven times", "R7"},
	{"eight times", "R8"}, {"nine times", "R9"}, {"ten times", "R10"},
}

// SetSamples draws n frequency phrases with their repetition counts.
func (a *Augmenter) SetSamples(n int) []ForgedSample {
	out := make([]ForgedSample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, setFrequencies[a.rnd.Intn(len(setFrequencies))])
	}
	return out
}

var (
	organizationWords = []string{
		"Global", "United", "American", "Pacific", "National", "Enterprise",
		"International", "Tech", "Innovations", "Solutions", "Media",
		"Industries", "Motors", "Electric", "Software", "Networks",
		"Communications", "Insurance", "Pharmaceuticals", "Corporation",
		"Group", "Holdings", "Systems", "Materials", "Properties", "Healthcare",
		"Financial",
	}
	organizationTypes = []string{"Inc", "LLC", "Group", "Ltd", "Corporation", "Co", "PLC", "GmbH"}

	countries = []string{
		"United States", "Canada", "Germany", "France", "China", "Japan", "United Kingdom",
		"India", "Brazil", "South Africa", "Indonesia", "Pakistan", "Nigeria", "Bangladesh",
		"Russia", "Mexico", "Ethiopia", "Philippines", "Egypt", "Vietnam",
		"Democratic Republic of Congo", "Turkey", "Iran", "Thailand", "Italy",
		"Tanzania", "Myanmar", "Kenya", "South Korea", "Colombia", "Spain", "Uganda",
		"Argentina", "Algeria", "Sudan", "Ukraine", "Iraq", "Afghanistan", "Poland",
		"Morocco", "Saudi Arabia", "Uzbekistan", "Peru", "Angola", "Malaysia", "Mozambique",
		"Ghana", "Yemen", "Nepal", "Venezuela", "American",
	}
)

// OrganizationNames forges n company names of one to three distinct words
// and a company type.
func (a *Augmenter) OrganizationNames(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k := a.intRange(1, 3)
		perm := a.rnd.Perm(len(organizationWords))[:k]
		words := make([]string, k)
		for j, p := range perm {
			words[j] = organizationWords[p]
		}
		kind := organizationTypes[a.rnd.Intn(len(organizationTypes))]
		out = append(out, strings.Join(words, " ")+" "+kind)
	}
	return out
}

// Countries returns the replacement country list.
func Countries() []string { return append([]string(nil), countries...) }

// ---------------------------------------------------------------------------
// Normalization pairs
// ---------------------------------------------------------------------------

// ForgeNormalizationPairs returns "CAT:text<TAB>norm" rows for n/8 groups
// of forged durations and n frequency phrases.
func (a *Augmenter) ForgeNormalizationPairs(n int) []string {
	var out []string
	for _, d := range a.Durations(n) {
		out = append(out, string(phi.Duration)+":"+d.Text+"\t"+d.Normalized)
	}
	for _, s := range a.SetSamples(n) {
		out = append(out, string(phi.Set)+":"+s.Text+"\t"+s.Normalized)
	}
	return out
}

// NormalizationDataset merges the pairs of every document with n forged
// pairs per generator, dropping repeats.
func (a *Augmenter) NormalizationDataset(docs *Annotations, n int) []string {
	var rows []string
	for _, recs := range docs.Values() {
		rows = append(rows, BuildNormalizationPairs(recs)...)
	}
	rows = append(rows, a.ForgeNormalizationPairs(n)...)
	return dedupe(rows)
}

//Personal.AI order the ending
