// Package vote reconciles duplicated and conflicting span proposals into one
// finalized annotation per document position.
//
// Records flow through four phases: duplicates are collapsed into counted
// candidates, candidates are grouped by start offset, start groups sharing a
// maximum end offset are merged, and one winner is picked per merged group
// after entry-level penalties.
package vote

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/deid-reconcile/internal/domain/phi"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/deid-reconcile/pkg/types/common"
)

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Candidate is one unique (document, category, start, end) proposal.  Record
// is the first formatted line seen for the key; Count is the number of raw
// occurrences minus any penalties.
type Candidate struct {
	DocumentID string       `json:"-"`
	Category   phi.Category `json:"-"`
	Start      int          `json:"-"`
	End        int          `json:"-"`
	Record     string       `json:"output"`
	Count      int          `json:"count"`
}

// EndKey identifies a merged group: a document and the maximum end offset
// shared by its start groups.
type EndKey struct {
	DocumentID string `json:"document_id"`
	End        int    `json:"end"`
}

// Group is one merged candidate pool.
type Group struct {
	Key        EndKey       `json:"key"`
	Candidates []*Candidate `json:"candidates"`
}

// Tie is a winner selection that could not be decided.  The first surviving
// candidate was kept.
type Tie struct {
	Key        EndKey      `json:"key"`
	Kept       Candidate   `json:"kept"`
	Candidates []Candidate `json:"candidates"`
}

// Result is the outcome of one aggregation pass.
type Result struct {
	// Finalized holds one winner per surviving group, sorted by document,
	// start and end.
	Finalized []Candidate
	// Pool holds every merged group in first-appearance order.  Counts reflect
	// the penalties applied during selection.
	Pool []*Group
	// Ties lists the undecided selections.
	Ties []Tie
	// Skipped counts input lines that were not valid records.
	Skipped int
}

// Lines returns the finalized records.
func (r *Result) Lines() []string {
	out := make([]string, len(r.Finalized))
	for i, c := range r.Finalized {
		out[i] = c.Record
	}
	return out
}

// WritePool encodes the candidate pool as indented JSON.
func (r *Result) WritePool(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(r.Pool)
}

// ---------------------------------------------------------------------------
// Aggregator
// ---------------------------------------------------------------------------

// Aggregator runs the voting passes.  It holds no per-run state and may be
// reused.
type Aggregator struct {
	logger  logging.Logger
	metrics *prometheus.PipelineMetrics
}

// NewAggregator creates an Aggregator.  Nil dependencies are replaced with
// no-op implementations.
func NewAggregator(logger logging.Logger, metrics *prometheus.PipelineMetrics) *Aggregator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = prometheus.NewNoopPipelineMetrics()
	}
	return &Aggregator{logger: logger.Named("vote"), metrics: metrics}
}

// AggregateMentions formats mentions as records and aggregates them.
func (a *Aggregator) AggregateMentions(mentions []phi.Mention) *Result {
	lines := make([]string, len(mentions))
	for i, m := range mentions {
		lines[i] = m.Record()
	}
	return a.Aggregate(lines)
}

// Aggregate collapses records into one winner per merged group.  Lines with
// fewer than five tab-separated fields or non-integer offsets are skipped.
func (a *Aggregator) Aggregate(lines []string) *Result {
	res := &Result{}

	unique := a.deduplicate(lines, res)
	starts := groupByStart(unique)
	res.Pool = mergeByMaxEnd(starts)

	a.metrics.CandidatesTotal.WithLabelValues("unique").Set(float64(unique.Len()))
	a.metrics.CandidatesTotal.WithLabelValues("start_groups").Set(float64(starts.Len()))
	a.metrics.CandidatesTotal.WithLabelValues("end_groups").Set(float64(len(res.Pool)))

	perCategory := make(map[phi.Category]int)
	for _, g := range res.Pool {
		winner, tie := a.selectWinner(g)
		if tie != nil {
			res.Ties = append(res.Ties, *tie)
		}
		if winner == nil {
			a.metrics.DroppedGroups.WithLabelValues().Inc()
			continue
		}
		res.Finalized = append(res.Finalized, *winner)
		perCategory[winner.Category]++
	}

	sort.SliceStable(res.Finalized, func(i, j int) bool {
		x, y := res.Finalized[i], res.Finalized[j]
		if x.DocumentID != y.DocumentID {
			return x.DocumentID < y.DocumentID
		}
		if x.Start != y.Start {
			return x.Start < y.Start
		}
		return x.End < y.End
	})
	for cat, n := range perCategory {
		a.metrics.FinalizedMentions.WithLabelValues(string(cat)).Set(float64(n))
	}
	return res
}

type candidateKey struct {
	DocumentID string
	Category   phi.Category
	Start      int
	End        int
}

// deduplicate counts occurrences per (document, category, start, end).
func (a *Aggregator) deduplicate(lines []string, res *Result) *common.OrderedMap[candidateKey, *Candidate] {
	unique := common.NewOrderedMap[candidateKey, *Candidate]()
	for _, line := range lines {
		parts := strings.Split(line, "\t")
		if len(parts) < 5 {
			res.Skipped++
			continue
		}
		start, errS := strconv.Atoi(parts[2])
		end, errE := strconv.Atoi(parts[3])
		if errS != nil || errE != nil {
			res.Skipped++
			a.logger.Debug("skipping record with non-integer offsets", logging.String(logging.FieldDocID, parts[0]))
			continue
		}
		key := candidateKey{DocumentID: parts[0], Category: phi.Category(parts[1]), Start: start, End: end}
		if c, ok := unique.Get(key); ok {
			c.Count++
			continue
		}
		unique.Set(key, &Candidate{
			DocumentID: key.DocumentID,
			Category:   key.Category,
			Start:      start,
			End:        end,
			Record:     line,
			Count:      1,
		})
	}
	return unique
}

// groupByStart re-keys candidates by (document, start).
func groupByStart(unique *common.OrderedMap[candidateKey, *Candidate]) *common.OrderedMap[phi.StartKey, []*Candidate] {
	starts := common.NewOrderedMap[phi.StartKey, []*Candidate]()
	for _, c := range unique.Values() {
		key := phi.StartKey{DocumentID: c.DocumentID, Start: c.Start}
		group, _ := starts.Get(key)
		starts.Set(key, append(group, c))
	}
	return starts
}

// mergeByMaxEnd re-keys each start group by (document, maximum end of the
// group) and concatenates start groups that land on the same key.
func mergeByMaxEnd(starts *common.OrderedMap[phi.StartKey, []*Candidate]) []*Group {
	merged := common.NewOrderedMap[EndKey, *Group]()
	for _, key := range starts.Keys() {
		group, _ := starts.Get(key)
		maxEnd := group[0].End
		for _, c := range group[1:] {
			if c.End > maxEnd {
				maxEnd = c.End
			}
		}
		ek := EndKey{DocumentID: key.DocumentID, End: maxEnd}
		g, ok := merged.Get(ek)
		if !ok {
			g = &Group{Key: ek}
			merged.Set(ek, g)
		}
		g.Candidates = append(g.Candidates, group...)
	}
	return merged.Values()
}

// selectWinner applies penalties and picks the candidate with the highest
// count, then the longest record, then TIME over DATE.  Any other full tie
// stops the scan and keeps the current best.
func (a *Aggregator) selectWinner(g *Group) (*Candidate, *Tie) {
	if len(g.Candidates) == 1 {
		c := g.Candidates[0]
		if !a.penalize(c) {
			return nil, nil
		}
		return c, nil
	}

	var best *Candidate
	for _, c := range g.Candidates {
		if !a.penalize(c) {
			continue
		}
		switch {
		case best == nil:
			best = c
		case c.Count > best.Count || (c.Count == best.Count && recordLen(c) > recordLen(best)):
			best = c
		case c.Count == best.Count && recordLen(c) == recordLen(best):
			if strings.Contains(c.Record, string(phi.Time)) && strings.Contains(best.Record, string(phi.Date)) {
				best = c
				continue
			}
			if !strings.Contains(best.Record, string(phi.Time)) {
				return best, a.undecided(g, best)
			}
		}
	}
	return best, nil
}

func (a *Aggregator) penalize(c *Candidate) bool {
	fired, survives := applyPenalties(c)
	for _, rule := range fired {
		a.metrics.PenalizedTotal.WithLabelValues(rule).Inc()
	}
	return survives
}

func (a *Aggregator) undecided(g *Group, kept *Candidate) *Tie {
	tie := &Tie{Key: g.Key, Kept: *kept, Candidates: make([]Candidate, len(g.Candidates))}
	entries := make([]string, len(g.Candidates))
	for i, c := range g.Candidates {
		tie.Candidates[i] = *c
		entries[i] = strconv.Itoa(c.Count) + "\t" + c.Record
	}
	a.metrics.UnresolvedTies.WithLabelValues().Inc()
	a.logger.Warn("Undecided",
		logging.String(logging.FieldDocID, g.Key.DocumentID),
		logging.Int("end", g.Key.End),
		logging.String("kept", kept.Record),
		logging.Strings("entries", entries))
	return tie
}

// recordLen is the length of the formatted record in characters.
func recordLen(c *Candidate) int { return utf8.RuneCountInString(c.Record) }

//Personal.AI order the ending
