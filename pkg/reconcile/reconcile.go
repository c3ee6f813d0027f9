// Package reconcile merges noisy harvested level candidates with the
// authoritative lexicon into a deduplicated, level-assigned entry set. This
// is where identity resolution, level-conflict policy, tag merging and
// reading rendering all happen; everything downstream (deck assembly) is a
// pure transformation of its output.
package reconcile

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/japaniel/jlptdeck/pkg/furigana"
	"github.com/japaniel/jlptdeck/pkg/harvest"
	"github.com/japaniel/jlptdeck/pkg/jlpt"
	"github.com/japaniel/jlptdeck/pkg/lexicon"
)

// Entry is one reconciled vocabulary item, carrying everything a card needs.
type Entry struct {
	// Seq is the lexicon sequence number backing this entry.
	Seq string
	// Key is the normalized identity the entry was claimed under.
	Key lexicon.Key
	// Expression is the display form (kanji spelling when one exists).
	Expression string
	// Reading is the rendered reading: kana alone for usually-kana words,
	// furigana-aligned otherwise.
	Reading string
	// Kana is the raw kana reading, for audio lookups.
	Kana       string
	Definition string
	Additional []string
	Grammar    []string
	Level      jlpt.Level
	// Tags is the deduplicated, sorted union of harvested raw tags and
	// lexicon misc markers.
	Tags []string
	// Audio is the local clip path, filled in by the caller when the
	// extended variant is built.
	Audio string
}

// Conflict records a vocabulary item claimed by more than one level.
type Conflict struct {
	Key    lexicon.Key
	Levels []jlpt.Level
	Chosen jlpt.Level
}

// Result is the reconciled entry set plus the diagnostics a run summary
// reports. Nothing here is fatal; the counts exist so noisy input is never
// silently absorbed.
type Result struct {
	Entries []Entry
	// Unresolved lists harvested terms that matched nothing in the lexicon.
	Unresolved []string
	Conflicts  []Conflict
	// Dropped lists expressions removed by the near-duplicate sweep.
	Dropped []string
	// CommonAdded counts lexicon common-subset entries that joined the
	// Common bucket.
	CommonAdded int
}

// ReadingSource guesses the kana reading of a written form. It breaks ties
// when a harvested row carried no reading and several lexicon readings
// match the form.
type ReadingSource interface {
	ReadingOf(text string) string
}

// Options tunes a Reconciler.
type Options struct {
	// Policy picks the winning level when sources disagree.
	Policy jlpt.Policy
	// IncludeCommon sweeps lexicon common-subset entries that no candidate
	// claimed into the Common bucket.
	IncludeCommon bool
}

// Reconciler resolves candidates against a lexicon index. It runs
// single-threaded over the full candidate set; the index is read-only so no
// locking is involved.
type Reconciler struct {
	index    *lexicon.Index
	readings ReadingSource
	opts     Options
	log      *slog.Logger
}

// New creates a Reconciler. readings may be nil, in which case ambiguous
// reading-less candidates fall through to the lowest-sequence rule.
func New(index *lexicon.Index, readings ReadingSource, opts Options, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		index:    index,
		readings: readings,
		opts:     opts,
		log:      logger.With("component", "reconcile"),
	}
}

// group accumulates everything the candidate set claims about one lexicon
// entry. Sets, not lists, so the outcome cannot depend on arrival order.
type group struct {
	entry   *lexicon.Entry
	levels  map[jlpt.Level]struct{}
	rawTags map[string]struct{}
}

// Run reconciles every candidate from the given level results into one
// entry set. The output is deterministic: the same candidate multiset
// yields the same entries regardless of slice order.
func (r *Reconciler) Run(results []*harvest.LevelResult) *Result {
	res := &Result{}
	groups := make(map[string]*group)

	for _, lr := range results {
		if lr == nil {
			continue
		}
		for _, c := range lr.Candidates {
			entry, ok := r.resolve(c)
			if !ok {
				res.Unresolved = append(res.Unresolved, c.Term)
				continue
			}
			g := groups[entry.ID]
			if g == nil {
				g = &group{
					entry:   entry,
					levels:  make(map[jlpt.Level]struct{}),
					rawTags: make(map[string]struct{}),
				}
				groups[entry.ID] = g
			}
			g.levels[c.Level] = struct{}{}
			for _, t := range c.RawTags {
				if tag := normalizeTag(t); tag != "" {
					g.rawTags[tag] = struct{}{}
				}
			}
		}
	}

	seqs := make([]string, 0, len(groups))
	for seq := range groups {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return lessSeq(seqs[i], seqs[j]) })

	// Distinct lexicon entries can share an identity key through alternate
	// spellings; the lowest sequence keeps the key, ascending order makes
	// that deterministic.
	seenKeys := make(map[lexicon.Key]struct{}, len(seqs))

	for _, seq := range seqs {
		g := groups[seq]
		key := entryKey(g.entry)
		if _, dup := seenKeys[key]; dup {
			r.log.Debug("duplicate identity key", "expression", g.entry.Expression(), "seq", seq)
			continue
		}
		seenKeys[key] = struct{}{}
		levels := sortedLevels(g.levels)
		chosen := r.opts.Policy.Pick(levels)
		if len(levels) > 1 {
			res.Conflicts = append(res.Conflicts, Conflict{Key: key, Levels: levels, Chosen: chosen})
			r.log.Debug("level conflict", "expression", g.entry.Expression(),
				"levels", levels, "chosen", chosen)
		}
		res.Entries = append(res.Entries, r.render(g.entry, chosen, g.rawTags))
	}

	if r.opts.IncludeCommon {
		res.CommonAdded = r.addCommon(res, groups, seenKeys)
	}

	// The sweep runs after the Common additions so a kana-only twin that
	// joined through the Common bucket still collides with its kanji
	// spelling.
	res.Entries, res.Dropped = r.sweepNearDuplicates(res.Entries)

	sort.Strings(res.Unresolved)
	if len(res.Unresolved) > 0 {
		r.log.Warn("candidates without lexicon match", "count", len(res.Unresolved))
	}
	return res
}

// resolve maps one candidate to its lexicon entry. Rows that supplied a
// reading resolve by exact identity key; reading-less rows resolve through
// the form index, preferring common-flagged entries, then a morphological
// reading match, then the lowest sequence number.
func (r *Reconciler) resolve(c harvest.Candidate) (*lexicon.Entry, bool) {
	if c.Reading != "" {
		entries := r.index.Lookup(lexicon.NewKey(c.Term, c.Reading))
		if len(entries) == 0 {
			return nil, false
		}
		return entries[0], true
	}

	keys := r.index.KeysForForm(c.Term)
	switch len(keys) {
	case 0:
		return nil, false
	case 1:
		return r.index.Lookup(keys[0])[0], true
	}

	var common []lexicon.Key
	for _, k := range keys {
		if r.index.Lookup(k)[0].IsCommon() {
			common = append(common, k)
		}
	}
	if len(common) == 1 {
		return r.index.Lookup(common[0])[0], true
	}
	if len(common) > 1 {
		keys = common
	}

	if r.readings != nil {
		if guess := lexicon.ToHiragana(r.readings.ReadingOf(c.Term)); guess != "" {
			for _, k := range keys {
				if k.Reading == guess {
					return r.index.Lookup(k)[0], true
				}
			}
		}
	}

	best := r.index.Lookup(keys[0])[0]
	for _, k := range keys[1:] {
		if e := r.index.Lookup(k)[0]; lessSeq(e.ID, best.ID) {
			best = e
		}
	}
	return best, true
}

// render builds the output entry for a lexicon record at the given level.
func (r *Reconciler) render(e *lexicon.Entry, level jlpt.Level, rawTags map[string]struct{}) Entry {
	kana := lexicon.ToHiragana(e.PrimaryReading())
	expr := e.Expression()

	var rendered string
	if e.UsuallyKana() {
		rendered = kana
	} else {
		rendered = furigana.Align(expr, kana)
	}

	tags := make(map[string]struct{}, len(rawTags)+4)
	for t := range rawTags {
		tags[t] = struct{}{}
	}
	for _, f := range e.FormalityTags(r.index.Tags()) {
		tags[f] = struct{}{}
	}
	if e.UsuallyKana() {
		tags["usually_kana"] = struct{}{}
	}
	if e.Rare() {
		tags["rare_term"] = struct{}{}
	}

	return Entry{
		Seq:        e.ID,
		Key:        entryKey(e),
		Expression: expr,
		Reading:    rendered,
		Kana:       kana,
		Definition: e.PrimaryGloss(),
		Additional: e.AdditionalGlosses(),
		Grammar:    e.Grammar(r.index.Tags()),
		Level:      level,
		Tags:       sortedTags(tags),
	}
}

// sweepNearDuplicates removes entries that would produce two cards with the
// same visible reading: a kanji-bearing usually-kana word against its
// kana-only twin. The harder-leveled one goes, with the Common bucket
// ranking as the hardest, so a graded word always beats its Common twin; on
// a tie the higher sequence goes.
func (r *Reconciler) sweepNearDuplicates(entries []Entry) ([]Entry, []string) {
	byKana := make(map[string][]int)
	for i, e := range entries {
		byKana[e.Kana] = append(byKana[e.Kana], i)
	}

	dropped := make(map[int]struct{})
	for _, idxs := range byKana {
		if len(idxs) < 2 {
			continue
		}
		for _, i := range idxs {
			for _, j := range idxs {
				if i == j {
					continue
				}
				a, b := entries[i], entries[j]
				// a must be the usually-kana kanji spelling, b the
				// kana-only row it collides with.
				if !hasTag(a.Tags, "usually_kana") || a.Key.Form == a.Key.Reading {
					continue
				}
				if b.Key.Form != b.Key.Reading {
					continue
				}
				loser := i
				switch {
				case sweepRank(a.Level) > sweepRank(b.Level):
				case sweepRank(b.Level) > sweepRank(a.Level):
					loser = j
				case lessSeq(a.Seq, b.Seq):
					loser = j
				}
				dropped[loser] = struct{}{}
			}
		}
	}
	if len(dropped) == 0 {
		return entries, nil
	}

	kept := entries[:0]
	var names []string
	for i, e := range entries {
		if _, gone := dropped[i]; gone {
			names = append(names, e.Expression)
			r.log.Debug("dropped near-duplicate", "expression", e.Expression, "reading", e.Kana)
			continue
		}
		kept = append(kept, e)
	}
	sort.Strings(names)
	return kept, names
}

// addCommon appends lexicon common-subset entries that no candidate claimed
// to the Common bucket.
func (r *Reconciler) addCommon(res *Result, groups map[string]*group, seenKeys map[lexicon.Key]struct{}) int {
	added := 0
	for _, e := range r.index.CommonEntries() {
		if _, claimed := groups[e.ID]; claimed {
			continue
		}
		key := entryKey(e)
		if _, dup := seenKeys[key]; dup {
			continue
		}
		seenKeys[key] = struct{}{}
		res.Entries = append(res.Entries, r.render(e, jlpt.Common, nil))
		added++
	}
	return added
}

func entryKey(e *lexicon.Entry) lexicon.Key {
	return lexicon.NewKey(e.Expression(), e.PrimaryReading())
}

// sweepRank orders levels for the near-duplicate sweep: higher means harder,
// and the Common bucket ranks above every grade so that a graded spelling
// always outlives its Common twin.
func sweepRank(l jlpt.Level) int {
	if l == jlpt.Common {
		return 6
	}
	return 6 - int(l)
}

// lessSeq orders sequence numbers numerically. They are decimal strings, so
// shorter means smaller.
func lessSeq(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func sortedLevels(set map[jlpt.Level]struct{}) []jlpt.Level {
	out := make([]jlpt.Level, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedTags(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}

// normalizeTag canonicalizes a scraped tag string: lowercased with spaces
// collapsed to underscores. Level tags ("JLPT N5", "jlpt-n3") are dropped
// since the level is carried separately.
func normalizeTag(raw string) string {
	var b []rune
	space := false
	for _, r := range raw {
		switch {
		case r == ' ' || r == '\t' || r == '　':
			space = len(b) > 0
		default:
			if space {
				b = append(b, '_')
				space = false
			}
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			b = append(b, r)
		}
	}
	tag := string(b)
	if _, err := jlpt.Parse(strings.ReplaceAll(tag, "_", "-")); err == nil {
		return ""
	}
	return tag
}
