package harvest

import "github.com/japaniel/jlptdeck/pkg/jlpt"

// Candidate is one vocabulary sighting scraped from the tag-search service:
// a (written-form-or-reading, level, raw metadata) triple. Candidates are
// transient and may be noisy, duplicated, or plain wrong; the reconciler is
// responsible for making sense of them.
type Candidate struct {
	// Term is the written form as scraped. Some rows carry only kana, in
	// which case Term is the reading.
	Term string
	// Reading is the kana reading when the row provided one.
	Reading string
	// Level the row was harvested under.
	Level jlpt.Level
	// RawTags is the unparsed tag strings attached to the result row.
	RawTags []string
	// Page records which result page produced the row, for diagnostics.
	Page int
}

// LevelResult is the outcome of harvesting one JLPT level. A truncated
// result still carries every candidate collected before the failure.
type LevelResult struct {
	Level        jlpt.Level
	Candidates   []Candidate
	PagesFetched int
	// Truncated is set when a page failed all retry attempts and the level
	// was cut short. The run continues with partial data.
	Truncated bool
	// SkippedRows counts malformed rows that were dropped.
	SkippedRows int
	// Duplicates counts rows discarded because the same (term, reading)
	// pair already appeared earlier in this level.
	Duplicates int
	// FromCache is set when the result was replayed from the local cache
	// instead of the network.
	FromCache bool
}
