// Package lexicon loads a jmdict-simplified dictionary archive and exposes
// an immutable, indexed view of it. The index is built once at load time and
// is read-only afterwards, so it can be shared across goroutines freely.
package lexicon

import (
	"strings"
)

// Entry matches the structure of jmdict-simplified entries.
type Entry struct {
	ID    string    `json:"id"`
	Kanji []Element `json:"kanji"`
	Kana  []Element `json:"kana"`
	Sense []Sense   `json:"sense"`
}

type Element struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type Sense struct {
	PartOfSpeech []string `json:"partOfSpeech"`
	Misc         []string `json:"misc"`
	Gloss        []Gloss  `json:"gloss"`
}

type Gloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// Misc flags used by the enrichment helpers below.
const (
	miscUsuallyKana = "uk"
	miscRare        = "rare"
	miscArchaic     = "arch"
	miscPlaceName   = "place"
)

var formalityMisc = []string{"hon", "pol", "hum"}

// Expression returns the written form to display: the first kanji spelling
// when one exists, the kana spelling otherwise.
func (e *Entry) Expression() string {
	if len(e.Kanji) > 0 {
		return e.Kanji[0].Text
	}
	if len(e.Kana) > 0 {
		return e.Kana[0].Text
	}
	return ""
}

// PrimaryReading returns the first kana reading, preferring one flagged
// common.
func (e *Entry) PrimaryReading() string {
	for _, k := range e.Kana {
		if k.Common {
			return k.Text
		}
	}
	if len(e.Kana) > 0 {
		return e.Kana[0].Text
	}
	return ""
}

// IsCommon reports whether any written form or reading is flagged common.
func (e *Entry) IsCommon() bool {
	for _, k := range e.Kanji {
		if k.Common {
			return true
		}
	}
	for _, k := range e.Kana {
		if k.Common {
			return true
		}
	}
	return false
}

// PrimaryGloss joins the glosses of the first sense.
func (e *Entry) PrimaryGloss() string {
	if len(e.Sense) == 0 {
		return ""
	}
	return joinGlosses(e.Sense[0].Gloss)
}

// additionalGlossLimit caps the total length of secondary definitions so a
// card does not drown in text.
const additionalGlossLimit = 200

// AdditionalGlosses collects English meanings from every sense after the
// first. Archaic usages, place names and senses whose grammar differs from
// the primary sense are skipped; duplicates of the primary definitions are
// removed case-insensitively; the total is capped at additionalGlossLimit
// letters.
func (e *Entry) AdditionalGlosses() []string {
	if len(e.Sense) < 2 {
		return nil
	}
	primary := e.Sense[0]
	seen := make(map[string]struct{})
	for _, g := range primary.Gloss {
		seen[strings.ToLower(g.Text)] = struct{}{}
	}

	var out []string
	total := 0
	for _, s := range e.Sense[1:] {
		if containsAny(s.Misc, miscArchaic, miscPlaceName) {
			continue
		}
		if !equalStrings(s.PartOfSpeech, primary.PartOfSpeech) {
			continue
		}
		for _, g := range s.Gloss {
			lower := strings.ToLower(g.Text)
			if _, ok := seen[lower]; ok {
				continue
			}
			if total+len(g.Text) > additionalGlossLimit {
				return out
			}
			seen[lower] = struct{}{}
			out = append(out, g.Text)
			total += len(g.Text)
		}
	}
	return out
}

// Grammar expands the primary sense's part-of-speech tags through the
// archive's tag glossary. Unknown tags are kept verbatim.
func (e *Entry) Grammar(tags map[string]string) []string {
	if len(e.Sense) == 0 {
		return nil
	}
	var out []string
	for _, p := range e.Sense[0].PartOfSpeech {
		if label, ok := tags[p]; ok {
			out = append(out, label)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// UsuallyKana reports whether the primary sense carries the
// "usually written in kana" flag.
func (e *Entry) UsuallyKana() bool {
	if len(e.Sense) == 0 {
		return false
	}
	return containsAny(e.Sense[0].Misc, miscUsuallyKana)
}

// FormalityTags returns the expanded formality markers (polite, humble,
// honorific) present on the primary sense.
func (e *Entry) FormalityTags(tags map[string]string) []string {
	if len(e.Sense) == 0 {
		return nil
	}
	var out []string
	for _, m := range e.Sense[0].Misc {
		for _, f := range formalityMisc {
			if m == f {
				if label, ok := tags[m]; ok {
					out = append(out, label)
				} else {
					out = append(out, m)
				}
			}
		}
	}
	return out
}

// Rare reports whether the primary sense is flagged as a rarely used term.
func (e *Entry) Rare() bool {
	if len(e.Sense) == 0 {
		return false
	}
	return containsAny(e.Sense[0].Misc, miscRare)
}

func joinGlosses(gs []Gloss) string {
	texts := make([]string, 0, len(gs))
	for _, g := range gs {
		if g.Lang != "" && g.Lang != "eng" {
			continue
		}
		texts = append(texts, g.Text)
	}
	return strings.Join(texts, ", ")
}

func containsAny(haystack []string, needles ...string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ToHiragana converts katakana runes to their hiragana equivalents, leaving
// everything else untouched.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
