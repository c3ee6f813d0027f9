package lexicon

import (
	"sort"
	"strings"
)

// Key is the normalized (written form, reading) identity of a vocabulary
// item. Two records from different sources describe the same item iff their
// Keys are equal.
type Key struct {
	Form    string
	Reading string
}

// NewKey normalizes a raw form/reading pair: whitespace (including the
// ideographic space) is stripped and the reading is folded to hiragana so
// script variants compare equal.
func NewKey(form, reading string) Key {
	return Key{
		Form:    normalizeForm(form),
		Reading: ToHiragana(normalizeForm(reading)),
	}
}

func normalizeForm(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '　':
			return -1
		}
		return r
	}, s)
}

// NewIndex builds a lookup index over entries that did not come from an
// archive, e.g. hand-assembled sets. Load is the usual entry point.
func NewIndex(words []Entry, tags map[string]string) *Index {
	return newIndex(words, tags)
}

// Index is the read-only lookup structure over a loaded archive.
type Index struct {
	byKey  map[Key][]*Entry
	byForm map[string][]Key
	tags   map[string]string
	words  []Entry
}

func newIndex(words []Entry, tags map[string]string) *Index {
	ix := &Index{
		byKey:  make(map[Key][]*Entry, len(words)*2),
		byForm: make(map[string][]Key),
		tags:   tags,
		words:  words,
	}
	for i := range ix.words {
		e := &ix.words[i]
		for _, kana := range e.Kana {
			// Kana-only spelling: the form is the reading itself.
			key := NewKey(kana.Text, kana.Text)
			ix.add(key, e)
			for _, kanji := range e.Kanji {
				ix.add(NewKey(kanji.Text, kana.Text), e)
			}
		}
	}
	for key := range ix.byKey {
		ix.byForm[key.Form] = append(ix.byForm[key.Form], key)
	}
	for form, keys := range ix.byForm {
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].Form != keys[j].Form {
				return keys[i].Form < keys[j].Form
			}
			return keys[i].Reading < keys[j].Reading
		})
		ix.byForm[form] = keys
	}
	return ix
}

func (ix *Index) add(key Key, e *Entry) {
	for _, existing := range ix.byKey[key] {
		if existing == e {
			return
		}
	}
	ix.byKey[key] = append(ix.byKey[key], e)
	// Keep per-key entry lists in a stable order regardless of map
	// iteration during construction.
	sort.Slice(ix.byKey[key], func(i, j int) bool {
		return ix.byKey[key][i].ID < ix.byKey[key][j].ID
	})
}

// Lookup returns the entries registered under the exact identity key,
// ordered by sequence number.
func (ix *Index) Lookup(key Key) []*Entry {
	return ix.byKey[key]
}

// KeysForForm returns every identity key whose written form matches the
// normalized form, for partial matches where a source supplied no reading.
func (ix *Index) KeysForForm(form string) []Key {
	return ix.byForm[normalizeForm(form)]
}

// TagLabel expands an archive tag abbreviation; unknown tags come back
// verbatim.
func (ix *Index) TagLabel(tag string) string {
	if label, ok := ix.tags[tag]; ok {
		return label
	}
	return tag
}

// Tags exposes the archive's tag glossary.
func (ix *Index) Tags() map[string]string { return ix.tags }

// Len returns the number of loaded entries.
func (ix *Index) Len() int { return len(ix.words) }

// CommonEntries returns the entries flagged common in the archive, ordered
// by sequence number.
func (ix *Index) CommonEntries() []*Entry {
	var out []*Entry
	for i := range ix.words {
		if ix.words[i].IsCommon() {
			out = append(out, &ix.words[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
