// Package deck turns a reconciled entry set into an importable flashcard
// package: cards grouped into a nested deck hierarchy where the common
// bucket is the outermost container and each JLPT grade nests inside the
// next harder one. Assembly is a pure function of its input; no network, no
// randomness, no clock.
package deck

import (
	"fmt"
	"sort"
	"strings"

	"github.com/japaniel/jlptdeck/pkg/jlpt"
	"github.com/japaniel/jlptdeck/pkg/reconcile"
)

// Variant selects which note model the package uses.
type Variant string

const (
	// VariantCore is the text-only model.
	VariantCore Variant = "core"
	// VariantExtended adds a Sound field for pronunciation clips.
	VariantExtended Variant = "extended"
)

// ParseVariant accepts "core", "extended" or "" (core).
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(VariantCore):
		return VariantCore, nil
	case string(VariantExtended):
		return VariantExtended, nil
	}
	return VariantCore, fmt.Errorf("deck: unknown variant %q", s)
}

// Model identifiers are fixed so re-imports update existing notes instead
// of duplicating them.
const (
	ModelIDCore     = 2125329068
	ModelIDExtended = 1291263575
)

// The outermost deck holds the common bucket directly; its name follows the
// variant so core and extended imports stay separate.
const (
	baseDeckNameCore     = "Core Japanese Vocabulary"
	baseDeckNameExtended = "Core Japanese Vocabulary Extended"
)

// Card is one note, fields in the model's stable order.
type Card struct {
	Expression string
	Definition string
	Reading    string
	Grammar    string
	Additional string
	// Sound is the media reference, extended variant only.
	Sound string
	Tags  []string
	// Due is the card's position within its deck, so imports study easier
	// material first within a level.
	Due int
}

// Deck is a named group of cards. Name uses the "::" nesting convention.
type Deck struct {
	Name  string
	Level jlpt.Level
	Cards []Card
}

// Package is the assembled output: the full deck hierarchy plus the media
// files the cards reference.
type Package struct {
	Variant Variant
	ModelID int
	Decks   []Deck
	// Media lists the local clip paths referenced by Sound fields.
	Media []string
}

// FieldNames returns the model's field order.
func (v Variant) FieldNames() []string {
	fields := []string{"Expression", "English definition", "Reading", "Grammar", "Additional definitions"}
	if v == VariantExtended {
		fields = append(fields, "Sound")
	}
	return fields
}

// ModelID returns the fixed note model identifier for the variant.
func (v Variant) ModelID() int {
	if v == VariantExtended {
		return ModelIDExtended
	}
	return ModelIDCore
}

// BaseDeckName returns the outermost deck name for the variant.
func (v Variant) BaseDeckName() string {
	if v == VariantExtended {
		return baseDeckNameExtended
	}
	return baseDeckNameCore
}

// DeckName returns the nested name for a level: the common bucket is the
// base deck itself and each grade nests under every harder grade, so the
// N5 deck is base::JLPT N1::...::JLPT N5.
func (v Variant) DeckName(level jlpt.Level) string {
	base := v.BaseDeckName()
	if level == jlpt.Common {
		return base
	}
	parts := []string{base}
	for _, l := range jlpt.Graded {
		parts = append(parts, "JLPT "+l.String())
		if l == level {
			break
		}
	}
	return strings.Join(parts, "::")
}

// Assemble builds the package for a reconciled entry set. Entries are
// deduplicated by expression across the whole package (first by level
// order, then by expression), sorted, and assigned due positions per deck.
func Assemble(entries []reconcile.Entry, variant Variant) *Package {
	sorted := make([]reconcile.Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Level != sorted[j].Level {
			return sorted[i].Level < sorted[j].Level
		}
		if sorted[i].Expression != sorted[j].Expression {
			return sorted[i].Expression < sorted[j].Expression
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	pkg := &Package{Variant: variant, ModelID: variant.ModelID()}
	byLevel := make(map[jlpt.Level]*Deck)
	seen := make(map[string]struct{}, len(sorted))

	for _, e := range sorted {
		if _, dup := seen[e.Expression]; dup {
			continue
		}
		seen[e.Expression] = struct{}{}

		d := byLevel[e.Level]
		if d == nil {
			d = &Deck{Name: variant.DeckName(e.Level), Level: e.Level}
			byLevel[e.Level] = d
		}
		card := Card{
			Expression: e.Expression,
			Definition: e.Definition,
			Reading:    e.Reading,
			Grammar:    strings.Join(e.Grammar, ", "),
			Additional: strings.Join(e.Additional, ", "),
			Tags:       cardTags(e),
			Due:        len(d.Cards),
		}
		if variant == VariantExtended && e.Audio != "" {
			card.Sound = soundField(e.Audio)
			pkg.Media = append(pkg.Media, e.Audio)
		}
		d.Cards = append(d.Cards, card)
	}

	// Common first, then hardest to easiest, matching the nesting.
	for _, level := range append([]jlpt.Level{jlpt.Common}, jlpt.Graded...) {
		if d := byLevel[level]; d != nil {
			pkg.Decks = append(pkg.Decks, *d)
		}
	}
	return pkg
}

// cardTags prepends the level tag to the entry's merged tags.
func cardTags(e reconcile.Entry) []string {
	tags := make([]string, 0, len(e.Tags)+1)
	tags = append(tags, "jlpt-"+strings.ToLower(e.Level.String()))
	tags = append(tags, e.Tags...)
	return tags
}

// soundField renders the media reference in the [sound:file] import syntax.
func soundField(path string) string {
	name := path
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		name = path[i+1:]
	}
	return "[sound:" + name + "]"
}
