package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/jlptdeck/pkg/jlpt"
	"github.com/japaniel/jlptdeck/pkg/reconcile"
)

func entry(expr, reading string, level jlpt.Level) reconcile.Entry {
	return reconcile.Entry{
		Seq:        expr, // good enough for test identity
		Expression: expr,
		Reading:    reading,
		Definition: "def of " + expr,
		Level:      level,
	}
}

func TestDeckName(t *testing.T) {
	assert.Equal(t, "Core Japanese Vocabulary", VariantCore.DeckName(jlpt.Common))
	assert.Equal(t, "Core Japanese Vocabulary::JLPT N1", VariantCore.DeckName(jlpt.N1))
	assert.Equal(t,
		"Core Japanese Vocabulary::JLPT N1::JLPT N2::JLPT N3::JLPT N4::JLPT N5",
		VariantCore.DeckName(jlpt.N5))

	// The extended variant carries its own base deck so the two imports do
	// not land in the same hierarchy.
	assert.Equal(t, "Core Japanese Vocabulary Extended", VariantExtended.DeckName(jlpt.Common))
	assert.Equal(t,
		"Core Japanese Vocabulary Extended::JLPT N1::JLPT N2::JLPT N3::JLPT N4::JLPT N5",
		VariantExtended.DeckName(jlpt.N5))
}

func TestAssembleExtendedDeckNames(t *testing.T) {
	entries := []reconcile.Entry{
		entry("あれ", "あれ", jlpt.Common),
		entry("猫", "猫[ねこ]", jlpt.N5),
	}
	pkg := Assemble(entries, VariantExtended)

	require.Len(t, pkg.Decks, 2)
	assert.Equal(t, "Core Japanese Vocabulary Extended", pkg.Decks[0].Name)
	assert.Equal(t,
		"Core Japanese Vocabulary Extended::JLPT N1::JLPT N2::JLPT N3::JLPT N4::JLPT N5",
		pkg.Decks[1].Name)
}

func TestAssembleGroupsAndOrders(t *testing.T) {
	entries := []reconcile.Entry{
		entry("犬", "犬[いぬ]", jlpt.N5),
		entry("あれ", "あれ", jlpt.Common),
		entry("猫", "猫[ねこ]", jlpt.N5),
		entry("語彙", "語彙[ごい]", jlpt.N1),
	}
	pkg := Assemble(entries, VariantCore)

	require.Len(t, pkg.Decks, 3)
	// Common first, then hardest to easiest.
	assert.Equal(t, jlpt.Common, pkg.Decks[0].Level)
	assert.Equal(t, jlpt.N1, pkg.Decks[1].Level)
	assert.Equal(t, jlpt.N5, pkg.Decks[2].Level)

	n5 := pkg.Decks[2]
	require.Len(t, n5.Cards, 2)
	// Sorted by expression within the level, due = position.
	assert.Equal(t, "犬", n5.Cards[0].Expression)
	assert.Equal(t, 0, n5.Cards[0].Due)
	assert.Equal(t, "猫", n5.Cards[1].Expression)
	assert.Equal(t, 1, n5.Cards[1].Due)
}

func TestAssembleIsDeterministic(t *testing.T) {
	entries := []reconcile.Entry{
		entry("猫", "猫[ねこ]", jlpt.N5),
		entry("犬", "犬[いぬ]", jlpt.N5),
	}
	reversed := []reconcile.Entry{entries[1], entries[0]}
	assert.Equal(t, Assemble(entries, VariantCore), Assemble(reversed, VariantCore))
}

func TestAssembleDedupesByExpression(t *testing.T) {
	entries := []reconcile.Entry{
		entry("猫", "猫[ねこ]", jlpt.N5),
		entry("猫", "猫[ねこ]", jlpt.Common),
	}
	pkg := Assemble(entries, VariantCore)

	// The Common copy sorts first (level order) and wins.
	require.Len(t, pkg.Decks, 1)
	assert.Equal(t, jlpt.Common, pkg.Decks[0].Level)
	assert.Len(t, pkg.Decks[0].Cards, 1)
}

func TestAssembleLevelTag(t *testing.T) {
	e := entry("猫", "猫[ねこ]", jlpt.N3)
	e.Tags = []string{"usually_kana"}
	pkg := Assemble([]reconcile.Entry{e}, VariantCore)
	assert.Equal(t, []string{"jlpt-n3", "usually_kana"}, pkg.Decks[0].Cards[0].Tags)
}

func TestAssembleExtendedSound(t *testing.T) {
	withAudio := entry("猫", "猫[ねこ]", jlpt.N5)
	withAudio.Audio = "/media/100.mp3"
	silent := entry("犬", "犬[いぬ]", jlpt.N5)

	pkg := Assemble([]reconcile.Entry{withAudio, silent}, VariantExtended)
	require.Len(t, pkg.Decks, 1)
	cards := pkg.Decks[0].Cards

	assert.Equal(t, "", findCard(t, cards, "犬").Sound)
	assert.Equal(t, "[sound:100.mp3]", findCard(t, cards, "猫").Sound)
	assert.Equal(t, []string{"/media/100.mp3"}, pkg.Media)
	assert.Equal(t, ModelIDExtended, pkg.ModelID)
}

func TestAssembleCoreIgnoresAudio(t *testing.T) {
	e := entry("猫", "猫[ねこ]", jlpt.N5)
	e.Audio = "/media/100.mp3"
	pkg := Assemble([]reconcile.Entry{e}, VariantCore)
	assert.Empty(t, pkg.Media)
	assert.Equal(t, "", pkg.Decks[0].Cards[0].Sound)
	assert.Equal(t, ModelIDCore, pkg.ModelID)
}

func TestFieldNames(t *testing.T) {
	assert.Equal(t,
		[]string{"Expression", "English definition", "Reading", "Grammar", "Additional definitions"},
		VariantCore.FieldNames())
	assert.Equal(t,
		[]string{"Expression", "English definition", "Reading", "Grammar", "Additional definitions", "Sound"},
		VariantExtended.FieldNames())
}

func TestTemplates(t *testing.T) {
	tmpl := VariantCore.Templates()
	require.Len(t, tmpl, 2)
	assert.Equal(t, "Recognition", tmpl[0].Name)
	assert.Equal(t, "Recall", tmpl[1].Name)
	assert.NotContains(t, tmpl[0].Back, "{{Sound}}")
	assert.Contains(t, VariantExtended.Templates()[0].Back, "{{Sound}}")
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantCore, v)

	v, err = ParseVariant("Extended")
	require.NoError(t, err)
	assert.Equal(t, VariantExtended, v)

	_, err = ParseVariant("deluxe")
	assert.Error(t, err)
}

func findCard(t *testing.T, cards []Card, expr string) Card {
	t.Helper()
	for _, c := range cards {
		if c.Expression == expr {
			return c
		}
	}
	t.Fatalf("card %q not found", expr)
	return Card{}
}
