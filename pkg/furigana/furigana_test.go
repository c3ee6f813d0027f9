package furigana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlign(t *testing.T) {
	cases := []struct {
		name    string
		written string
		reading string
		want    string
	}{
		{"single kanji", "川", "かわ", "川[かわ]"},
		{"kanji pair", "学校", "がっこう", "学校[がっこう]"},
		{"interior kana", "持ち物", "もちもの", "持[も]ち 物[もの]"},
		{"trailing kana", "食べる", "たべる", "食[た]べる"},
		{"leading kana", "お茶", "おちゃ", "お 茶[ちゃ]"},
		{"full-width digit", "７日", "なのか", "７日[なのか]"},
		{"iteration mark", "人々", "ひとびと", "人々[ひとびと]"},
		{"katakana reading kept verbatim", "犬", "イヌ", "犬[イヌ]"},
		{"kana only passes through", "りんご", "りんご", "りんご"},
		{"katakana word", "テスト", "てすと", "テスト"},
		{"empty reading", "川", "", "川"},
		{"empty written", "", "かわ", "かわ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Align(tc.written, tc.reading))
		})
	}
}

func TestAlignFallsBackToWholeWord(t *testing.T) {
	// The kana run ち never occurs in the reading, so contiguous alignment
	// is impossible and the whole word gets one annotation.
	got := Align("持ち物", "しょじひん")
	assert.Equal(t, "持ち物[しょじひん]", got)
}
