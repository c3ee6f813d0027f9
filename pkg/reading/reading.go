// Package reading derives kana readings for written forms using the kagome
// morphological analyzer with the IPA dictionary. The reconciler uses it to
// pick between reading variants when a harvested row carries only a written
// form.
package reading

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Analyzer wraps a kagome tokenizer. It is safe for concurrent use after
// construction.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a tokenizer instance backed by the IPA dictionary.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// ReadingOf returns the hiragana reading of text by concatenating the
// per-morpheme readings. Morphemes without a known reading contribute their
// surface, so kana input round-trips. Empty input yields "".
func (a *Analyzer) ReadingOf(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var b strings.Builder
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		features := token.Features()

		// IPA feature layout: index 7 holds the katakana reading when the
		// dictionary knows the morpheme.
		if len(features) > 7 && features[7] != "*" {
			b.WriteString(features[7])
			continue
		}
		b.WriteString(token.Surface)
	}
	return toHiragana(b.String())
}

func toHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}
