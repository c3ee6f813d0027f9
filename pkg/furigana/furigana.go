// Package furigana aligns a kana reading against the kanji spans of a
// written form, producing ruby annotations in the bracket syntax flashcard
// tools import ("川" + "かわ" -> "川[かわ]", "持ち物" + "もちもの" ->
// "持[も]ち 物[もの]").
//
// Alignment is contiguous: each kanji run is matched to the slice of the
// reading that sits between the surrounding kana runs. When the reading
// cannot be carved up that way the whole word is annotated in one bracket
// instead of guessing a per-character split.
package furigana

import "strings"

type segment struct {
	text  []rune
	kanji bool
}

// isKanji covers CJK ideographs, the iteration mark and the full-width
// digits and capitals that show up in written forms like ７日.
func isKanji(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FAF:
		return true
	case r == '々':
		return true
	case r >= '０' && r <= '９':
		return true
	case r >= 'Ａ' && r <= 'Ｚ':
		return true
	}
	return false
}

func isKana(r rune) bool {
	return (r >= 0x3041 && r <= 0x3096) || (r >= 0x30A1 && r <= 0x30FF)
}

func hasKanji(s string) bool {
	for _, r := range s {
		if isKanji(r) {
			return true
		}
	}
	return false
}

// Align renders the written form with its reading attached to the kanji
// spans. It never fails: unalignable input falls back to annotating the
// whole word.
func Align(written, reading string) string {
	if reading == "" {
		return written
	}
	if written == "" {
		return reading
	}
	if !hasKanji(written) {
		return written
	}

	segs := split(written)
	r := []rune(reading)
	pos := 0

	var b strings.Builder
	for i, seg := range segs {
		if !seg.kanji {
			// Literal run: must appear verbatim (script-folded) at the
			// current reading position.
			if !matchesAt(r, pos, seg.text) {
				return wholeWord(written, reading)
			}
			b.WriteString(string(seg.text))
			pos += len(seg.text)
			continue
		}

		// Kanji run: its reading extends to the next literal run's first
		// occurrence, or to the end of the reading for a trailing run.
		end := len(r)
		if i+1 < len(segs) {
			next := segs[i+1].text
			idx := indexFolded(r, pos+1, next)
			if idx < 0 {
				return wholeWord(written, reading)
			}
			end = idx
		}
		if end <= pos {
			return wholeWord(written, reading)
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(string(seg.text))
		b.WriteByte('[')
		b.WriteString(string(r[pos:end]))
		b.WriteByte(']')
		pos = end
	}

	if pos != len(r) {
		return wholeWord(written, reading)
	}
	return b.String()
}

func wholeWord(written, reading string) string {
	return written + "[" + reading + "]"
}

func split(s string) []segment {
	var segs []segment
	for _, r := range s {
		k := isKanji(r)
		if len(segs) == 0 || segs[len(segs)-1].kanji != k {
			segs = append(segs, segment{kanji: k})
		}
		segs[len(segs)-1].text = append(segs[len(segs)-1].text, r)
	}
	return segs
}

// fold maps katakana to hiragana so readings written in either script
// compare equal.
func fold(r rune) rune {
	if r >= 0x30A1 && r <= 0x30F6 {
		return r - 0x60
	}
	return r
}

func matchesAt(haystack []rune, at int, needle []rune) bool {
	if at+len(needle) > len(haystack) {
		return false
	}
	for i, n := range needle {
		if fold(haystack[at+i]) != fold(n) {
			return false
		}
	}
	return true
}

// indexFolded returns the first index >= from where needle occurs in
// haystack under script folding, or -1.
func indexFolded(haystack []rune, from int, needle []rune) int {
	if from < 0 {
		from = 0
	}
	for i := from; i+len(needle) <= len(haystack); i++ {
		if matchesAt(haystack, i, needle) {
			return i
		}
	}
	return -1
}
