// Package textnorm folds free text into a comparable search key.
//
// Normalize is applied identically to stored fields and to search terms, so
// matching never compares raw Arabic text with its diacritics or letter
// variants intact.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTermLength is the shortest normalized search term accepted by search.
const MinTermLength = 2

const tatweel = 'ـ'

// letter variants folded to one representative per phoneme class
var variants = map[rune]rune{
	'آ': 'ا', // alef with madda
	'أ': 'ا', // alef with hamza above
	'إ': 'ا', // alef with hamza below
	'ٱ': 'ا', // alef wasla
	'ٲ': 'ا',
	'ٳ': 'ا',
	'ى': 'ي', // alef maksura
	'ئ': 'ي', // yeh with hamza
	'ی': 'ي', // farsi yeh
	'ے': 'ي', // yeh barree
	'ۓ': 'ي', // yeh barree with hamza, composed by NFC
	'ة': 'ه', // teh marbuta
	'ہ': 'ه', // heh goal
	'ۂ': 'ه', // heh goal with hamza, composed by NFC
	'ۀ': 'ه', // heh with yeh above, composed by NFC
	'ؤ': 'و', // waw with hamza
	'ک': 'ك', // keheh
}

// Normalize returns the canonical key for text.
//
// Steps: trim, NFC composition, removal of combining marks and tatweel,
// letter-variant folding, lowercasing, Eastern digit folding, removal of
// characters outside Arabic letters, Latin letters, digits and space, and
// whitespace collapsing. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(folder(), text)
	if err != nil {
		folded = text
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range folded {
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case !allowed(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Contains reports whether the normalized form of s contains the normalized term.
// term is expected to be normalized already.
func Contains(s, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(Normalize(s), term)
}

func folder() transform.Transformer {
	return transform.Chain(
		norm.NFC,
		runes.Remove(runes.Predicate(isMark)),
		runes.Map(fold),
	)
}

func isMark(r rune) bool {
	return r == tatweel || unicode.Is(unicode.Mn, r)
}

func fold(r rune) rune {
	if v, ok := variants[r]; ok {
		return v
	}
	switch {
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	}
	return unicode.ToLower(r)
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'ء' && r <= 'غ', r >= 'ف' && r <= 'ي':
		_, variant := variants[r]
		return !variant
	}
	return false
}
