// Package textnorm implements the text cleaning applied to comments both when a
// training set is prepared and when a prediction request is served.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiPunctuation is the ASCII punctuation set stripped by the cleaning step.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalizer lower-cases, strips punctuation and accents, optionally removes
// stop words and stems every remaining token.
//
// A Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	StopWords StopWords // nil disables stop-word removal
	Stemmer   *Stemmer  // nil disables stemming
}

// Default returns the normalizer used by the service: French stop words and
// the default suffix stemmer.
func Default() *Normalizer {
	sw, _ := StopWordsFor("fr")
	return &Normalizer{StopWords: sw, Stemmer: DefaultStemmer()}
}

// Basic returns a normalizer that only folds and stems, without stop-word removal.
func Basic() *Normalizer {
	return &Normalizer{Stemmer: DefaultStemmer()}
}

// Normalize returns the cleaned form of text. It never fails: any input yields
// lower-case ASCII tokens separated by single spaces (possibly the empty string).
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the normalized tokens of text.
func (n *Normalizer) Tokens(text string) []string {
	fields := strings.Fields(fold(text))

	tokens := fields[:0]
	for _, tok := range fields {
		if n.StopWords.Contains(tok) {
			continue
		}
		if n.Stemmer != nil {
			tok = n.Stemmer.Stem(tok)
		}
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// fold applies the character-level steps: lower-casing, punctuation removal and
// accent stripping.
func fold(text string) string {
	lowered := strings.Map(func(r rune) rune {
		if isPunct(r) {
			return ' '
		}
		return unicode.ToLower(r)
	}, text)

	decomposed, _, err := transform.String(
		transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isNonASCII))),
		lowered,
	)
	if err != nil {
		decomposed = norm.NFKD.String(lowered)
	}

	// Compatibility decomposition can produce upper-case letters ("ℌ") and
	// ASCII punctuation ("＄"), so the ASCII result is folded once more.
	return strings.Map(func(r rune) rune {
		switch {
		case r > unicode.MaxASCII:
			return -1
		case 'A' <= r && r <= 'Z':
			return r + ('a' - 'A')
		case unicode.IsSpace(r), strings.ContainsRune(asciiPunctuation, r):
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, decomposed)
}

func isPunct(r rune) bool {
	if r <= unicode.MaxASCII {
		return strings.ContainsRune(asciiPunctuation, r)
	}
	return unicode.IsPunct(r)
}

func isNonASCII(r rune) bool {
	return r > unicode.MaxASCII
}
