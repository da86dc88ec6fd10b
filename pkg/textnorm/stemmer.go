package textnorm

import (
	"sort"
	"strings"
)

// DefaultSuffixes is the French suffix table applied by the cleaning step.
var DefaultSuffixes = []string{"s", "es", "era", "erez", "ions"}

// Stemmer strips at most one suffix from a token. When several suffixes match,
// the longest one wins, which is what a leftmost regular-expression match over
// the alternation of all suffixes anchored at the end of the word yields.
type Stemmer struct {
	suffixes []string
}

// NewStemmer builds a stemmer from a suffix table. Empty suffixes are ignored.
func NewStemmer(suffixes ...string) *Stemmer {
	table := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		if s != "" {
			table = append(table, s)
		}
	}
	sort.SliceStable(table, func(i, j int) bool {
		return len(table[i]) > len(table[j])
	})
	return &Stemmer{suffixes: table}
}

// DefaultStemmer returns a stemmer over DefaultSuffixes.
func DefaultStemmer() *Stemmer {
	return NewStemmer(DefaultSuffixes...)
}

// Stem returns word without its longest matching suffix. The result may be
// empty when word is itself a suffix.
func (s *Stemmer) Stem(word string) string {
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

// Suffixes returns the rule table in matching order.
func (s *Stemmer) Suffixes() []string {
	out := make([]string, len(s.suffixes))
	copy(out, s.suffixes)
	return out
}
