package textnorm

import (
	"fmt"
	"strings"
	"sync"
)

// StopWords is a set of folded tokens to drop during normalization.
type StopWords map[string]struct{}

// Contains reports whether tok is a stop word. A nil set contains nothing.
func (s StopWords) Contains(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Len returns the number of folded stop words.
func (s StopWords) Len() int {
	return len(s)
}

// NewStopWords folds words the same way Normalize folds text, so that accented
// entries ("été") match their stripped form ("ete").
func NewStopWords(words []string) StopWords {
	set := make(StopWords, len(words))
	for _, w := range words {
		for _, tok := range strings.Fields(fold(w)) {
			set[tok] = struct{}{}
		}
	}
	return set
}

var stopWordLists = map[string]func() StopWords{
	"fr": sync.OnceValue(func() StopWords { return NewStopWords(frenchStopWords) }),
}

// StopWordsFor returns the stop-word set for a language code. Each set is built
// once per process.
func StopWordsFor(lang string) (StopWords, error) {
	load, ok := stopWordLists[strings.ToLower(lang)]
	if !ok {
		return nil, fmt.Errorf("no stop words for language %q", lang)
	}
	return load(), nil
}

// frenchStopWords is the NLTK French stop-word corpus.
var frenchStopWords = []string{
	"au", "aux", "avec", "ce", "ces", "dans", "de", "des", "du", "elle", "en", "et",
	"eux", "il", "ils", "je", "la", "le", "les", "leur", "lui", "ma", "mais", "me",
	"même", "mes", "moi", "mon", "ne", "nos", "notre", "nous", "on", "ou", "par",
	"pas", "pour", "qu", "que", "qui", "sa", "se", "ses", "son", "sur", "ta", "te",
	"tes", "toi", "ton", "tu", "un", "une", "vos", "votre", "vous", "c", "d", "j",
	"l", "à", "m", "n", "s", "t", "y", "été", "étée", "étées", "étés", "étant",
	"étante", "étants", "étantes", "suis", "es", "est", "sommes", "êtes", "sont",
	"serai", "seras", "sera", "serons", "serez", "seront", "serais", "serait",
	"serions", "seriez", "seraient", "étais", "était", "étions", "étiez", "étaient",
	"fus", "fut", "fûmes", "fûtes", "furent", "sois", "soit", "soyons", "soyez",
	"soient", "fusse", "fusses", "fût", "fussions", "fussiez", "fussent", "ayant",
	"ayante", "ayantes", "ayants", "eu", "eue", "eues", "eus", "ai", "as", "avons",
	"avez", "ont", "aurai", "auras", "aura", "aurons", "aurez", "auront", "aurais",
	"aurait", "aurions", "auriez", "auraient", "avais", "avait", "avions", "aviez",
	"avaient", "eut", "eûmes", "eûtes", "eurent", "aie", "aies", "ait", "ayons",
	"ayez", "aient", "eusse", "eusses", "eût", "eussions", "eussiez", "eussent",
}
