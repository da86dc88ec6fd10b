package training

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern matches words of two or more characters
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// SparseVector is a row of the document-term matrix. Indices are ascending.
type SparseVector struct {
	Indices []int     `json:"i"`
	Values  []float64 `json:"v"`
}

// Dot returns the inner product with a dense vector
func (v SparseVector) Dot(w []float64) float64 {
	sum := 0.0
	for k, j := range v.Indices {
		sum += v.Values[k] * w[j]
	}
	return sum
}

// DotSparse returns the inner product of two sparse vectors
func (v SparseVector) DotSparse(o SparseVector) float64 {
	sum := 0.0
	a, b := 0, 0
	for a < len(v.Indices) && b < len(o.Indices) {
		switch {
		case v.Indices[a] == o.Indices[b]:
			sum += v.Values[a] * o.Values[b]
			a++
			b++
		case v.Indices[a] < o.Indices[b]:
			a++
		default:
			b++
		}
	}
	return sum
}

// AddScaledTo adds alpha*v to dst
func (v SparseVector) AddScaledTo(dst []float64, alpha float64) {
	for k, j := range v.Indices {
		dst[j] += alpha * v.Values[k]
	}
}

// SquaredNorm returns the squared L2 norm
func (v SparseVector) SquaredNorm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return sum
}

// TfidfVectorizer turns documents into L2-normalised TF-IDF rows.
//
// idf(t) = ln((1+n)/(1+df(t))) + 1, the smoothed form. Terms are sorted so
// feature indices do not depend on document order.
type TfidfVectorizer struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`

	vocabulary map[string]int
}

// NewTfidfVectorizer creates an unfitted vectorizer
func NewTfidfVectorizer() *TfidfVectorizer {
	return &TfidfVectorizer{}
}

// Tokenize lower-cases a document and extracts its terms
func Tokenize(doc string) []string {
	return tokenPattern.FindAllString(strings.ToLower(doc), -1)
}

// Fit learns the vocabulary and document frequencies of docs
func (v *TfidfVectorizer) Fit(docs []string) error {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range Tokenize(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("empty vocabulary: documents contain no terms of two or more characters")
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	n := float64(len(docs))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	v.Terms = terms
	v.IDF = idf
	v.buildIndex()
	return nil
}

func (v *TfidfVectorizer) buildIndex() {
	v.vocabulary = make(map[string]int, len(v.Terms))
	for i, t := range v.Terms {
		v.vocabulary[t] = i
	}
}

// NumFeatures returns the vocabulary size
func (v *TfidfVectorizer) NumFeatures() int {
	return len(v.Terms)
}

// Transform maps docs to TF-IDF rows. Unknown terms are ignored; a document
// with no known term yields an empty row.
func (v *TfidfVectorizer) Transform(docs []string) []SparseVector {
	if v.vocabulary == nil {
		v.buildIndex()
	}

	rows := make([]SparseVector, len(docs))
	for r, doc := range docs {
		counts := make(map[int]float64)
		for _, tok := range Tokenize(doc) {
			if j, ok := v.vocabulary[tok]; ok {
				counts[j]++
			}
		}

		row := SparseVector{
			Indices: make([]int, 0, len(counts)),
			Values:  make([]float64, 0, len(counts)),
		}
		for j := range counts {
			row.Indices = append(row.Indices, j)
		}
		sort.Ints(row.Indices)

		norm := 0.0
		for _, j := range row.Indices {
			w := counts[j] * v.IDF[j]
			row.Values = append(row.Values, w)
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range row.Values {
				row.Values[k] /= norm
			}
		}
		rows[r] = row
	}
	return rows
}

// FitTransform fits the vectorizer and transforms the same documents
func (v *TfidfVectorizer) FitTransform(docs []string) ([]SparseVector, error) {
	if err := v.Fit(docs); err != nil {
		return nil, err
	}
	return v.Transform(docs), nil
}
