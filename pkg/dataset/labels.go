package dataset

import (
	"fmt"
	"sort"
)

// LabelSpace is the sorted set of distinct labels. A label's index is its
// position in sorted order.
type LabelSpace struct {
	labels []string
	index  map[string]int
}

// NewLabelSpace builds the label space of the given labels
func NewLabelSpace(labels []string) *LabelSpace {
	index := make(map[string]int)
	for _, l := range labels {
		index[l] = 0
	}
	sorted := make([]string, 0, len(index))
	for l := range index {
		sorted = append(sorted, l)
	}
	sort.Strings(sorted)
	for i, l := range sorted {
		index[l] = i
	}
	return &LabelSpace{labels: sorted, index: index}
}

// Labels returns the sorted labels
func (s *LabelSpace) Labels() []string {
	out := make([]string, len(s.labels))
	copy(out, s.labels)
	return out
}

// Len returns the number of distinct labels
func (s *LabelSpace) Len() int {
	return len(s.labels)
}

// Index returns the index of a label
func (s *LabelSpace) Index(label string) (int, bool) {
	i, ok := s.index[label]
	return i, ok
}

// Encode maps labels to their indices
func (s *LabelSpace) Encode(labels []string) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		idx, ok := s.index[l]
		if !ok {
			return nil, fmt.Errorf("label %q not in label space", l)
		}
		out[i] = idx
	}
	return out, nil
}

// Counts returns the number of samples per label index
func (s *LabelSpace) Counts(y []int) []int {
	counts := make([]int, len(s.labels))
	for _, v := range y {
		counts[v]++
	}
	return counts
}
