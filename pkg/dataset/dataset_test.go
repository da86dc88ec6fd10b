package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/textnorm"
)

func TestRead_NamedColumns(t *testing.T) {
	input := "id,y,x\n1,positif,super resto\n2,negatif,pas bon\n"

	ds, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"super resto", "pas bon"}, ds.Texts)
	assert.Equal(t, []string{"positif", "negatif"}, ds.Labels)
}

func TestRead_FallsBackToFirstTwoColumns(t *testing.T) {
	ds, err := Read(strings.NewReader("comment,label\nbon,1\nnul,0\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"bon", "nul"}, ds.Texts)
	assert.Equal(t, []string{"1", "0"}, ds.Labels)
}

func TestRead_FormatErrors(t *testing.T) {
	tests := map[string]string{
		"empty file":     "",
		"single column":  "x\nbon\n",
		"no rows":        "x,y\n",
		"empty text":     "x,y\n,1\n",
		"empty label":    "x,y\nbon,\n",
		"short record":   "a,b,x,y\nbon,1\n",
		"unclosed quote": "x,y\n\"bon,1\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrDataFormat), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestLabelSpace(t *testing.T) {
	space := NewLabelSpace([]string{"positif", "negatif", "positif", "neutre"})

	assert.Equal(t, []string{"negatif", "neutre", "positif"}, space.Labels())
	assert.Equal(t, 3, space.Len())

	y, err := space.Encode([]string{"positif", "negatif"})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, y)
	assert.Equal(t, []int{1, 0, 1}, space.Counts(y))

	_, err = space.Encode([]string{"inconnu"})
	assert.Error(t, err)
}

func balancedLabels(n int) []int {
	y := make([]int, n)
	for i := range y {
		y[i] = i % 2
	}
	return y
}

func TestStratifiedSplit(t *testing.T) {
	y := balancedLabels(100)

	train, test, err := StratifiedSplit(y, 0.8, DefaultSeed)
	require.NoError(t, err)

	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	seen := make(map[int]bool)
	for _, idx := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[idx], "index %d assigned twice", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, 100)

	positives := 0
	for _, idx := range test {
		positives += y[idx]
	}
	assert.Equal(t, 10, positives)
}

func TestStratifiedSplit_Deterministic(t *testing.T) {
	y := balancedLabels(50)

	train1, test1, err := StratifiedSplit(y, 0.8, 7)
	require.NoError(t, err)
	train2, test2, err := StratifiedSplit(y, 0.8, 7)
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	train3, _, err := StratifiedSplit(y, 0.8, 8)
	require.NoError(t, err)
	assert.NotEqual(t, train1, train3)
}

func TestStratifiedSplit_SmallClassKeepsTrainingRow(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 1, 1}

	train, test, err := StratifiedSplit(y, 0.8, 1)
	require.NoError(t, err)

	count := func(idx []int, class int) int {
		n := 0
		for _, i := range idx {
			if y[i] == class {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count(train, 1))
	assert.Equal(t, 1, count(test, 1))

	_, _, err = StratifiedSplit([]int{0}, 0.8, 1)
	assert.True(t, errors.Is(err, models.ErrDataFormat))
}

func TestStratifiedKFold(t *testing.T) {
	y := balancedLabels(50)

	folds, err := StratifiedKFold(y, []string{"neg", "pos"}, 5, DefaultSeed)
	require.NoError(t, err)
	require.Len(t, folds, 5)

	covered := make(map[int]int)
	for _, f := range folds {
		assert.Len(t, f.Test, 10)
		assert.Len(t, f.Train, 40)
		pos := 0
		for _, idx := range f.Test {
			covered[idx]++
			pos += y[idx]
		}
		assert.Equal(t, 5, pos, "each fold keeps class balance")
	}
	assert.Len(t, covered, 50)
	for idx, n := range covered {
		assert.Equal(t, 1, n, "index %d tested once", idx)
	}
}

func TestStratifiedKFold_InsufficientData(t *testing.T) {
	y := []int{0, 0, 0, 0, 0, 0, 1, 1, 1}

	_, err := StratifiedKFold(y, []string{"negatif", "positif"}, 5, 1)
	require.Error(t, err)

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "positif", insufficient.Label)
	assert.Equal(t, 3, insufficient.Count)
	assert.Equal(t, 5, insufficient.Folds)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))
}

func TestPrepare(t *testing.T) {
	raw := "comment,sentiment\n\"Café, c'est bon!\",positif\n\"?!\",negatif\nLes plats étaient froids,negatif\n"

	ds, stats, err := Prepare(strings.NewReader(raw), textnorm.Basic(), PrepareOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Dropped)
	assert.Equal(t, []string{"cafe c est bon", "l plat etaient froid"}, ds.Texts)
	assert.Equal(t, []string{"positif", "negatif"}, ds.Labels)

	_, _, err = Prepare(strings.NewReader("text,label\na,b\n"), textnorm.Basic(), PrepareOptions{})
	assert.True(t, errors.Is(err, models.ErrDataFormat))
}

func TestPrepareFile_WritesLoadableDataset(t *testing.T) {
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.csv")
	require.NoError(t, os.WriteFile(rawPath, []byte("comment,y\nTrès bon repas,1\nService lent,0\n"), 0644))

	stats, err := PrepareFile(rawPath, filepath.Join(dir, "processed"), textnorm.Basic(), PrepareOptions{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processed", CleanFileName), stats.OutputPath)

	ds, err := Load(stats.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"tr bon repa", "service lent"}, ds.Texts)
	assert.Equal(t, []string{"1", "0"}, ds.Labels)
}

func TestWrite_QuotesFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, &Dataset{Texts: []string{"a, b"}, Labels: []string{"1"}}))
	assert.Equal(t, "x,y\n\"a, b\",1\n", buf.String())
}
