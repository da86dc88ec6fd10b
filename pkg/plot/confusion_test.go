package plot

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	pct := Normalize([][]int{{3, 1}, {0, 0}})
	assert.Equal(t, [][]float64{{75, 25}, {0, 0}}, pct)
}

func TestPlot_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "naive_bayes_cm.png")

	err := NewConfusionMatrixPlotter().Plot([]int{0, 0, 1, 1}, []int{0, 1, 1, 1}, []string{"negatif", "positif"}, path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, marginLeft+2*cellSize+marginEnd, img.Bounds().Dx())
}

func TestPlot_Errors(t *testing.T) {
	p := NewConfusionMatrixPlotter()
	dir := t.TempDir()

	assert.Error(t, p.Plot(nil, nil, nil, filepath.Join(dir, "a.png")))
	assert.Error(t, p.Plot([]int{2}, []int{0}, []string{"a", "b"}, filepath.Join(dir, "b.png")))
	assert.Error(t, p.Plot([]int{0}, []int{0}, []string{"a", "b"}, filepath.Join(dir, "missing", "c.png")))
}

func TestHeat(t *testing.T) {
	assert.Equal(t, low, heat(0))
	assert.Equal(t, mid, heat(50))
	assert.Equal(t, high, heat(100))
	assert.Equal(t, high, heat(150))
}
