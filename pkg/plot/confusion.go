// Package plot renders confusion matrices as PNG heatmaps.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/evaluation"
)

const (
	cellSize   = 120
	marginLeft = 110
	marginTop  = 70
	marginEnd  = 40
	lineHeight = 13
)

var (
	background = color.RGBA{255, 255, 255, 255}
	ink        = color.RGBA{20, 20, 20, 255}
	gridLine   = color.RGBA{255, 255, 255, 255}
	low        = color.RGBA{59, 76, 192, 255}
	mid        = color.RGBA{221, 221, 221, 255}
	high       = color.RGBA{180, 4, 38, 255}
)

// ConfusionMatrixPlotter draws row-normalised confusion matrices
type ConfusionMatrixPlotter struct{}

// NewConfusionMatrixPlotter creates a plotter
func NewConfusionMatrixPlotter() *ConfusionMatrixPlotter {
	return &ConfusionMatrixPlotter{}
}

// Normalize returns the matrix as row percentages. A row with no samples stays at 0.
func Normalize(cm [][]int) [][]float64 {
	out := make([][]float64, len(cm))
	for i, row := range cm {
		out[i] = make([]float64, len(row))
		total := 0
		for _, n := range row {
			total += n
		}
		if total == 0 {
			continue
		}
		for j, n := range row {
			out[i][j] = 100 * float64(n) / float64(total)
		}
	}
	return out
}

// Plot writes a heatmap of yTrue vs yPred to path. The title is derived from
// the file name without extension.
func (p *ConfusionMatrixPlotter) Plot(yTrue, yPred []int, labels []string, path string) error {
	if len(labels) == 0 {
		return fmt.Errorf("no labels to plot")
	}
	for k := range yTrue {
		if yTrue[k] < 0 || yTrue[k] >= len(labels) || k >= len(yPred) || yPred[k] < 0 || yPred[k] >= len(labels) {
			return fmt.Errorf("row %d: label index out of range", k)
		}
	}

	pct := Normalize(evaluation.ConfusionMatrix(len(labels), yTrue, yPred))
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	img := render(pct, labels, "CM for "+stem)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func render(pct [][]float64, labels []string, title string) *image.RGBA {
	n := len(labels)
	width := marginLeft + n*cellSize + marginEnd
	height := marginTop + n*cellSize + marginEnd + 2*lineHeight
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)

	drawText(img, title, width/2, lineHeight+4, true)
	drawText(img, "Normalized confusion matrix (%)", width/2, 2*lineHeight+10, true)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0 := marginLeft + j*cellSize
			y0 := marginTop + i*cellSize
			cell := image.Rect(x0+1, y0+1, x0+cellSize-1, y0+cellSize-1)
			draw.Draw(img, cell, &image.Uniform{heat(pct[i][j])}, image.Point{}, draw.Src)
			drawText(img, fmt.Sprintf("%.2f", pct[i][j]), x0+cellSize/2, y0+cellSize/2+4, true)
		}
		// row (actual) and column (predicted) tick labels
		drawText(img, labels[i], marginLeft-8-textWidth(labels[i]), marginTop+i*cellSize+cellSize/2+4, false)
		drawText(img, labels[i], marginLeft+i*cellSize+cellSize/2, marginTop+n*cellSize+lineHeight+2, true)
	}

	for k := 0; k <= n; k++ {
		hline := image.Rect(marginLeft, marginTop+k*cellSize, marginLeft+n*cellSize, marginTop+k*cellSize+1)
		vline := image.Rect(marginLeft+k*cellSize, marginTop, marginLeft+k*cellSize+1, marginTop+n*cellSize)
		draw.Draw(img, hline, &image.Uniform{gridLine}, image.Point{}, draw.Src)
		draw.Draw(img, vline, &image.Uniform{gridLine}, image.Point{}, draw.Src)
	}

	drawText(img, "Predicted", marginLeft+n*cellSize/2, marginTop+n*cellSize+2*lineHeight+8, true)
	drawText(img, "Actual", 8+textWidth("Actual")/2, marginTop-10, true)
	return img
}

// heat maps 0..100 onto a diverging blue-grey-red scale centred on 50
func heat(v float64) color.RGBA {
	v = min(max(v, 0), 100)
	if v < 50 {
		return lerp(low, mid, v/50)
	}
	return lerp(mid, high, (v-50)/50)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 255}
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

// drawText writes s with its baseline at y, centred on x when centre is set
func drawText(img draw.Image, s string, x, y int, centre bool) {
	if centre {
		x -= textWidth(s) / 2
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(ink),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
