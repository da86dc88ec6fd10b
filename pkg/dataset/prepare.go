package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// CleanFileName is the name of the prepared dataset written by PrepareFile
const CleanFileName = "comments_clean.csv"

// Cleaner normalizes one comment
type Cleaner interface {
	Normalize(text string) string
}

// PrepareOptions selects the raw columns to keep
type PrepareOptions struct {
	TextColumn  string // defaults to "comment"
	LabelColumn string // defaults to the first other column
}

// PrepareStats summarises a preparation pass
type PrepareStats struct {
	Rows       int    `json:"rows"`
	Dropped    int    `json:"dropped"`
	OutputPath string `json:"output_path,omitempty"`
}

// Prepare cleans the text column of a raw comment CSV and returns an x,y
// dataset. Rows whose text cleans to nothing are dropped.
func Prepare(r io.Reader, cleaner Cleaner, opts PrepareOptions) (*Dataset, PrepareStats, error) {
	var stats PrepareStats
	if opts.TextColumn == "" {
		opts.TextColumn = "comment"
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, stats, models.DataFormatError("raw header: %v", err)
	}

	textIdx, labelIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case name == opts.TextColumn:
			textIdx = i
		case opts.LabelColumn != "" && name == opts.LabelColumn:
			labelIdx = i
		case opts.LabelColumn == "" && labelIdx < 0:
			labelIdx = i
		}
	}
	if textIdx < 0 {
		return nil, stats, models.DataFormatError("text column %q not found", opts.TextColumn)
	}
	if labelIdx < 0 {
		return nil, stats, models.DataFormatError("no label column in %v", header)
	}

	ds := &Dataset{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, stats, models.DataFormatError("line %d: %v", line, err)
		}
		if textIdx >= len(record) || labelIdx >= len(record) {
			return nil, stats, models.DataFormatError("line %d: missing columns", line)
		}

		stats.Rows++
		clean := cleaner.Normalize(record[textIdx])
		label := strings.TrimSpace(record[labelIdx])
		if clean == "" || label == "" {
			stats.Dropped++
			continue
		}
		ds.Texts = append(ds.Texts, clean)
		ds.Labels = append(ds.Labels, label)
	}
	return ds, stats, nil
}

// PrepareFile cleans rawPath and writes comments_clean.csv into outDir
func PrepareFile(rawPath, outDir string, cleaner Cleaner, opts PrepareOptions) (PrepareStats, error) {
	in, err := os.Open(rawPath)
	if err != nil {
		return PrepareStats{}, fmt.Errorf("failed to open raw dataset: %w", err)
	}
	defer in.Close()

	ds, stats, err := Prepare(in, cleaner, opts)
	if err != nil {
		return stats, fmt.Errorf("failed to prepare %s: %w", rawPath, err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return stats, fmt.Errorf("failed to create output directory: %w", err)
	}
	stats.OutputPath = filepath.Join(outDir, CleanFileName)

	out, err := os.Create(stats.OutputPath)
	if err != nil {
		return stats, fmt.Errorf("failed to create %s: %w", stats.OutputPath, err)
	}
	if err := Write(out, ds); err != nil {
		out.Close()
		return stats, fmt.Errorf("failed to write %s: %w", stats.OutputPath, err)
	}
	return stats, out.Close()
}
