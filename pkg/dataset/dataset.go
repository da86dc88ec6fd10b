// Package dataset loads labelled comment CSVs and produces the stratified
// partitions used for training and cross-validation.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Column names of a prepared dataset
const (
	TextColumn  = "x"
	LabelColumn = "y"
)

// Dataset is an ordered list of (text, label) rows held in memory
type Dataset struct {
	Texts  []string
	Labels []string
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.Texts)
}

// Subset returns the rows at the given indices, in index order
func (d *Dataset) Subset(indices []int) *Dataset {
	out := &Dataset{
		Texts:  make([]string, len(indices)),
		Labels: make([]string, len(indices)),
	}
	for i, idx := range indices {
		out.Texts[i] = d.Texts[idx]
		out.Labels[i] = d.Labels[idx]
	}
	return out
}

// Load reads a dataset from a CSV file with a header row
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	return ds, nil
}

// Read parses a dataset. Columns named x and y are used when present,
// otherwise the first two columns are taken as text and label.
func Read(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, models.DataFormatError("empty file")
	}
	if err != nil {
		return nil, models.DataFormatError("header: %v", err)
	}

	textIdx, labelIdx, err := resolveColumns(header)
	if err != nil {
		return nil, err
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
			return nil, models.DataFormatError("line %d: %v", line, err)
		}
		if textIdx >= len(record) || labelIdx >= len(record) {
			return nil, models.DataFormatError("line %d: expected at least %d columns, got %d", line, max(textIdx, labelIdx)+1, len(record))
		}

		text, label := record[textIdx], strings.TrimSpace(record[labelIdx])
		if strings.TrimSpace(text) == "" {
			return nil, models.DataFormatError("line %d: empty text", line)
		}
		if label == "" {
			return nil, models.DataFormatError("line %d: empty label", line)
		}
		ds.Texts = append(ds.Texts, text)
		ds.Labels = append(ds.Labels, label)
	}

	if ds.Len() == 0 {
		return nil, models.DataFormatError("no rows")
	}
	return ds, nil
}

func resolveColumns(header []string) (int, int, error) {
	textIdx, labelIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case TextColumn:
			textIdx = i
		case LabelColumn:
			labelIdx = i
		}
	}
	if textIdx >= 0 && labelIdx >= 0 {
		return textIdx, labelIdx, nil
	}
	if len(header) < 2 {
		return 0, 0, models.DataFormatError("need at least 2 columns, got %d", len(header))
	}
	return 0, 1, nil
}

// Write serialises a dataset as an x,y CSV
func Write(w io.Writer, ds *Dataset) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{TextColumn, LabelColumn}); err != nil {
		return err
	}
	for i := range ds.Texts {
		if err := writer.Write([]string{ds.Texts[i], ds.Labels[i]}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
