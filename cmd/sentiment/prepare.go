package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/dataset"
	"github.com/mimir-aip/sentiment-go/pkg/textnorm"
)

var (
	prepareTextColumn  string
	prepareLabelColumn string
	prepareStopWords   bool
)

func init() {
	prepareCmd.Flags().StringVar(&prepareTextColumn, "text-column", "comment", "Column holding the raw text")
	prepareCmd.Flags().StringVar(&prepareLabelColumn, "label-column", "", "Column holding the label (default: first other column)")
	prepareCmd.Flags().BoolVar(&prepareStopWords, "stop-words", false, "Also drop French stop words")
	rootCmd.AddCommand(prepareCmd)
}

var prepareCmd = &cobra.Command{
	Use:   "prepare <raw.csv> <out-dir>",
	Short: "Clean a raw dataset into <out-dir>/comments_clean.csv",
	Long: `Normalise the text column of a raw CSV (lower-case, punctuation removal,
accent folding, suffix stemming) and write the x,y training file.`,
	Args: cobra.ExactArgs(2),
	RunE: runPrepare,
}

func runPrepare(cmd *cobra.Command, args []string) error {
	cleaner := textnorm.Basic()
	if prepareStopWords {
		cleaner = textnorm.Default()
	}

	stats, err := dataset.PrepareFile(args[0], args[1], cleaner, dataset.PrepareOptions{
		TextColumn:  prepareTextColumn,
		LabelColumn: prepareLabelColumn,
	})
	if err != nil {
		return err
	}

	log.Info("Dataset prepared",
		zap.String("output", stats.OutputPath),
		zap.Int("rows", stats.Rows),
		zap.Int("dropped", stats.Dropped))
	return outputJSON(stats)
}
