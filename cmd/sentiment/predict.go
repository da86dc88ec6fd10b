package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mimir-aip/sentiment-go/pkg/predict"
	"github.com/mimir-aip/sentiment-go/pkg/textnorm"
)

var predictNormalize bool

func init() {
	predictCmd.Flags().BoolVar(&predictNormalize, "normalize", false, "Clean the text before prediction (default from NORMALIZE_INPUT)")
	rootCmd.AddCommand(predictCmd)
}

var predictCmd = &cobra.Command{
	Use:   "predict <model.json> <text>...",
	Short: "Classify a text with a persisted model",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runPredict,
}

// PredictResult is the response for the predict command
type PredictResult struct {
	Text       string `json:"text"`
	Label      string `json:"label"`
	Prediction string `json:"prediction"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("normalize") {
		predictNormalize = cfg.NormalizeInput
	}

	var normalizer predict.Normalizer
	if predictNormalize {
		normalizer = textnorm.Basic()
	}

	p := predict.NewPredictor(args[0], normalizer, log)
	if err := p.Reload(); err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	pred, err := p.Predict(text)
	if err != nil {
		return err
	}
	return outputJSON(PredictResult{Text: text, Label: pred.Label, Prediction: pred.Display})
}
