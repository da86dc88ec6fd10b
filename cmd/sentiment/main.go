// Package main provides the sentiment CLI entry point.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/config"
	"github.com/mimir-aip/sentiment-go/pkg/logger"
	"github.com/mimir-aip/sentiment-go/pkg/metadatastore"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/catalog"
	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Version is set at build time via ldflags
var Version = "dev"

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error
	ExitDataError     = 3 // Malformed input data or too few samples
	ExitModelNotFound = 4 // Unknown model id
	ExitTrainingError = 5 // No model family could be trained
)

// Shared state set up by the root command before any subcommand runs
var (
	cfg *config.Config
	log *zap.Logger
)

// exitError carries a specific process exit code
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func main() {
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		// SilenceErrors is set, so cobra errors are printed here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, models.ErrUnknownModel):
		return ExitModelNotFound
	case errors.Is(err, models.ErrDataFormat), errors.Is(err, models.ErrInsufficientData):
		return ExitDataError
	default:
		return ExitError
	}
}

var rootCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "French sentiment analysis: data preparation, training and serving",
	Long: `sentiment cleans French review datasets, trains and evaluates text
classifiers with grid-searched hyperparameters, and serves the selected model
over HTTP.

Configuration comes from the environment (optionally a .env file) and an
optional YAML file named by SENTIMENT_CONFIG.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		log, err = logger.NewLogger(&cfg.Log)
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		return nil
	},
}

func init() {
	rootCmd.Version = Version
}

// newCatalog returns the builtin catalog with the configured YAML overlay applied
func newCatalog() (*catalog.Catalog, error) {
	c := catalog.Default()
	if cfg.ModelCatalog != "" {
		if err := c.LoadFile(cfg.ModelCatalog); err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		log.Info("Loaded model catalog overlay", zap.String("path", cfg.ModelCatalog))
	}
	return c, nil
}

// openRegistry opens the SQLite run registry under the storage directory
func openRegistry() (*metadatastore.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.StorageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	dbPath := filepath.Join(cfg.StorageDir, "sentiment.db")
	store, err := metadatastore.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}
	log.Info("Initialized SQLite run registry", zap.String("path", dbPath))
	return store, nil
}

// outputJSON writes a value as formatted JSON to stdout
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
