package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/sentiment-go/pkg/dataset"
)

// Training backends supported by the dispatcher
const (
	BackendLocal      = "local"
	BackendKubernetes = "kubernetes"
)

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Config holds the application configuration
type Config struct {
	Environment string    `yaml:"environment"`
	Log         LogConfig `yaml:"log"`
	Port        string    `yaml:"port"`

	// Prediction service
	Token          string `yaml:"token"`
	ModelPath      string `yaml:"model_path"`
	NormalizeInput bool   `yaml:"normalize_input"`

	// Training
	StorageDir   string   `yaml:"storage_dir"`
	DatasetPath  string   `yaml:"dataset_path"`
	ModelDir     string   `yaml:"model_dir"`
	TrainModels  []string `yaml:"train_models"`
	RandomSeed   int64    `yaml:"random_seed"`
	Workers      int      `yaml:"workers"`
	ModelCatalog string   `yaml:"model_catalog"`

	// Scheduling and dispatch
	RetrainSchedule string `yaml:"retrain_schedule"`
	TrainingBackend string `yaml:"training_backend"`
	K8sNamespace    string `yaml:"k8s_namespace"`
	TrainerImage    string `yaml:"trainer_image"`
}

// LoadConfig loads configuration from an optional .env file, environment
// variables and an optional YAML overlay named by SENTIMENT_CONFIG.
// The overlay wins over the environment.
func LoadConfig() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Port:            getEnv("PORT", "8080"),
		Token:           getEnv("TOKEN", ""),
		ModelPath:       getEnv("MODEL_PATH", "models/svm_pipe.json"),
		NormalizeInput:  getEnvAsBool("NORMALIZE_INPUT", false),
		StorageDir:      getEnv("STORAGE_DIR", "data"),
		DatasetPath:     getEnv("DATASET_PATH", "data/"+dataset.CleanFileName),
		ModelDir:        getEnv("MODEL_DIR", "models"),
		TrainModels:     getEnvAsList("TRAIN_MODELS", []string{"svm", "naive_bayes", "logistic_regression"}),
		RandomSeed:      getEnvAsInt64("RANDOM_SEED", dataset.DefaultSeed),
		Workers:         getEnvAsInt("WORKERS", 0),
		ModelCatalog:    getEnv("MODEL_CATALOG", ""),
		RetrainSchedule: getEnv("RETRAIN_SCHEDULE", ""),
		TrainingBackend: getEnv("TRAINING_BACKEND", BackendLocal),
		K8sNamespace:    getEnv("K8S_NAMESPACE", "sentiment"),
		TrainerImage:    getEnv("TRAINER_IMAGE", "sentiment-go:latest"),
	}

	if path := os.Getenv("SENTIMENT_CONFIG"); path != "" {
		if err := config.overlay(path); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	switch c.TrainingBackend {
	case BackendLocal, BackendKubernetes:
	default:
		return fmt.Errorf("TRAINING_BACKEND must be %q or %q, got %q", BackendLocal, BackendKubernetes, c.TrainingBackend)
	}
	if c.Workers < 0 {
		return fmt.Errorf("WORKERS must not be negative")
	}
	if len(c.TrainModels) == 0 {
		return fmt.Errorf("TRAIN_MODELS must name at least one model")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
