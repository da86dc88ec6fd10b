package metadatastore

import (
	"errors"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// MetadataStore is the interface for training metadata persistence.
// It records training runs and the latest artifact of each model family;
// the artifacts themselves live in the artifact directory.
type MetadataStore interface {
	// Training run operations
	SaveTrainingRun(run *models.TrainingRun) error
	GetTrainingRun(id string) (*models.TrainingRun, error)
	ListTrainingRuns(limit int) ([]*models.TrainingRun, error)

	// Model record operations
	SaveModelRecord(record *models.ModelRecord) error
	GetModelRecord(modelID string) (*models.ModelRecord, error)
	ListModelRecords() ([]*models.ModelRecord, error)

	Close() error
}
