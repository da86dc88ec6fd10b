package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/training"
	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Artifact file suffixes, appended to the model id
const (
	ModelSuffix  = "_pipe.json"
	ReportSuffix = "_results.json"
	ImageSuffix  = "_cm.png"
)

// ArtifactStore persists fitted models and their evaluation reports in a
// single directory, one file set per model id
type ArtifactStore struct {
	basePath string
	mu       sync.Mutex
}

// NewArtifactStore creates the directory if needed
func NewArtifactStore(basePath string) (*ArtifactStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &ArtifactStore{basePath: basePath}, nil
}

// Dir returns the artifact directory
func (s *ArtifactStore) Dir() string {
	return s.basePath
}

// ModelPath returns <dir>/<id>_pipe.json
func (s *ArtifactStore) ModelPath(modelID string) string {
	return filepath.Join(s.basePath, modelID+ModelSuffix)
}

// ReportPath returns <dir>/<id>_results.json
func (s *ArtifactStore) ReportPath(modelID string) string {
	return filepath.Join(s.basePath, modelID+ReportSuffix)
}

// ImagePath returns <dir>/<id>_cm.png
func (s *ArtifactStore) ImagePath(modelID string) string {
	return filepath.Join(s.basePath, modelID+ImageSuffix)
}

// SaveModel writes a fitted model, replacing any previous artifact of the same id
func (s *ArtifactStore) SaveModel(model *training.FittedModel) (string, error) {
	path := s.ModelPath(model.ModelID)
	data, err := json.Marshal(model)
	if err != nil {
		return "", models.PersistenceError("encode", path, err)
	}
	if err := s.writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// LoadModel reads a fitted model from any path
func LoadModel(path string) (*training.FittedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.PersistenceError("read", path, err)
	}
	var model training.FittedModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, models.PersistenceError("decode", path, err)
	}
	return &model, nil
}

// LoadModel reads the artifact of a model id
func (s *ArtifactStore) LoadModel(modelID string) (*training.FittedModel, error) {
	return LoadModel(s.ModelPath(modelID))
}

// SaveReport writes an evaluation report as indented JSON
func (s *ArtifactStore) SaveReport(report *models.EvaluationReport) (string, error) {
	path := s.ReportPath(report.ModelID)
	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", models.PersistenceError("encode", path, err)
	}
	if err := s.writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// LoadReport reads the report of a model id
func (s *ArtifactStore) LoadReport(modelID string) (*models.EvaluationReport, error) {
	path := s.ReportPath(modelID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.PersistenceError("read", path, err)
	}
	var report models.EvaluationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, models.PersistenceError("decode", path, err)
	}
	return &report, nil
}

// ListModels returns the ids of every persisted model, sorted
func (s *ArtifactStore) ListModels() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, models.PersistenceError("list", s.basePath, err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ModelSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ModelSuffix))
	}
	sort.Strings(ids)
	return ids, nil
}

// writeAtomic writes to a temp file in the same directory and renames it over
// path, so readers never observe a partial artifact
func (s *ArtifactStore) writeAtomic(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return models.PersistenceError("create", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return models.PersistenceError("write", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return models.PersistenceError("close", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		cleanup()
		return models.PersistenceError("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return models.PersistenceError("rename", path, err)
	}
	return nil
}
