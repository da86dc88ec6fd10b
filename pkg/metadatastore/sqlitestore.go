package metadatastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

const busyRetries = 5

// SQLiteStore provides SQLite-based persistence for training runs and model records
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based storage instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Format: file:path?param=value
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// writes are serialized by SQLite anyway
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// In-memory databases use "memory" mode, which is acceptable for testing
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return nil, fmt.Errorf("failed to check journal mode: %w", err)
	}
	if journalMode != "wal" && journalMode != "delete" && journalMode != "memory" {
		return nil, fmt.Errorf("unexpected journal mode: got %s", journalMode)
	}

	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// retryOnBusy retries a database operation if it fails due to SQLITE_BUSY.
// This is a safety net on top of the busy_timeout pragma.
func (s *SQLiteStore) retryOnBusy(operation func() error, maxRetries int) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") {
			// 10ms, 20ms, 40ms, 80ms, 160ms
			backoff := time.Duration(10*(1<<uint(i))) * time.Millisecond
			time.Sleep(backoff)
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// initSchema creates the database schema if it doesn't exist
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS training_runs (
		id TEXT PRIMARY KEY,
		dataset_path TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		completed_at DATETIME,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_training_runs_started_at ON training_runs(started_at);

	CREATE TABLE IF NOT EXISTS model_records (
		model_id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		artifact_path TEXT NOT NULL,
		classifier TEXT NOT NULL,
		accuracy REAL NOT NULL,
		trained_at DATETIME NOT NULL,
		data TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_model_records_run_id ON model_records(run_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveTrainingRun inserts or replaces a training run
func (s *SQLiteStore) SaveTrainingRun(run *models.TrainingRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to marshal training run: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO training_runs (id, dataset_path, output_dir, status, started_at, completed_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err = s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			run.ID,
			run.DatasetPath,
			run.OutputDir,
			string(run.Status),
			run.StartedAt,
			run.CompletedAt,
			string(data),
		)
		return err
	}, busyRetries)
	if err != nil {
		return fmt.Errorf("failed to save training run: %w", err)
	}

	return nil
}

// GetTrainingRun retrieves a training run by ID
func (s *SQLiteStore) GetTrainingRun(id string) (*models.TrainingRun, error) {
	var data string
	query := `SELECT data FROM training_runs WHERE id = ?`

	err := s.db.QueryRow(query, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("training run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get training run: %w", err)
	}

	var run models.TrainingRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal training run: %w", err)
	}

	return &run, nil
}

// ListTrainingRuns lists the most recent training runs first. limit <= 0 means no limit.
func (s *SQLiteStore) ListTrainingRuns(limit int) ([]*models.TrainingRun, error) {
	query := `SELECT data FROM training_runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list training runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*models.TrainingRun, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var run models.TrainingRun
		if err := json.Unmarshal([]byte(data), &run); err != nil {
			continue
		}

		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// SaveModelRecord inserts or replaces the record of a model family
func (s *SQLiteStore) SaveModelRecord(record *models.ModelRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal model record: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO model_records (model_id, run_id, artifact_path, classifier, accuracy, trained_at, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err = s.retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			record.ModelID,
			record.RunID,
			record.ArtifactPath,
			record.Classifier,
			record.Accuracy,
			record.TrainedAt,
			string(data),
		)
		return err
	}, busyRetries)
	if err != nil {
		return fmt.Errorf("failed to save model record: %w", err)
	}

	return nil
}

// GetModelRecord retrieves the record of a model family
func (s *SQLiteStore) GetModelRecord(modelID string) (*models.ModelRecord, error) {
	var data string
	query := `SELECT data FROM model_records WHERE model_id = ?`

	err := s.db.QueryRow(query, modelID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model record %s: %w", modelID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get model record: %w", err)
	}

	var record models.ModelRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model record: %w", err)
	}

	return &record, nil
}

// ListModelRecords lists all model records ordered by model id
func (s *SQLiteStore) ListModelRecords() ([]*models.ModelRecord, error) {
	rows, err := s.db.Query(`SELECT data FROM model_records ORDER BY model_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list model records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ModelRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			continue
		}

		var record models.ModelRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}
