package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mimir-aip/sentiment-go/pkg/metadatastore"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/queue"
)

const defaultRunLimit = 20

// ModelResolver checks model ids before a task is queued
type ModelResolver interface {
	Get(id string) (models.ModelConfig, error)
}

// TrainingTaskResponse is a work task with its registry run, once started
type TrainingTaskResponse struct {
	Task *models.WorkTask    `json:"task"`
	Run  *models.TrainingRun `json:"run,omitempty"`
}

// TrainingHandler handles training task submission and run history
type TrainingHandler struct {
	queue    *queue.Queue
	registry metadatastore.MetadataStore
	catalog  ModelResolver
	defaults models.TrainingSpec
}

// NewTrainingHandler creates a training handler and registers its routes.
// defaults fills any field a submission leaves empty.
func NewTrainingHandler(server *Server, q *queue.Queue, registry metadatastore.MetadataStore, catalog ModelResolver, defaults models.TrainingSpec) *TrainingHandler {
	h := &TrainingHandler{queue: q, registry: registry, catalog: catalog, defaults: defaults}
	server.HandleAPI("/training", h.HandleTraining)
	server.HandleAPI("/training/{id}", h.HandleTrainingTask)
	server.HandleAPI("/runs", h.handleListRuns, http.MethodGet)
	server.HandleAPI("/runs/{id}", h.handleGetRun, http.MethodGet)
	server.HandleAPI("/models", h.handleListModels, http.MethodGet)
	return h
}

// HandleTraining handles task submission (POST) and listing (GET)
func (h *TrainingHandler) HandleTraining(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSubmit(w, r)
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"queue_length": h.queue.QueueLength(),
			"tasks":        h.queue.ListWorkTasks(),
		})
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleTrainingTask handles /api/training/{id}: GET reads, DELETE cancels a queued task
func (h *TrainingHandler) HandleTrainingTask(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	switch r.Method {
	case http.MethodGet:
		h.handleGetTask(w, r, taskID)
	case http.MethodDelete:
		if err := h.queue.Cancel(taskID); err != nil {
			writeQueueError(w, err)
			return
		}
		h.handleGetTask(w, r, taskID)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *TrainingHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req models.WorkTaskSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	spec := h.defaults
	if req.DatasetPath != "" {
		spec.DatasetPath = req.DatasetPath
	}
	if req.OutputDir != "" {
		spec.OutputDir = req.OutputDir
	}
	if len(req.ModelIDs) > 0 {
		spec.ModelIDs = req.ModelIDs
	}
	if req.Seed != nil {
		spec.Seed = *req.Seed
	}

	if err := spec.Validate(); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}
	if h.catalog != nil {
		for _, id := range spec.ModelIDs {
			if _, err := h.catalog.Get(id); err != nil {
				writeErrorResponse(w, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	task := &models.WorkTask{
		ID:          uuid.New().String(),
		Type:        models.WorkTaskTypeMLTraining,
		Status:      models.WorkTaskStatusQueued,
		Priority:    req.Priority,
		SubmittedAt: time.Now().UTC(),
		Spec:        spec,
		Source:      "api",
	}

	if err := h.queue.Enqueue(task); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to enqueue task: %v", err))
		return
	}

	writeJSONResponse(w, http.StatusAccepted, task)
}

func (h *TrainingHandler) handleGetTask(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.queue.GetWorkTask(taskID)
	if err != nil {
		writeQueueError(w, err)
		return
	}

	resp := TrainingTaskResponse{Task: task}
	if task.RunID != "" && h.registry != nil {
		run, err := h.registry.GetTrainingRun(task.RunID)
		switch {
		case err == nil:
			resp.Run = run
		case !errors.Is(err, metadatastore.ErrNotFound):
			writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get run: %v", err))
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, resp)
}

func (h *TrainingHandler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.registry.ListTrainingRuns(parseLimit(r, defaultRunLimit))
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list runs: %v", err))
		return
	}
	writeJSONResponse(w, http.StatusOK, runs)
}

func (h *TrainingHandler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.registry.GetTrainingRun(mux.Vars(r)["id"])
	if errors.Is(err, metadatastore.ErrNotFound) {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get run: %v", err))
		return
	}
	writeJSONResponse(w, http.StatusOK, run)
}

func (h *TrainingHandler) handleListModels(w http.ResponseWriter, r *http.Request) {
	records, err := h.registry.ListModelRecords()
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list models: %v", err))
		return
	}
	writeJSONResponse(w, http.StatusOK, records)
}

func writeQueueError(w http.ResponseWriter, err error) {
	if errors.Is(err, queue.ErrNotFound) {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}
	writeErrorResponse(w, http.StatusConflict, err.Error())
}
