package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/scheduler"
)

// ScheduleHandler handles retrain schedule HTTP requests
type ScheduleHandler struct {
	service *scheduler.Service
}

// NewScheduleHandler creates a new schedule handler and registers its routes
func NewScheduleHandler(server *Server, service *scheduler.Service) *ScheduleHandler {
	h := &ScheduleHandler{service: service}
	server.HandleAPI("/schedules", h.HandleSchedules)
	server.HandleAPI("/schedules/{id}", h.HandleSchedule)
	server.HandleAPI("/schedules/{id}/trigger", h.handleTrigger, http.MethodPost)
	return h
}

// HandleSchedules handles schedule list and create operations
func (h *ScheduleHandler) HandleSchedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, h.service.List())
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// HandleSchedule handles individual schedule operations
func (h *ScheduleHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	scheduleID := mux.Vars(r)["id"]

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, scheduleID)
	case http.MethodDelete:
		h.handleDelete(w, r, scheduleID)
	default:
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleCreate creates a new schedule
func (h *ScheduleHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.RetrainScheduleCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	schedule, err := h.service.Create(&req)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Failed to create schedule: %v", err))
		return
	}

	writeJSONResponse(w, http.StatusCreated, schedule)
}

// handleGet retrieves a schedule
func (h *ScheduleHandler) handleGet(w http.ResponseWriter, r *http.Request, scheduleID string) {
	schedule, err := h.service.Get(scheduleID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Schedule not found: %v", err))
		return
	}

	writeJSONResponse(w, http.StatusOK, schedule)
}

// handleDelete deletes a schedule
func (h *ScheduleHandler) handleDelete(w http.ResponseWriter, r *http.Request, scheduleID string) {
	if err := h.service.Delete(scheduleID); err != nil {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Failed to delete schedule: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTrigger enqueues a training task for the schedule now
func (h *ScheduleHandler) handleTrigger(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Trigger(mux.Vars(r)["id"])
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusAccepted, task)
}
