package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/ender-tasks/internal/auth"
	"github.com/isdelr/ender-tasks/internal/models"
	"github.com/isdelr/ender-tasks/internal/services"
	"github.com/rs/zerolog/log"
)

// TaskHandler handles HTTP requests related to tasks. Every request is
// scoped to the user in the verified token.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// GetAll returns the caller's tasks.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, h.service.List(ownerID))
}

// Get returns a single task.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.service.Get(ownerID, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// Create adds a task for the caller.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var input models.TaskInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.service.Create(ownerID, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info().Int("user_id", ownerID).Int("task_id", task.ID).Msg("Task created")
	WriteJSON(w, http.StatusCreated, task)
}

// Update applies a partial update to a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	var patch models.TaskPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.service.Update(ownerID, id, patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, task)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ownerID, id); err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info().Int("user_id", ownerID).Int("task_id", id).Msg("Task deleted")
	WriteJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		WriteError(w, http.StatusInternalServerError, "Server error")
		return 0, false
	}
	return claims.UserID, true
}

// A malformed id cannot name an existing task.
func taskIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "Task not found")
		return 0, false
	}
	return id, true
}
