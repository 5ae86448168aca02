package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/model"
	"github.com/dukerupert/studyplanner/internal/store"
	"github.com/dukerupert/studyplanner/internal/websocket"
)

type TaskHandler struct {
	taskStore *store.TaskStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, hub *websocket.Hub, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{taskStore: ts, hub: hub, logger: logger}
}

func (h *TaskHandler) send(userID int64, msg websocket.Message) {
	if h.hub != nil {
		h.hub.Send(userID, msg)
	}
}

// taskRequest fields are optional on update; absent fields keep their
// current value.
type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
	Progress    *int    `json:"progress"`
	Duration    *int    `json:"duration"`
	Completed   *bool   `json:"completed"`
}

func (req taskRequest) apply(in *model.TaskInput) {
	if req.Title != nil {
		in.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Subject != nil {
		in.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Progress != nil {
		in.Progress = *req.Progress
	}
	if req.Duration != nil {
		in.Duration = *req.Duration
	}
	if req.Completed != nil {
		in.Completed = *req.Completed
	}
}

func validateTask(in model.TaskInput) string {
	switch {
	case in.Title == "":
		return "title is required"
	case in.Progress < 0 || in.Progress > 100:
		return "progress must be between 0 and 100"
	case in.Duration < 0:
		return "duration must not be negative"
	}
	return ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var in model.TaskInput
	req.apply(&in)
	if msg := validateTask(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	userID := auth.UserID(r.Context())
	task, err := h.taskStore.Create(r.Context(), userID, in)
	if err != nil {
		h.logger.Error("create task", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.send(userID, websocket.NewMessage("task", "created", task.ID, nil))

	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	tasks, err := h.taskStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list tasks", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	task, err := h.taskStore.GetByID(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("get task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.taskStore.GetByID(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("get task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := model.TaskInput{
		Title:       existing.Title,
		Description: existing.Description,
		Subject:     existing.Subject,
		Progress:    existing.Progress,
		Duration:    existing.Duration,
		Completed:   existing.Completed,
	}
	req.apply(&in)
	if msg := validateTask(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	task, err := h.taskStore.Update(r.Context(), userID, id, in)
	if err != nil {
		h.logger.Error("update task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.send(userID, websocket.NewMessage("task", "updated", id, nil))

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	found, err := h.taskStore.Delete(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("delete task", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	h.send(userID, websocket.NewMessage("task", "deleted", id, nil))

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
