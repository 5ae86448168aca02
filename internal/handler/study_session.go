package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/model"
	"github.com/dukerupert/studyplanner/internal/store"
)

type StudySessionHandler struct {
	sessionStore *store.StudySessionStore
	taskStore    *store.TaskStore
	logger       *slog.Logger
}

func NewStudySessionHandler(ss *store.StudySessionStore, ts *store.TaskStore, logger *slog.Logger) *StudySessionHandler {
	return &StudySessionHandler{sessionStore: ss, taskStore: ts, logger: logger}
}

type studySessionRequest struct {
	Subject   string     `json:"subject"`
	Topic     string     `json:"topic"`
	Duration  int        `json:"duration"`
	TaskID    *int64     `json:"task_id"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

func (h *StudySessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req studySessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be greater than 0")
		return
	}
	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		writeError(w, http.StatusBadRequest, "end_time must not be before start_time")
		return
	}

	userID := auth.UserID(r.Context())
	if req.TaskID != nil {
		task, err := h.taskStore.GetByID(r.Context(), userID, *req.TaskID)
		if err != nil {
			h.logger.Error("check session task", "task_id", *req.TaskID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to check task")
			return
		}
		if task == nil {
			writeError(w, http.StatusBadRequest, "task not found")
			return
		}
	}

	session, err := h.sessionStore.Create(r.Context(), userID, model.StudySessionInput{
		Subject:   strings.TrimSpace(req.Subject),
		Topic:     strings.TrimSpace(req.Topic),
		Duration:  req.Duration,
		TaskID:    req.TaskID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.logger.Error("create study session", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create study session")
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *StudySessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	sessions, err := h.sessionStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list study sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list study sessions")
		return
	}
	if sessions == nil {
		sessions = []model.StudySession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}
