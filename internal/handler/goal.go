package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/model"
	"github.com/dukerupert/studyplanner/internal/store"
)

type GoalHandler struct {
	goalStore *store.GoalStore
	logger    *slog.Logger
}

func NewGoalHandler(gs *store.GoalStore, logger *slog.Logger) *GoalHandler {
	return &GoalHandler{goalStore: gs, logger: logger}
}

type goalRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Subject        *string `json:"subject"`
	Progress       *int    `json:"progress"`
	TargetProgress *int    `json:"target_progress"`
	Completed      *bool   `json:"completed"`
}

func (req goalRequest) apply(in *model.GoalInput) {
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
	if req.TargetProgress != nil {
		in.TargetProgress = *req.TargetProgress
	}
	if req.Completed != nil {
		in.Completed = *req.Completed
	}
}

func validateGoal(in model.GoalInput) string {
	switch {
	case in.Title == "":
		return "title is required"
	case in.Progress < 0 || in.Progress > 100:
		return "progress must be between 0 and 100"
	case in.TargetProgress < 1 || in.TargetProgress > 100:
		return "target_progress must be between 1 and 100"
	}
	return ""
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := model.GoalInput{TargetProgress: 100}
	req.apply(&in)
	if msg := validateGoal(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	userID := auth.UserID(r.Context())
	goal, err := h.goalStore.Create(r.Context(), userID, in)
	if err != nil {
		h.logger.Error("create goal", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create goal")
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	goals, err := h.goalStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list goals", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list goals")
		return
	}
	if goals == nil {
		goals = []model.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.goalStore.GetByID(r.Context(), userID, id)
	if err != nil {
		h.logger.Error("get goal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get goal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	in := model.GoalInput{
		Title:          existing.Title,
		Description:    existing.Description,
		Subject:        existing.Subject,
		Progress:       existing.Progress,
		TargetProgress: existing.TargetProgress,
		Completed:      existing.Completed,
	}
	req.apply(&in)
	if msg := validateGoal(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	goal, err := h.goalStore.Update(r.Context(), userID, id, in)
	if err != nil {
		h.logger.Error("update goal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update goal")
		return
	}
	if goal == nil {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	found, err := h.goalStore.Delete(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.logger.Error("delete goal", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete goal")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "goal not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
