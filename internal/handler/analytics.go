package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/studyplanner/internal/analytics"
	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/store"
)

type AnalyticsHandler struct {
	userStore    *store.UserStore
	taskStore    *store.TaskStore
	goalStore    *store.GoalStore
	sessionStore *store.StudySessionStore
	logger       *slog.Logger
}

func NewAnalyticsHandler(us *store.UserStore, ts *store.TaskStore, gs *store.GoalStore, ss *store.StudySessionStore, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{userStore: us, taskStore: ts, goalStore: gs, sessionStore: ss, logger: logger}
}

// Get summarizes the caller's records. The streak is the stored value; it is
// not recomputed here.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserID(ctx)

	user, err := h.userStore.GetByID(ctx, userID)
	if err != nil {
		h.logger.Error("analytics user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	tasks, err := h.taskStore.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("analytics tasks", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	goals, err := h.goalStore.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("analytics goals", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	sessions, err := h.sessionStore.ListByUser(ctx, userID)
	if err != nil {
		h.logger.Error("analytics sessions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}

	summary := analytics.Summarize(tasks, goals, sessions)
	summary.Streak = user.Streak
	writeJSON(w, http.StatusOK, summary)
}
