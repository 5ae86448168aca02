package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/streak"
	"github.com/dukerupert/studyplanner/internal/websocket"
)

type StreakHandler struct {
	processor *streak.Processor
	tasks     streak.TaskFinder
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewStreakHandler(p *streak.Processor, tasks streak.TaskFinder, hub *websocket.Hub, logger *slog.Logger) *StreakHandler {
	return &StreakHandler{processor: p, tasks: tasks, hub: hub, logger: logger}
}

type taskSummary struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type streakDebugResponse struct {
	Streak    int           `json:"streak"`
	TargetDay time.Time     `json:"target_day"`
	Skipped   bool          `json:"skipped"`
	BrokenBy  string        `json:"broken_by,omitempty"`
	Tasks     []taskSummary `json:"tasks"`
}

// Get evaluates the caller's streak. mode selects today or yesterday as the
// last day to count; debug=1 adds the target day's tasks to the response.
func (h *StreakHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == 0 {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	mode := streak.ParseMode(r.URL.Query().Get("mode"))
	res, err := h.processor.Evaluate(r.Context(), userID, mode)
	if errors.Is(err, streak.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("evaluate streak", "user_id", userID, "mode", string(mode), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute streak")
		return
	}

	if res.Streak != res.Previous && h.hub != nil {
		h.hub.Send(userID, websocket.NewMessage("streak", "updated", userID, map[string]any{
			"streak": res.Streak,
		}))
	}

	if r.URL.Query().Get("debug") == "1" {
		if body, ok := h.debugBody(r, userID, res); ok {
			writeJSON(w, http.StatusOK, body)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{"streak": res.Streak})
}

// debugBody lists the target day's tasks. A failure is logged and reported
// as !ok so the caller falls back to the plain body.
func (h *StreakHandler) debugBody(r *http.Request, userID int64, res streak.Result) (streakDebugResponse, bool) {
	start, end := h.processor.DayBounds(res.TargetDay)
	tasks, err := h.tasks.FindActiveBetween(r.Context(), userID, start, end)
	if err != nil {
		h.logger.Warn("streak debug tasks", "user_id", userID, "error", err)
		return streakDebugResponse{}, false
	}

	summaries := make([]taskSummary, 0, len(tasks))
	for _, t := range tasks {
		summaries = append(summaries, taskSummary{
			ID:          t.ID,
			Title:       t.Title,
			Completed:   t.Completed,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
			CompletedAt: t.CompletedAt,
		})
	}

	return streakDebugResponse{
		Streak:    res.Streak,
		TargetDay: res.TargetDay,
		Skipped:   res.Skipped,
		BrokenBy:  string(res.BrokenBy),
		Tasks:     summaries,
	}, true
}
