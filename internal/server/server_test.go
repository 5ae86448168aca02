package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/config"
	"github.com/dukerupert/studyplanner/internal/database"
)

const testSecret = "server-test-secret"

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:   testSecret,
		TokenTTL:    time.Hour,
		Location:    time.UTC,
		MetricsUser: "prom",
		MetricsPass: "pw",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, cfg, logger).Router()
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// register creates a user and returns its bearer token and id.
func register(t *testing.T, h http.Handler, email string) (string, int64) {
	t.Helper()
	rec := do(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name": "Student", "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func createTask(t *testing.T, h http.Handler, token, title string) int64 {
	t.Helper()
	rec := do(t, h, "POST", "/api/tasks", token, map[string]any{"title": title, "subject": "math"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var task struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &task)
	return task.ID
}

func TestHealth(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, "GET", "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","message":"Study Planner API running"}`, rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	h := setupRouter(t)
	register(t, h, "  Ada@Example.com ")

	rec := do(t, h, "POST", "/api/auth/register", "", map[string]string{
		"name": "Other", "email": "ada@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email already registered")

	rec = do(t, h, "POST", "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")

	rec = do(t, h, "POST", "/api/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")

	rec = do(t, h, "POST", "/api/auth/login", "", map[string]string{"email": "ADA@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	decode(t, rec, &resp)

	rec = do(t, h, "GET", "/api/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	decode(t, rec, &me)
	assert.Equal(t, "ada@example.com", me["email"])
	assert.Equal(t, float64(0), me["streak"])
	assert.NotContains(t, me, "password_hash")
}

func TestRegisterValidation(t *testing.T) {
	h := setupRouter(t)

	rec := do(t, h, "POST", "/api/auth/register", "", map[string]string{"name": "A", "email": "a@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/auth/register", "", map[string]string{"name": "", "email": "a@example.com", "password": "hunter22"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	h := setupRouter(t)

	for i := 0; i < authRateLimit; i++ {
		rec := do(t, h, "POST", "/api/auth/login", "", map[string]string{"email": "x@example.com", "password": "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec := do(t, h, "POST", "/api/auth/login", "", map[string]string{"email": "x@example.com", "password": "nope"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := setupRouter(t)

	for _, path := range []string{"/api/tasks", "/api/goals", "/api/sessions", "/api/streak", "/api/analytics", "/api/auth/me"} {
		rec := do(t, h, "GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String(), path)
	}

	rec := do(t, h, "GET", "/api/tasks", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTaskCRUD(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "tasks@example.com")

	rec := do(t, h, "POST", "/api/tasks", token, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, "POST", "/api/tasks", token, map[string]any{"title": "Read", "progress": 120})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	first := createTask(t, h, token, "Chapter 1")
	second := createTask(t, h, token, "Chapter 2")

	rec = do(t, h, "GET", "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		ID int64 `json:"id"`
	}
	decode(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, second, list[0].ID, "newest first")

	rec = do(t, h, "PUT", fmt.Sprintf("/api/tasks/%d", first), token, map[string]any{"completed": true, "progress": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	decode(t, rec, &updated)
	assert.Equal(t, true, updated["completed"])
	assert.Equal(t, "Chapter 1", updated["title"], "absent fields are kept")
	assert.NotNil(t, updated["completed_at"])

	rec = do(t, h, "PUT", fmt.Sprintf("/api/tasks/%d", first), token, map[string]any{"completed": false})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &updated)
	assert.Nil(t, updated["completed_at"])

	rec = do(t, h, "DELETE", fmt.Sprintf("/api/tasks/%d", first), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	rec = do(t, h, "GET", fmt.Sprintf("/api/tasks/%d", first), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "GET", "/api/tasks/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTasksScopedToOwner(t *testing.T) {
	h := setupRouter(t)
	alice, _ := register(t, h, "alice@example.com")
	bob, _ := register(t, h, "bob@example.com")

	id := createTask(t, h, alice, "Alice's task")
	path := fmt.Sprintf("/api/tasks/%d", id)

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", path, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "PUT", path, bob, map[string]any{"completed": true}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", path, bob, nil).Code)

	rec := do(t, h, "GET", "/api/tasks", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusOK, do(t, h, "GET", path, alice, nil).Code)
}

func TestGoals(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "goals@example.com")

	rec := do(t, h, "POST", "/api/goals", token, map[string]any{"title": "Finish course"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var goal map[string]any
	decode(t, rec, &goal)
	assert.Equal(t, float64(100), goal["target_progress"])

	rec = do(t, h, "POST", "/api/goals", token, map[string]any{"title": "Bad", "target_progress": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	id := int64(goal["id"].(float64))
	rec = do(t, h, "PUT", fmt.Sprintf("/api/goals/%d", id), token, map[string]any{"progress": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &goal)
	assert.Equal(t, float64(50), goal["progress"])
	assert.Equal(t, "Finish course", goal["title"])

	other, _ := register(t, h, "other@example.com")
	assert.Equal(t, http.StatusNotFound, do(t, h, "DELETE", fmt.Sprintf("/api/goals/%d", id), other, nil).Code)

	rec = do(t, h, "DELETE", fmt.Sprintf("/api/goals/%d", id), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStudySessions(t *testing.T) {
	h := setupRouter(t)
	alice, _ := register(t, h, "alice@example.com")
	bob, _ := register(t, h, "bob@example.com")
	bobTask := createTask(t, h, bob, "Bob's task")

	rec := do(t, h, "POST", "/api/sessions", alice, map[string]any{"subject": "math", "duration": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/sessions", alice, map[string]any{"subject": "math", "duration": 25, "task_id": bobTask})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	aliceTask := createTask(t, h, alice, "Alice's task")
	rec = do(t, h, "POST", "/api/sessions", alice, map[string]any{"subject": "math", "duration": 25, "task_id": aliceTask})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, "GET", "/api/sessions", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []map[string]any
	decode(t, rec, &sessions)
	require.Len(t, sessions, 1)
	assert.Equal(t, float64(aliceTask), sessions[0]["task_id"])
}

func TestStreakToday(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "streak@example.com")

	rec := do(t, h, "GET", "/api/streak?mode=today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streak":0}`, rec.Body.String())

	id := createTask(t, h, token, "Revise")

	rec = do(t, h, "GET", "/api/streak?mode=today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streak":0}`, rec.Body.String(), "incomplete task breaks the day")

	rec = do(t, h, "PUT", fmt.Sprintf("/api/tasks/%d", id), token, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/streak?mode=today", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streak":1}`, rec.Body.String())

	rec = do(t, h, "GET", "/api/auth/me", token, nil)
	var me struct {
		Streak              int        `json:"streak"`
		LastStreakProcessed *time.Time `json:"last_streak_processed"`
	}
	decode(t, rec, &me)
	assert.Equal(t, 1, me.Streak)
	require.NotNil(t, me.LastStreakProcessed)
	today := time.Now().UTC().Truncate(24 * time.Hour)
	assert.True(t, me.LastStreakProcessed.Equal(today), "processed marker is today's midnight, got %s", me.LastStreakProcessed)
}

func TestStreakYesterdaySkipsSecondCall(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "yesterday@example.com")

	rec := do(t, h, "GET", "/api/streak", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"streak":0}`, rec.Body.String())

	rec = do(t, h, "GET", "/api/streak?mode=bogus&debug=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Streak    int       `json:"streak"`
		TargetDay time.Time `json:"target_day"`
		Skipped   bool      `json:"skipped"`
		Tasks     []any     `json:"tasks"`
	}
	decode(t, rec, &body)
	assert.True(t, body.Skipped, "unknown mode falls back to yesterday and the day is already processed")
	assert.Equal(t, 0, body.Streak)
	assert.True(t, body.TargetDay.Equal(time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)))
	assert.Empty(t, body.Tasks)
}

func TestStreakDebug(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "debug@example.com")
	createTask(t, h, token, "Open task")

	rec := do(t, h, "GET", "/api/streak?mode=today&debug=1", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Streak   int    `json:"streak"`
		Skipped  bool   `json:"skipped"`
		BrokenBy string `json:"broken_by"`
		Tasks    []struct {
			Title     string `json:"title"`
			Completed bool   `json:"completed"`
		} `json:"tasks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 0, body.Streak)
	assert.False(t, body.Skipped)
	assert.Equal(t, "incomplete", body.BrokenBy)
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "Open task", body.Tasks[0].Title)
}

func TestStreakUnknownUser(t *testing.T) {
	h := setupRouter(t)
	token, err := auth.NewTokens(testSecret, time.Hour).Issue(999)
	require.NoError(t, err)

	rec := do(t, h, "GET", "/api/streak", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "user not found")
}

func TestAnalytics(t *testing.T) {
	h := setupRouter(t)
	token, _ := register(t, h, "analytics@example.com")

	done := createTask(t, h, token, "Done")
	createTask(t, h, token, "Open")
	do(t, h, "PUT", fmt.Sprintf("/api/tasks/%d", done), token, map[string]any{"completed": true})
	do(t, h, "POST", "/api/goals", token, map[string]any{"title": "Goal", "completed": true})
	do(t, h, "POST", "/api/sessions", token, map[string]any{"subject": "math", "duration": 30})
	do(t, h, "POST", "/api/sessions", token, map[string]any{"subject": "math", "duration": 15})

	rec := do(t, h, "GET", "/api/analytics", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{
		"total_study_minutes": 45,
		"task_completion_rate": 50,
		"goal_completion_rate": 100,
		"productivity_score": 67,
		"subjects": {"math": {"total_minutes": 45, "sessions": 2}},
		"streak": 0
	}`, rec.Body.String())
}

func TestMetricsBasicAuth(t *testing.T) {
	h := setupRouter(t)
	do(t, h, "GET", "/health", "", nil)

	rec := do(t, h, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.SetBasicAuth("prom", "pw")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "studyplanner_http_requests_total"))
}

func TestRequestIDHeader(t *testing.T) {
	h := setupRouter(t)
	rec := do(t, h, "GET", "/health", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
