package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/studyplanner/internal/auth"
	"github.com/dukerupert/studyplanner/internal/config"
	"github.com/dukerupert/studyplanner/internal/handler"
	"github.com/dukerupert/studyplanner/internal/metrics"
	"github.com/dukerupert/studyplanner/internal/middleware"
	"github.com/dukerupert/studyplanner/internal/store"
	"github.com/dukerupert/studyplanner/internal/streak"
	ws "github.com/dukerupert/studyplanner/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	db          *sql.DB
	cfg         config.Config
	hub         *ws.Hub
	tokens      *auth.Tokens
	metrics     *metrics.Metrics
	authH       *handler.AuthHandler
	taskH       *handler.TaskHandler
	goalH       *handler.GoalHandler
	sessionH    *handler.StudySessionHandler
	streakH     *handler.StreakHandler
	analyticsH  *handler.AnalyticsHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	userStore := store.NewUserStore(db)
	taskStore := store.NewTaskStore(db)
	goalStore := store.NewGoalStore(db)
	sessionStore := store.NewStudySessionStore(db)

	processor := streak.NewProcessor(taskStore, userStore, cfg.Location,
		streak.WithRecorder(m),
		streak.WithLogger(logger.With("component", "streak")),
	)

	return &Server{
		db:          db,
		cfg:         cfg,
		hub:         hub,
		tokens:      tokens,
		metrics:     m,
		authH:       handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		taskH:       handler.NewTaskHandler(taskStore, hub, logger.With("component", "task")),
		goalH:       handler.NewGoalHandler(goalStore, logger.With("component", "goal")),
		sessionH:    handler.NewStudySessionHandler(sessionStore, taskStore, logger.With("component", "study_session")),
		streakH:     handler.NewStreakHandler(processor, taskStore, hub, logger.With("component", "streak_handler")),
		analyticsH:  handler.NewAnalyticsHandler(userStore, taskStore, goalStore, sessionStore, logger.With("component", "analytics")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the auth rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the live update hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", handler.Health)
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.Handle("GET /metrics", middleware.BasicAuth(s.cfg.MetricsUser, s.cfg.MetricsPass, "metrics")(s.metrics.Handler()))

	// Everything else requires a bearer token
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.tokens, s.metrics.AuthRejected)
	outerMux.Handle("/", authMiddleware(protectedMux))

	var h http.Handler = outerMux
	h = middleware.CORS(s.cfg.AllowedOrigins())(h)
	h = middleware.Instrument(s.metrics)(h)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, authRateLimit, authRateWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	mux.HandleFunc("GET /api/streak", s.streakH.Get)
	mux.HandleFunc("GET /api/analytics", s.analyticsH.Get)

	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("GET /api/tasks/{id}", s.taskH.Get)
	mux.HandleFunc("PUT /api/tasks/{id}", s.taskH.Update)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	mux.HandleFunc("POST /api/goals", s.goalH.Create)
	mux.HandleFunc("GET /api/goals", s.goalH.List)
	mux.HandleFunc("PUT /api/goals/{id}", s.goalH.Update)
	mux.HandleFunc("DELETE /api/goals/{id}", s.goalH.Delete)

	mux.HandleFunc("POST /api/sessions", s.sessionH.Create)
	mux.HandleFunc("GET /api/sessions", s.sessionH.List)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.cfg.AllowedOrigins(), s.logger.With("component", "websocket")))
}
