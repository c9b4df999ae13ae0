package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"siachat-backend/internal/config"
	"siachat-backend/internal/handlers"
	"siachat-backend/pkg/zlog"
)

// RouterDependencies holds all the dependencies required by the router
// setup, primarily handlers and configuration.
type RouterDependencies struct {
	ChatHandler  *handlers.ChatHandlers
	StatsHandler *handlers.StatsHandlers
	Config       *config.Config
}

// NewRouter creates and configures the main Chi router for the
// application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// The chat surface is public: the widget talks to it directly and
	// sessions are scoped by unguessable UUIDs.
	if deps.ChatHandler != nil {
		r.Route("/v1/chat", func(r chi.Router) {
			r.Post("/", deps.ChatHandler.HandleChat)
			r.Post("/update-info", deps.ChatHandler.HandleUpdateInfo)
			r.Get("/session/{sessionID}", deps.ChatHandler.HandleGetSession)
			r.Post("/session/reset", deps.ChatHandler.HandleResetSession)
			r.Post("/session/close", deps.ChatHandler.HandleCloseSession)
		})
	} else {
		zlog.Warn("ChatHandler dependency is nil, skipping /v1/chat routes")
	}

	// --- Authenticated Routes (JWT Required) ---
	if deps.StatsHandler != nil {
		r.Route("/v1/stats", func(r chi.Router) {
			r.Use(JwtAuthMiddleware(deps.Config.AdminJWTSecret))
			r.Get("/", deps.StatsHandler.HandleGetStats)
		})
	} else {
		zlog.Warn("StatsHandler dependency is nil, skipping /v1/stats routes")
	}

	return r
}
