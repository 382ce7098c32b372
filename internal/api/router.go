package api

import (
	"net/http"
	"time"

	"kentj-backend/internal/config"
	"kentj-backend/internal/handlers"
	"kentj-backend/internal/logger"
	"kentj-backend/pkg/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler        *handlers.AuthHandler
	ChatHandler        *handlers.ChatHandlers
	IntegrationHandler *handlers.IntegrationHandler
	ProblemsHandler    *handlers.ProblemsHandler
	SessionHandler     *handlers.SessionHandler
	HealthHandler      *handlers.HealthHandler
	Authenticator      Authenticator
	Config             *config.Config
	Logger             *zap.Logger
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(deps.Logger.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	// --- CORS Configuration ---
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	requireAuth := RequireAuth(deps.Authenticator, deps.Logger)
	optionalAuth := OptionalAuth(deps.Authenticator, deps.Logger)

	// --- Public Routes ---
	r.Get("/health", deps.HealthHandler.HandleHealth)
	r.Post("/login", deps.AuthHandler.HandleLogin)

	r.With(optionalAuth).Post("/chat", deps.ChatHandler.HandleChat)

	r.Route("/problems", func(r chi.Router) {
		r.Use(optionalAuth)
		r.Post("/", deps.ProblemsHandler.HandlePost)
		r.Get("/", deps.ProblemsHandler.HandleGet)
	})

	r.Get("/integration-status", deps.IntegrationHandler.HandleStatus)
	r.Get("/integration-config", deps.IntegrationHandler.HandleGetConfig)
	r.Post("/integration-config", deps.IntegrationHandler.HandleUpdateConfig)
	r.With(RequireBearerHeader).Post("/integration-test", deps.IntegrationHandler.HandleTest)

	// --- Authenticated Routes ---
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", deps.AuthHandler.HandleMe)
		r.Put("/me/profile", deps.AuthHandler.HandleUpdateProfile)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", deps.SessionHandler.HandleCreate)
			r.Get("/current", deps.SessionHandler.HandleCurrent)
			r.Post("/current/messages", deps.SessionHandler.HandleAddMessage)
			r.Post("/current/end", deps.SessionHandler.HandleEnd)
			r.Get("/history", deps.SessionHandler.HandleHistory)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, http.StatusNotFound, "Not found")
	})

	return r
}
