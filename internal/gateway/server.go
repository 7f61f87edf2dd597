// Package gateway implements the mock upstream inbox API the daemon syncs
// against: seeded conversations, JWT auth, long-poll delivery updates and a
// simulated delivery status progression for sent messages.
package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Config holds gateway server settings.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    *zap.Logger
}

// Server is the mock upstream API server.
type Server struct {
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
	data      *dataset
	router    chi.Router
}

// New creates a gateway server with seeded data.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	s := &Server{
		jwtSecret: cfg.JWTSecret,
		tokenTTL:  cfg.TokenTTL,
		logger:    cfg.Logger,
		data:      seedData(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(300, time.Minute))

	r.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.auth)

		r.Get("/api/auth/me", s.handleMe)
		r.Post("/api/auth/logout", s.handleLogout)

		r.Get("/api/conversations", s.handleConversations)
		r.Get("/api/conversations/{id}", s.handleConversation)
		r.Patch("/api/conversations/{id}", s.handleUpdateConversation)
		r.Post("/api/conversations/{id}/link", s.handleLinkConversation)
		r.Get("/api/conversations/{id}/metadata", s.handleMetadata)
		r.Patch("/api/conversations/{id}/metadata", s.handleUpdateMetadata)
		r.Get("/api/conversations/{id}/messages", s.handleMessages)
		r.Post("/api/conversations/{id}/messages", s.handleSendMessage)
		r.Get("/api/conversations/{id}/messages/updates", s.handleMessageUpdates)
		r.Patch("/api/messages/{id}/status", s.handleUpdateMessageStatus)

		r.Get("/api/ai/suggestion/{id}", s.handleSuggestion)
		r.Get("/api/ai/summary/{id}", s.handleSummary)

		r.Get("/api/customers", s.handleCustomers)
		r.Get("/api/customers/search", s.handleSearchCustomers)
		r.Get("/api/customers/{id}/orders", s.handleCustomerOrders)
		r.Get("/api/orders", s.handleOrders)
		r.Get("/api/search/orders", s.handleSearchOrders)
		r.Get("/api/wordpress-accounts", s.handleAccounts)
		r.Get("/api/posts", s.handlePosts)
		r.Get("/api/posts/{id}", s.handlePost)

		r.Get("/api/analytics/action-choices", s.handleActionChoices)
		r.Get("/api/analytics/dashboard", s.handleDashboard)
		r.Get("/api/settings", s.handleSettings)
		r.Patch("/api/settings", s.handleUpdateSettings)
	})

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
