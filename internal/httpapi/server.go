// Package httpapi exposes the daemon's local control surface: session
// management, the synced conversation store, outgoing message queueing, and
// an SSE bridge that forwards bus events to UI frontends.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/llm"
	"github.com/tekflox/inbox/internal/metrics"
	"github.com/tekflox/inbox/internal/outbox"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/status"
	"github.com/tekflox/inbox/internal/store"
	intsync "github.com/tekflox/inbox/internal/sync"
	"go.uber.org/zap"
)

// Config holds local API settings.
type Config struct {
	Profile    string
	GatewayURL string
}

// Server is the daemon's local HTTP API.
type Server struct {
	cfg       Config
	db        *store.DB
	bus       *bus.Bus
	machine   *status.Machine
	client    *remote.Client
	poller    *intsync.Poller
	watcher   *intsync.Watcher
	sender    *outbox.Sender
	suggester *llm.Suggester
	logger    *zap.Logger

	startedAt time.Time
	router    chi.Router
}

// New creates the local API server.
func New(cfg Config, db *store.DB, b *bus.Bus, machine *status.Machine, client *remote.Client, poller *intsync.Poller, watcher *intsync.Watcher, sender *outbox.Sender, suggester *llm.Suggester, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		db:        db,
		bus:       b,
		machine:   machine,
		client:    client,
		poller:    poller,
		watcher:   watcher,
		sender:    sender,
		suggester: suggester,
		logger:    logger,
		startedAt: time.Now(),
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
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(requestMetrics)

	r.Get("/api/status", s.handleStatus)
	r.Post("/api/session/login", s.handleLogin)
	r.Post("/api/session/logout", s.handleLogout)
	r.Post("/api/poll", s.handlePollNow)

	r.Get("/api/conversations", s.handleConversations)
	r.Get("/api/conversations/{id}", s.handleConversation)
	r.Patch("/api/conversations/{id}", s.handleUpdateConversation)
	r.Post("/api/conversations/{id}/link", s.handleLinkConversation)
	r.Get("/api/conversations/{id}/metadata", s.handleMetadata)
	r.Patch("/api/conversations/{id}/metadata", s.handleUpdateMetadata)
	r.Get("/api/conversations/{id}/messages", s.handleMessages)
	r.Post("/api/conversations/{id}/messages", s.handleSendMessage)
	r.Post("/api/conversations/{id}/watch", s.handleWatch)
	r.Delete("/api/watch", s.handleUnwatch)

	r.Get("/api/search", s.handleSearch)
	r.Get("/api/ai/suggestion/{id}", s.handleSuggestion)
	r.Get("/api/ai/summary/{id}", s.handleSummary)

	r.Get("/api/customers/search", s.handleSearchCustomers)
	r.Get("/api/search/orders", s.handleSearchOrders)
	r.Get("/api/analytics/dashboard", s.handleDashboard)

	r.Get("/api/events", s.handleEvents)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// proxyError maps a remote call failure onto the local response: gateway
// rejections keep their status code, transport failures become 502.
func proxyError(w http.ResponseWriter, err error) {
	if errors.Is(err, remote.ErrSessionExpired) {
		writeError(w, http.StatusUnauthorized, "session expired")
		return
	}
	var apiErr *remote.APIError
	if errors.As(err, &apiErr) {
		writeError(w, apiErr.StatusCode, apiErr.Message)
		return
	}
	writeError(w, http.StatusBadGateway, err.Error())
}
