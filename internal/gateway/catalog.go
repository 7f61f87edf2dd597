package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tekflox/inbox/internal/remote"
)

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	writeJSON(w, http.StatusOK, s.data.customers)
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	results := []remote.Customer{}
	for _, c := range s.data.customers {
		if q == "" ||
			strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(c.Phone, q) {
			results = append(results, c)
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	orders := []remote.Order{}
	for _, o := range s.data.orders {
		if o.CustomerID == id {
			orders = append(orders, o)
		}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	writeJSON(w, http.StatusOK, s.data.orders)
}

// handleSearchOrders matches order number, customer name and email, limited
// to orders from the last 45 days and at most 10 results, newest first.
func (s *Server) handleSearchOrders(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	cutoff := time.Now().AddDate(0, 0, -45)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	results := []remote.Order{}
	for _, o := range s.data.orders {
		date, err := time.Parse(time.RFC3339, o.Date)
		if err != nil || date.Before(cutoff) {
			continue
		}
		if q == "" ||
			strings.Contains(strings.ToLower(o.OrderNumber), q) ||
			strings.Contains(strings.ToLower(o.CustomerName), q) ||
			strings.Contains(strings.ToLower(o.CustomerEmail), q) {
			results = append(results, o)
		}
	}
	sort.Slice(results, func(a, b int) bool { return results[a].Date > results[b].Date })
	if len(results) > 10 {
		results = results[:10]
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	writeJSON(w, http.StatusOK, s.data.accounts)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	posts := []remote.Post{}
	for _, p := range s.data.posts {
		if platform == "" || p.Platform == platform {
			posts = append(posts, p)
		}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	for _, p := range s.data.posts {
		if p.ID == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Post not found")
}

func (s *Server) handleActionChoices(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	stats := remote.ActionStats{Total: len(s.data.actionChoices)}
	for _, c := range s.data.actionChoices {
		switch c.ActionType {
		case "ai_accepted":
			stats.AIAccepted++
		case "ai_edited":
			stats.AIEdited++
		default:
			stats.Manual++
		}
	}
	writeJSON(w, http.StatusOK, remote.ActionChoicesResponse{Stats: stats, Choices: s.data.actionChoices})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	stats := remote.DashboardStats{TotalConversations: len(s.data.conversations)}
	for _, c := range s.data.conversations {
		switch c.Status {
		case "pending":
			stats.Pending++
		case "answered":
			stats.Answered++
		case "resolved":
			stats.Resolved++
		}
		switch c.Platform {
		case "instagram":
			stats.ByPlatform.Instagram++
		case "facebook":
			stats.ByPlatform.Facebook++
		case "whatsapp":
			stats.ByPlatform.WhatsApp++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	writeJSON(w, http.StatusOK, s.data.settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	for k, v := range patch {
		s.data.settings[k] = v
	}
	writeJSON(w, http.StatusOK, s.data.settings)
}
