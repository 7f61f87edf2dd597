package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// handleSuggestion prefers local generation when an OpenAI key is configured
// and falls back to the gateway's canned suggestion otherwise.
func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if s.suggester != nil && s.suggester.Enabled() {
		conv, err := s.db.GetConversation(id)
		if err == nil && conv != nil {
			msgs, err := s.db.ListMessages(id, 50)
			if err == nil {
				sug, err := s.suggester.Suggest(r.Context(), conv, msgs)
				if err == nil {
					writeJSON(w, http.StatusOK, sug)
					return
				}
				s.logger.Warn("local suggestion failed", zap.Error(err), zap.Int64("conversation", id))
			}
		}
	}

	sug, err := s.client.AISuggestion(r.Context(), id)
	if err != nil {
		proxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if s.suggester != nil && s.suggester.Enabled() {
		conv, err := s.db.GetConversation(id)
		if err == nil && conv != nil {
			msgs, err := s.db.ListMessages(id, 100)
			if err == nil {
				text, err := s.suggester.Summarize(r.Context(), conv, msgs)
				if err == nil {
					writeJSON(w, http.StatusOK, map[string]any{
						"conversationId": id,
						"summary":        text,
					})
					return
				}
				s.logger.Warn("local summary failed", zap.Error(err), zap.Int64("conversation", id))
			}
		}
	}

	summary, err := s.client.AISummary(r.Context(), id)
	if err != nil {
		proxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSearchCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.client.SearchCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		proxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) handleSearchOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.client.SearchOrders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		proxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.client.DashboardStats(r.Context())
	if err != nil {
		proxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
