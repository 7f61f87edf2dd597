package gateway

import (
	"net/http"
	"time"

	"github.com/tekflox/inbox/internal/remote"
)

func (s *Server) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	if sug, ok := s.data.suggestions[id]; ok {
		writeJSON(w, http.StatusOK, sug)
		return
	}
	writeError(w, http.StatusNotFound, "No suggestion available")
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	idx := s.data.conversationIndex(id)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, remote.Summary{
		ConversationID: id,
		Summary:        s.data.conversations[idx].Summary,
		GeneratedAt:    time.Now(),
	})
}
