package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/tekflox/inbox/internal/remote"
	"go.uber.org/zap"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "Usuário e senha são obrigatórios")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	for _, u := range s.data.users {
		if u.Username == body.Username && u.Password == body.Password {
			token, err := s.issueToken(u)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "token signing failed")
				return
			}
			s.logger.Info("login", zap.String("username", u.Username))
			writeJSON(w, http.StatusOK, remote.LoginResponse{Token: token, User: u.User})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Usuário ou senha inválidos")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	for _, u := range s.data.users {
		if u.Username == claims.Username {
			writeJSON(w, http.StatusOK, map[string]remote.User{"user": u.User})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "Token inválido")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	s.logger.Info("logout", zap.String("username", claims.Username))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado com sucesso"})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	platform := r.URL.Query().Get("platform")
	statusFilter := r.URL.Query().Get("status")
	lastMessageID, _ := strconv.ParseInt(r.URL.Query().Get("last_message_id"), 10, 64)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	var filtered []remote.Conversation
	for _, c := range s.data.conversations {
		if platform != "" && c.Platform != platform {
			continue
		}
		if statusFilter != "" && c.Status != statusFilter {
			continue
		}
		filtered = append(filtered, c)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.After(filtered[j].Timestamp)
	})

	// With a cursor, only messages past it are included; without one the
	// full history ships (first load).
	maxID := int64(0)
	for i := range filtered {
		var msgs []remote.Message
		for _, m := range s.data.messages {
			if m.ConversationID != filtered[i].ID {
				continue
			}
			if lastMessageID > 0 && m.ID <= lastMessageID {
				continue
			}
			msgs = append(msgs, m)
		}
		sort.Slice(msgs, func(a, b int) bool { return msgs[a].Timestamp.Before(msgs[b].Timestamp) })
		filtered[i].Messages = msgs
	}
	for _, m := range s.data.messages {
		if m.ID > maxID {
			maxID = m.ID
		}
	}

	writeJSON(w, http.StatusOK, remote.ConversationsResponse{
		Conversations: filtered,
		LastMessageID: maxID,
	})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	idx := s.data.conversationIndex(pathID(r))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, s.data.conversations[idx])
}

func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		Status *string `json:"status"`
		Unread *bool   `json:"unread"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	idx := s.data.conversationIndex(pathID(r))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if patch.Status != nil {
		s.data.conversations[idx].Status = *patch.Status
	}
	if patch.Unread != nil {
		s.data.conversations[idx].Unread = *patch.Unread
	}
	writeJSON(w, http.StatusOK, s.data.conversations[idx])
}

func (s *Server) handleLinkConversation(w http.ResponseWriter, r *http.Request) {
	var link remote.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	idx := s.data.conversationIndex(pathID(r))
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if link.CustomerID != nil {
		s.data.conversations[idx].CustomerID = *link.CustomerID
	}
	if link.OrderID != nil {
		s.data.conversations[idx].OrderID = *link.OrderID
	}
	if link.WPAccountID != nil {
		s.data.conversations[idx].WPAccountID = *link.WPAccountID
	}
	writeJSON(w, http.StatusOK, s.data.conversations[idx])
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	m := s.data.emptyMetadata(pathID(r))
	writeJSON(w, http.StatusOK, map[string]*remote.Metadata{"data": m})
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var patch struct {
		AIInsights  json.RawMessage `json:"aiInsights"`
		ManualNotes *string         `json:"manualNotes"`
		Tags        []string        `json:"tags"`
		Labels      json.RawMessage `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	m := s.data.emptyMetadata(pathID(r))
	if patch.AIInsights != nil {
		m.AIInsights = patch.AIInsights
	}
	if patch.ManualNotes != nil {
		m.ManualNotes = *patch.ManualNotes
	}
	if patch.Tags != nil {
		m.Tags = patch.Tags
	}
	if patch.Labels != nil {
		m.Labels = patch.Labels
	}
	writeJSON(w, http.StatusOK, map[string]*remote.Metadata{"data": m})
}
