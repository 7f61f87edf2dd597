package gateway

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/tekflox/inbox/internal/remote"
	"go.uber.org/zap"
)

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	msgs := []remote.Message{}
	for _, m := range s.data.messages {
		if m.ConversationID == id {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(a, b int) bool { return msgs[a].Timestamp.Before(msgs[b].Timestamp) })
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	var body struct {
		Text       string `json:"text"`
		ActionType string `json:"actionType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if body.ActionType == "" {
		body.ActionType = "manual"
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	idx := s.data.conversationIndex(id)
	if idx < 0 {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}

	s.data.nextMessageID++
	msg := remote.Message{
		ID:             s.data.nextMessageID,
		ConversationID: id,
		Sender:         "agent",
		Text:           body.Text,
		Timestamp:      time.Now(),
		Type:           "text",
		ActionType:     body.ActionType,
		Status:         "sending",
	}
	s.data.messages = append(s.data.messages, msg)

	s.data.conversations[idx].LastMessage = body.Text
	s.data.conversations[idx].Timestamp = msg.Timestamp
	s.data.conversations[idx].Status = "answered"
	s.data.conversations[idx].Unread = false

	s.data.actionChoices = append(s.data.actionChoices, remote.ActionChoice{
		ConversationID: id,
		MessageID:      msg.ID,
		ActionType:     body.ActionType,
		Timestamp:      msg.Timestamp,
	})

	s.scheduleDelivery(msg.ID)
	s.logger.Info("message sent",
		zap.Int64("conversation", id),
		zap.Int64("message", msg.ID),
		zap.String("action_type", body.ActionType))
	writeJSON(w, http.StatusOK, msg)
}

// scheduleDelivery simulates the platform delivery progression for a sent
// message: sent after 500ms, delivered after 1.5s, read after 3-5s.
func (s *Server) scheduleDelivery(msgID int64) {
	progress := func(status string) func() {
		return func() {
			s.data.mu.Lock()
			defer s.data.mu.Unlock()
			for i := range s.data.messages {
				if s.data.messages[i].ID == msgID {
					s.data.messages[i].Status = status
					s.data.messages[i].StatusUpdatedAt = time.Now()
					return
				}
			}
		}
	}
	time.AfterFunc(500*time.Millisecond, progress("sent"))
	time.AfterFunc(1500*time.Millisecond, progress("delivered"))
	time.AfterFunc(time.Duration(3000+rand.Intn(2000))*time.Millisecond, progress("read"))
}

func (s *Server) handleUpdateMessageStatus(w http.ResponseWriter, r *http.Request) {
	msgID := pathID(r)
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch body.Status {
	case "sending", "sent", "delivered", "read":
	default:
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	for i := range s.data.messages {
		if s.data.messages[i].ID == msgID {
			s.data.messages[i].Status = body.Status
			s.data.messages[i].StatusUpdatedAt = time.Now()
			writeJSON(w, http.StatusOK, s.data.messages[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Message not found")
}

// handleMessageUpdates is the long-poll endpoint: the request is held open,
// re-checking once a second, until a message in the conversation has a
// status change after `since` or the timeout budget elapses.
func (s *Server) handleMessageUpdates(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, _ = time.Parse(time.RFC3339Nano, raw)
	}
	budget := 15 * time.Second
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			budget = time.Duration(ms) * time.Millisecond
		}
	}

	deadline := time.Now().Add(budget)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		if updated := s.updatedSince(id, since); len(updated) > 0 {
			writeJSON(w, http.StatusOK, remote.UpdatesResponse{Messages: updated, HasUpdates: true})
			return
		}
		if time.Now().After(deadline) {
			writeJSON(w, http.StatusOK, remote.UpdatesResponse{Messages: []remote.Message{}, HasUpdates: false, Timeout: true})
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) updatedSince(conversationID int64, since time.Time) []remote.Message {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	var updated []remote.Message
	for _, m := range s.data.messages {
		if m.ConversationID != conversationID {
			continue
		}
		if !m.StatusUpdatedAt.IsZero() && m.StatusUpdatedAt.After(since) {
			updated = append(updated, m)
		}
	}
	return updated
}
