package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/tekflox/inbox/internal/bus"
	"go.uber.org/zap"
)

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 200
	}

	msgs, err := s.db.ListMessages(pathID(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]messageView, 0, len(msgs))
	for i := range msgs {
		views = append(views, toMessageView(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleSendMessage queues an outgoing reply. The response carries the
// correlation id and the optimistic placeholder; the outbox sender reconciles
// it with the gateway asynchronously.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
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

	id := pathID(r)
	conv, err := s.db.GetConversation(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	clientMsgID := uuid.NewString()
	if err := s.db.QueueOutbox(clientMsgID, id, body.Text, body.ActionType); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.InsertPending(id, clientMsgID, body.Text, body.ActionType); err != nil {
		s.logger.Error("insert pending message", zap.Error(err), zap.String("client_msg_id", clientMsgID))
	}
	s.bus.Emit(bus.KindMessageUpserted, map[string]string{
		"conversation_id": strconv.FormatInt(id, 10),
		"msg_id":          "pending:" + clientMsgID,
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"clientMsgId": clientMsgID,
		"status":      "queued",
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	conversationID, _ := strconv.ParseInt(r.URL.Query().Get("conversation_id"), 10, 64)

	results, err := s.db.SearchMessages(q, conversationID, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type searchView struct {
		Message messageView `json:"message"`
		Snippet string      `json:"snippet"`
	}
	views := make([]searchView, 0, len(results))
	for i := range results {
		views = append(views, searchView{
			Message: toMessageView(&results[i].Message),
			Snippet: results[i].Snippet,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
