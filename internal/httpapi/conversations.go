package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/store"
	"go.uber.org/zap"
)

// conversationView is the local API shape for a synced conversation. Field
// names follow the gateway wire format so frontends can share decoders.
type conversationView struct {
	ID          int64       `json:"id"`
	Platform    string      `json:"platform"`
	Contact     contactView `json:"contact"`
	LastMessage string      `json:"lastMessage"`
	Timestamp   time.Time   `json:"timestamp"`
	Unread      bool        `json:"unread"`
	Status      string      `json:"status"`
	CustomerID  int64       `json:"customerId"`
	OrderID     int64       `json:"orderId"`
	WPAccountID int64       `json:"wpAccountId"`
	Type        string      `json:"type"`
	PostID      string      `json:"postId,omitempty"`
	Summary     string      `json:"summary,omitempty"`
}

type contactView struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type messageView struct {
	MsgID           string    `json:"id"`
	ConversationID  int64     `json:"conversationId"`
	Sender          string    `json:"sender"`
	Text            string    `json:"text"`
	Image           string    `json:"image,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Type            string    `json:"type"`
	ActionType      string    `json:"actionType,omitempty"`
	Status          string    `json:"status"`
	StatusUpdatedAt time.Time `json:"statusUpdatedAt,omitempty"`
}

type metadataView struct {
	AIInsights  json.RawMessage `json:"aiInsights"`
	ManualNotes string          `json:"manualNotes"`
	Tags        []string        `json:"tags"`
	Labels      json.RawMessage `json:"labels"`
}

func toConversationView(c *store.Conversation) conversationView {
	return conversationView{
		ID:       c.ID,
		Platform: c.Platform,
		Contact: contactView{
			Name:     c.ContactName,
			Username: c.ContactHandle,
			Avatar:   c.ContactAvatar,
		},
		LastMessage: c.LastMessage,
		Timestamp:   time.UnixMilli(c.Timestamp),
		Unread:      c.Unread,
		Status:      c.Status,
		CustomerID:  c.CustomerID,
		OrderID:     c.OrderID,
		WPAccountID: c.WPAccountID,
		Type:        c.ConvType,
		PostID:      c.PostID,
		Summary:     c.Summary,
	}
}

func toMessageView(m *store.Message) messageView {
	v := messageView{
		MsgID:          m.MsgID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Text:           m.Body,
		Image:          m.ImageURL,
		Timestamp:      time.UnixMilli(m.Timestamp),
		Type:           m.MessageType,
		ActionType:     m.ActionType,
		Status:         m.Status,
	}
	if m.StatusUpdated > 0 {
		v.StatusUpdatedAt = time.UnixMilli(m.StatusUpdated)
	}
	return v
}

func toMetadataView(m *store.Metadata) metadataView {
	v := metadataView{
		ManualNotes: m.Notes,
		Tags:        m.Tags,
		AIInsights:  json.RawMessage(m.AIInsights),
		Labels:      json.RawMessage(m.Labels),
	}
	if len(v.AIInsights) == 0 {
		v.AIInsights = json.RawMessage(`[]`)
	}
	if len(v.Labels) == 0 {
		v.Labels = json.RawMessage(`[]`)
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	return v
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = 100
	}

	convs, err := s.db.ListConversations(q.Get("platform"), q.Get("status"), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]conversationView, 0, len(convs))
	for i := range convs {
		views = append(views, toConversationView(&convs[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.db.GetConversation(pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if conv == nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	writeJSON(w, http.StatusOK, toConversationView(conv))
}

// handleUpdateConversation forwards a status/unread patch to the gateway and
// mirrors the confirmed record into the local store.
func (s *Server) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	id := pathID(r)
	updated, err := s.client.UpdateConversation(r.Context(), id, patch)
	if err != nil {
		proxyError(w, err)
		return
	}

	sc := toStoreConversation(updated)
	if err := s.db.UpsertConversation(&sc); err != nil {
		s.logger.Error("mirror conversation patch", zap.Error(err), zap.Int64("conversation", id))
	}
	writeJSON(w, http.StatusOK, toConversationView(&sc))
}

func (s *Server) handleLinkConversation(w http.ResponseWriter, r *http.Request) {
	var link remote.LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&link); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	id := pathID(r)
	updated, err := s.client.LinkConversation(r.Context(), id, link)
	if err != nil {
		proxyError(w, err)
		return
	}

	sc := toStoreConversation(updated)
	if err := s.db.UpsertConversation(&sc); err != nil {
		s.logger.Error("mirror conversation link", zap.Error(err), zap.Int64("conversation", id))
	}
	writeJSON(w, http.StatusOK, toConversationView(&sc))
}

// handleMetadata reads annotations through the cache: the gateway copy wins
// when reachable and refreshes the store, otherwise the cached row serves.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if m, err := s.client.Metadata(r.Context(), id); err == nil {
		cached := toStoreMetadata(id, m)
		if err := s.db.SaveMetadata(&cached); err != nil {
			s.logger.Error("cache metadata", zap.Error(err), zap.Int64("conversation", id))
		}
		writeJSON(w, http.StatusOK, toMetadataView(&cached))
		return
	}

	cached, err := s.db.GetMetadata(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMetadataView(cached))
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	id := pathID(r)
	m, err := s.client.UpdateMetadata(r.Context(), id, patch)
	if err != nil {
		proxyError(w, err)
		return
	}

	cached := toStoreMetadata(id, m)
	if err := s.db.SaveMetadata(&cached); err != nil {
		s.logger.Error("cache metadata", zap.Error(err), zap.Int64("conversation", id))
	}
	writeJSON(w, http.StatusOK, toMetadataView(&cached))
}

func toStoreConversation(rc *remote.Conversation) store.Conversation {
	return store.Conversation{
		ID:            rc.ID,
		Platform:      rc.Platform,
		ContactName:   rc.Contact.Name,
		ContactHandle: rc.Contact.Username,
		ContactAvatar: rc.Contact.Avatar,
		LastMessage:   rc.LastMessage,
		Timestamp:     rc.Timestamp.UnixMilli(),
		Unread:        rc.Unread,
		Status:        rc.Status,
		CustomerID:    rc.CustomerID,
		OrderID:       rc.OrderID,
		WPAccountID:   rc.WPAccountID,
		ConvType:      rc.Type,
		PostID:        rc.PostID,
		Summary:       rc.Summary,
	}
}

func toStoreMetadata(id int64, m *remote.Metadata) store.Metadata {
	sm := store.Metadata{
		ConversationID: id,
		Notes:          m.ManualNotes,
		Tags:           m.Tags,
	}
	if len(m.AIInsights) > 0 {
		sm.AIInsights = string(m.AIInsights)
	}
	if len(m.Labels) > 0 {
		sm.Labels = string(m.Labels)
	}
	return sm
}
