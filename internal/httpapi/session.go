package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/tekflox/inbox/internal/profile"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/status"
	"go.uber.org/zap"
)

type statusResponse struct {
	Profile       string        `json:"profile"`
	State         string        `json:"state"`
	UptimeMS      int64         `json:"uptime_ms"`
	Cursor        int64         `json:"cursor"`
	Conversations int64         `json:"conversations"`
	Messages      int64         `json:"messages"`
	Watching      int64         `json:"watching,omitempty"`
	User          *profile.User `json:"user,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Profile:  s.cfg.Profile,
		State:    string(s.machine.Current()),
		UptimeMS: time.Since(s.startedAt).Milliseconds(),
		Watching: s.watcher.Current(),
	}
	if cursor, err := s.db.Cursor(); err == nil {
		resp.Cursor = cursor
	}
	if n, err := s.db.ConversationCount(); err == nil {
		resp.Conversations = n
	}
	if n, err := s.db.MessageCount(); err == nil {
		resp.Messages = n
	}
	if creds, err := profile.LoadCredentials(s.cfg.Profile); err == nil && creds != nil {
		resp.User = &creds.User
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := s.client.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, remote.ErrSessionExpired) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			writeError(w, apiErr.StatusCode, apiErr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	creds := &profile.Credentials{
		Token:      resp.Token,
		GatewayURL: s.cfg.GatewayURL,
		User: profile.User{
			ID:       resp.User.ID,
			Username: resp.User.Username,
			Email:    resp.User.Email,
			Name:     resp.User.Name,
			Role:     resp.User.Role,
		},
	}
	if err := profile.SaveCredentials(s.cfg.Profile, creds); err != nil {
		s.logger.Error("persist credentials", zap.Error(err))
	}

	if err := s.machine.Transition(status.Connecting); err != nil {
		s.logger.Warn("transition after login", zap.Error(err))
	}

	// Restart the sync loops: they halt when a session expires, and a
	// fresh login is the only way back.
	s.poller.Stop()
	s.poller.Start(context.Background())
	s.sender.Stop()
	s.sender.Start(context.Background())

	s.logger.Info("session established", zap.String("username", resp.User.Username))
	writeJSON(w, http.StatusOK, map[string]any{"user": resp.User})
}

// handleLogout tears the session down: loops stopped, token cleared, cursor
// reset so the next login starts with a full snapshot.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.poller.Stop()
	s.watcher.Stop()
	s.sender.Stop()

	if err := s.client.Logout(r.Context()); err != nil {
		s.logger.Warn("gateway logout", zap.Error(err))
	}
	s.client.SetToken("")

	if err := profile.ClearCredentials(s.cfg.Profile); err != nil {
		s.logger.Error("clear credentials", zap.Error(err))
	}
	if err := s.db.SetSyncState("last_message_id", "0"); err != nil {
		s.logger.Error("reset cursor", zap.Error(err))
	}

	if err := s.machine.Transition(status.AuthRequired); err != nil {
		s.logger.Warn("transition after logout", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handlePollNow(w http.ResponseWriter, r *http.Request) {
	s.poller.PollNow()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid conversation id")
		return
	}
	// The watch loop outlives this request.
	s.watcher.Watch(context.Background(), id)
	writeJSON(w, http.StatusOK, map[string]int64{"watching": id})
}

func (s *Server) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	s.watcher.Stop()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
