// Package outbox drains queued agent replies to the gateway, keeping the
// optimistic local copy reconciled with the server-confirmed message.
package outbox

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/metrics"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/store"
	intsync "github.com/tekflox/inbox/internal/sync"
	"go.uber.org/zap"
)

// MessageSender is the gateway surface the outbox needs.
type MessageSender interface {
	SendMessage(ctx context.Context, conversationID int64, text, actionType string) (*remote.Message, error)
}

// Sender drains the outbox and submits messages to the gateway.
type Sender struct {
	db     *store.DB
	sender MessageSender
	expiry *intsync.ExpiryNotifier
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewSender creates a new outbox sender.
func NewSender(db *store.DB, sender MessageSender, expiry *intsync.ExpiryNotifier, b *bus.Bus, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		db:     db,
		sender: sender,
		expiry: expiry,
		bus:    b,
		logger: logger,
	}
}

// Start begins polling the outbox for queued messages.
func (s *Sender) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
}

// Stop stops the sender loop.
func (s *Sender) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Sender) loop(ctx context.Context) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	// Expiry noticed by the poll loops halts the drain too; queued
	// entries wait for the next login.
	expired, unsub := s.bus.Subscribe(bus.KindSessionExpired, 1)
	defer unsub()

	for {
		select {
		case <-ticker.C:
			if halt := s.ProcessPending(ctx); halt {
				return
			}
		case <-expired:
			s.logger.Info("outbox drain paused until re-login")
			return
		case <-ctx.Done():
			return
		}
	}
}

// ProcessPending drains every queued outbox entry once. Returns true when
// the session expired mid-drain: remaining entries stay queued for after
// re-login and the caller must stop the loop.
func (s *Sender) ProcessPending(ctx context.Context) bool {
	pending, err := s.db.PendingOutbox()
	if err != nil {
		s.logger.Error("failed to read outbox", zap.Error(err))
		return false
	}

	for _, entry := range pending {
		if halt := s.send(ctx, entry); halt {
			return true
		}
	}
	return false
}

func (s *Sender) send(ctx context.Context, entry store.OutboxEntry) bool {
	if err := s.db.MarkOutboxSending(entry.ClientMsgID); err != nil {
		s.logger.Error("failed to mark sending", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		return false
	}

	// Optimistic insert: the message shows up locally before the gateway
	// confirms it.
	if err := s.db.InsertPending(entry.ConversationID, entry.ClientMsgID, entry.Body, entry.ActionType); err != nil {
		s.logger.Error("failed to insert pending message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}
	s.bus.Emit(bus.KindMessageUpserted, map[string]string{
		"conversation_id": strconv.FormatInt(entry.ConversationID, 10),
		"msg_id":          "pending:" + entry.ClientMsgID,
	})

	confirmed, err := s.sender.SendMessage(ctx, entry.ConversationID, entry.Body, entry.ActionType)
	if errors.Is(err, remote.ErrSessionExpired) {
		// Not a send failure: the session died, the message did not. Put
		// the entry back in the queue and escalate exactly once.
		metrics.OutboxSends.WithLabelValues("expired").Inc()
		_ = s.db.RequeueOutbox(entry.ClientMsgID)
		s.expiry.Notify()
		return true
	}
	if err != nil {
		metrics.OutboxSends.WithLabelValues("failed").Inc()
		s.logger.Error("failed to send message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
		_ = s.db.MarkOutboxFailed(entry.ClientMsgID, err.Error())
		// The failed placeholder stays visible: the agent must see the
		// failure, not silently lose the draft.
		_ = s.db.MarkPendingFailed(entry.ConversationID, entry.ClientMsgID)
		s.bus.Emit(bus.KindSendFailed, map[string]string{
			"conversation_id": strconv.FormatInt(entry.ConversationID, 10),
			"client_msg_id":   entry.ClientMsgID,
			"error":           err.Error(),
		})
		return false
	}

	serverMsgID := strconv.FormatInt(confirmed.ID, 10)
	if err := s.db.MarkOutboxSent(entry.ClientMsgID, serverMsgID); err != nil {
		s.logger.Error("failed to mark sent", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}

	sm := store.Message{
		ConversationID: entry.ConversationID,
		MsgID:          serverMsgID,
		Sender:         "agent",
		Body:           confirmed.Text,
		MessageType:    confirmed.Type,
		ActionType:     confirmed.ActionType,
		Status:         confirmed.Status,
		Timestamp:      confirmed.Timestamp.UnixMilli(),
	}
	if err := s.db.ResolvePending(entry.ClientMsgID, &sm); err != nil {
		s.logger.Error("failed to reconcile pending message", zap.Error(err), zap.String("client_msg_id", entry.ClientMsgID))
	}

	metrics.OutboxSends.WithLabelValues("sent").Inc()
	s.logger.Info("message sent",
		zap.String("client_msg_id", entry.ClientMsgID),
		zap.String("server_msg_id", serverMsgID),
		zap.Int64("conversation", entry.ConversationID))
	s.bus.Emit(bus.KindSendAck, map[string]string{
		"conversation_id": strconv.FormatInt(entry.ConversationID, 10),
		"client_msg_id":   entry.ClientMsgID,
		"server_msg_id":   serverMsgID,
	})
	return false
}
