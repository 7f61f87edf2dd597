package bus

import "time"

// Kind identifies a class of domain event. Kinds are dot-separated so
// subscribers can filter on a namespace prefix ("sync." matches every
// sync event).
type Kind = string

const (
	// Session lifecycle.
	KindStatusChanged  Kind = "session.status_changed"
	KindSessionExpired Kind = "session.expired"

	// Sync engine.
	KindPollCompleted Kind = "sync.poll_completed"
	KindSnapshot      Kind = "sync.snapshot"

	// Store mutations surfaced to UI frontends.
	KindConversationUpdated Kind = "conversation.updated"
	KindMessageUpserted     Kind = "message.upserted"
	KindMessageStatus       Kind = "message.status_changed"

	// Outbox.
	KindSendAck    Kind = "message.send_ack"
	KindSendFailed Kind = "message.send_failed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   any
}
