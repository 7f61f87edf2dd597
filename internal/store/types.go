package store

// Conversation represents a synced support conversation.
type Conversation struct {
	ID            int64
	Platform      string // whatsapp, instagram, facebook
	ContactName   string
	ContactHandle string
	ContactAvatar string
	LastMessage   string
	Timestamp     int64 // unix milliseconds
	Unread        bool
	Status        string // pending, resolved
	CustomerID    int64
	OrderID       int64
	WPAccountID   int64
	ConvType      string // dm, comment
	PostID        string
	Summary       string
}

// Message represents a synced message within a conversation.
type Message struct {
	ID             int64
	ConversationID int64
	MsgID          string
	Sender         string // customer, agent
	Body           string
	ImageURL       string
	MessageType    string // text, image
	ActionType     string
	Status         string // pending, sent, delivered, read, failed
	Timestamp      int64
	StatusUpdated  int64
}

// OutboxEntry represents an outgoing message send attempt.
type OutboxEntry struct {
	ID             int64
	ClientMsgID    string
	ConversationID int64
	Body           string
	ActionType     string
	Status         string // queued, sending, sent, failed
	ErrorMessage   string
	ServerMsgID    string
}

// Metadata holds agent-authored conversation annotations.
type Metadata struct {
	ConversationID int64
	Notes          string
	Tags           []string
	Labels         string // raw JSON, label objects with text and color
	AIInsights     string // raw JSON, AI chat transcript
}

// SearchResult holds a message with a search snippet.
type SearchResult struct {
	Message Message
	Snippet string
}
