package remote

import (
	"encoding/json"
	"time"
)

// User is the authenticated agent account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Contact identifies the customer side of a conversation.
type Contact struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Conversation is the server-side conversation record. When returned by the
// conversations poll it carries only messages newer than the requested
// cursor in Messages.
type Conversation struct {
	ID          int64     `json:"id"`
	Platform    string    `json:"platform"`
	Contact     Contact   `json:"contact"`
	LastMessage string    `json:"lastMessage"`
	Timestamp   time.Time `json:"timestamp"`
	Unread      bool      `json:"unread"`
	Status      string    `json:"status"`
	CustomerID  int64     `json:"customerId"`
	OrderID     int64     `json:"orderId"`
	WPAccountID int64     `json:"wpAccountId"`
	Type        string    `json:"type"`
	PostID      string    `json:"postId,omitempty"`
	Summary     string    `json:"summary"`
	Messages    []Message `json:"messages,omitempty"`
}

// Message is the server-side message record.
type Message struct {
	ID              int64     `json:"id"`
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

// ConversationsResponse is the poll payload: changed conversations plus the
// server's current high-water message id.
type ConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	LastMessageID int64          `json:"last_message_id"`
}

// UpdatesResponse is the long-poll payload for delivery status changes.
type UpdatesResponse struct {
	Messages   []Message `json:"messages"`
	HasUpdates bool      `json:"hasUpdates"`
	Timeout    bool      `json:"timeout,omitempty"`
}

// Metadata holds the agent annotations attached to a conversation.
type Metadata struct {
	AIInsights  json.RawMessage `json:"aiInsights"`
	ManualNotes string          `json:"manualNotes"`
	Tags        []string        `json:"tags"`
	Labels      json.RawMessage `json:"labels"`
}

// Suggestion is an AI reply suggestion for a pending conversation.
type Suggestion struct {
	Original   string  `json:"original"`
	Suggestion string  `json:"suggestion"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// Summary is an AI conversation summary.
type Summary struct {
	ConversationID int64     `json:"conversationId"`
	Summary        string    `json:"summary"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// Customer is a store customer record.
type Customer struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar"`
}

// OrderItem is a line item within an order.
type OrderItem struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is a store order record.
type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"orderNumber"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerID    int64       `json:"customerId"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	Date          string      `json:"date"`
	Items         []OrderItem `json:"items"`
}

// WordPressAccount is a linked site account record.
type WordPressAccount struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Post is a social media post that comment conversations attach to.
type Post struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
}

// ActionStats aggregates reply provenance counts.
type ActionStats struct {
	Total      int `json:"total"`
	AIAccepted int `json:"aiAccepted"`
	AIEdited   int `json:"aiEdited"`
	Manual     int `json:"manual"`
}

// ActionChoice records one agent reply decision.
type ActionChoice struct {
	ConversationID int64     `json:"conversationId"`
	MessageID      int64     `json:"messageId"`
	ActionType     string    `json:"actionType"`
	Timestamp      time.Time `json:"timestamp"`
}

// ActionChoicesResponse is the action-choices analytics payload.
type ActionChoicesResponse struct {
	Stats   ActionStats    `json:"stats"`
	Choices []ActionChoice `json:"choices"`
}

// PlatformCounts breaks conversation totals down per platform.
type PlatformCounts struct {
	Instagram int `json:"instagram"`
	Facebook  int `json:"facebook"`
	WhatsApp  int `json:"whatsapp"`
}

// DashboardStats is the dashboard analytics payload.
type DashboardStats struct {
	TotalConversations int            `json:"totalConversations"`
	Pending            int            `json:"pending"`
	Answered           int            `json:"answered"`
	Resolved           int            `json:"resolved"`
	ByPlatform         PlatformCounts `json:"byPlatform"`
}
