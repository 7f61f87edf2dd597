package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ConversationsQuery filters the conversations poll.
type ConversationsQuery struct {
	Platform      string
	Status        string
	LastMessageID int64
}

// Conversations fetches conversations changed since the cursor. With
// LastMessageID zero the response carries full message history (first load).
func (c *Client) Conversations(ctx context.Context, q ConversationsQuery) (*ConversationsResponse, error) {
	query := url.Values{}
	if q.Platform != "" {
		query.Set("platform", q.Platform)
	}
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	if q.LastMessageID > 0 {
		query.Set("last_message_id", strconv.FormatInt(q.LastMessageID, 10))
	}
	var resp ConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Conversation fetches one conversation enriched with linked customer data.
func (c *Client) Conversation(ctx context.Context, id int64) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%d", id), nil, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateConversation patches top-level conversation fields (status, unread).
func (c *Client) UpdateConversation(ctx context.Context, id int64, patch map[string]any) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/conversations/%d", id), nil, patch, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// LinkRequest associates a conversation with commerce records. Nil fields
// are left untouched server-side.
type LinkRequest struct {
	CustomerID  *int64 `json:"customerId,omitempty"`
	OrderID     *int64 `json:"orderId,omitempty"`
	WPAccountID *int64 `json:"wpAccountId,omitempty"`
}

// LinkConversation links a conversation to a customer, order or account.
func (c *Client) LinkConversation(ctx context.Context, id int64, link LinkRequest) (*Conversation, error) {
	var conv Conversation
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/link", id), nil, link, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Metadata fetches the annotations for a conversation. The gateway creates
// an empty record on first read.
func (c *Client) Metadata(ctx context.Context, id int64) (*Metadata, error) {
	var resp struct {
		Data Metadata `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%d/metadata", id), nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// UpdateMetadata merges annotation changes into a conversation's metadata.
func (c *Client) UpdateMetadata(ctx context.Context, id int64, patch map[string]any) (*Metadata, error) {
	var resp struct {
		Data Metadata `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/conversations/%d/metadata", id), nil, patch, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
