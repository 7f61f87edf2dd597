package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Messages fetches the full message history of a conversation in
// chronological order.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/conversations/%d/messages", conversationID), nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage posts an agent reply. The gateway assigns the canonical id and
// starts the delivery status progression.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, text, actionType string) (*Message, error) {
	body := map[string]string{"text": text}
	if actionType != "" {
		body["actionType"] = actionType
	}
	var msg Message
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/conversations/%d/messages", conversationID), nil, body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// UpdateMessageStatus pushes a delivery status change for a message.
func (c *Client) UpdateMessageStatus(ctx context.Context, messageID int64, status string) (*Message, error) {
	var msg Message
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/messages/%d/status", messageID), nil,
		map[string]string{"status": status}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MessageUpdates long-polls for delivery status changes in one conversation.
// The gateway holds the request open up to timeout; the HTTP client timeout
// is stretched accordingly. Cancelling ctx aborts the held request.
func (c *Client) MessageUpdates(ctx context.Context, conversationID int64, since time.Time, timeout time.Duration) (*UpdatesResponse, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("since", since.UTC().Format(time.RFC3339Nano))
	}
	query.Set("timeout", strconv.FormatInt(timeout.Milliseconds(), 10))

	ctx, cancel := context.WithTimeout(ctx, timeout+10*time.Second)
	defer cancel()

	var resp UpdatesResponse
	if err := c.doLongPoll(ctx, fmt.Sprintf("/conversations/%d/messages/updates", conversationID), query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
