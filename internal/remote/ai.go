package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AISuggestion fetches the reply suggestion for a conversation. Returns a
// 404 APIError when none is available.
func (c *Client) AISuggestion(ctx context.Context, conversationID int64) (*Suggestion, error) {
	var s Suggestion
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/ai/suggestion/%d", conversationID), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// AISummary fetches the AI-generated summary for a conversation.
func (c *Client) AISummary(ctx context.Context, conversationID int64) (*Summary, error) {
	var s Summary
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/ai/summary/%d", conversationID), nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ActionChoices fetches reply provenance analytics.
func (c *Client) ActionChoices(ctx context.Context) (*ActionChoicesResponse, error) {
	var out ActionChoicesResponse
	if err := c.do(ctx, http.MethodGet, "/analytics/action-choices", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardStats fetches conversation totals for the dashboard.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var out DashboardStats
	if err := c.do(ctx, http.MethodGet, "/analytics/dashboard", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settings fetches the workspace settings document as raw JSON.
func (c *Client) Settings(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateSettings merges changes into the workspace settings document.
func (c *Client) UpdateSettings(ctx context.Context, patch map[string]any) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPatch, "/settings", nil, patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}
