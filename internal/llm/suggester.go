// Package llm generates reply suggestions and conversation summaries.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/tekflox/inbox/internal/store"
)

// Suggestion is a generated reply proposal for a pending conversation.
type Suggestion struct {
	Original   string  `json:"original"`
	Suggestion string  `json:"suggestion"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// Suggester builds reply suggestions from conversation history. Without an
// API key it degrades to the gateway-provided suggestions only.
type Suggester struct {
	client *openai.Client
	model  string
	tone   string
}

// NewSuggester creates a suggester. An empty apiKey disables generation.
func NewSuggester(apiKey, tone string) *Suggester {
	s := &Suggester{model: openai.GPT4oMini, tone: tone}
	if s.tone == "" {
		s.tone = "friendly"
	}
	if apiKey != "" {
		s.client = openai.NewClient(apiKey)
	}
	return s
}

// Enabled reports whether local generation is configured.
func (s *Suggester) Enabled() bool {
	return s.client != nil
}

// Suggest generates a reply suggestion for the latest customer message.
func (s *Suggester) Suggest(ctx context.Context, conv *store.Conversation, msgs []store.Message) (*Suggestion, error) {
	if s.client == nil {
		return nil, fmt.Errorf("suggestion generation not configured")
	}

	original := lastCustomerText(msgs)
	if original == "" {
		return nil, fmt.Errorf("no customer message to reply to")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(
					"You are a customer support agent for an online store. "+
						"Write a short reply in a %s tone, in the customer's language. "+
						"Reply with the message text only.", s.tone),
			},
			{Role: openai.ChatMessageRoleUser, Content: transcript(conv, msgs)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	return &Suggestion{
		Original:   original,
		Suggestion: strings.TrimSpace(resp.Choices[0].Message.Content),
		Tone:       s.tone,
		Confidence: 0.9,
	}, nil
}

// Summarize generates a one-paragraph summary of the conversation.
func (s *Suggester) Summarize(ctx context.Context, conv *store.Conversation, msgs []store.Message) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("summary generation not configured")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "Summarize this customer support conversation in one short paragraph " +
					"for a support dashboard. Mention the customer's request and its current state.",
			},
			{Role: openai.ChatMessageRoleUser, Content: transcript(conv, msgs)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func lastCustomerText(msgs []store.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == "customer" && msgs[i].Body != "" {
			return msgs[i].Body
		}
	}
	return ""
}

func transcript(conv *store.Conversation, msgs []store.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nCustomer: %s\n\n", conv.Platform, conv.ContactName)
	for i := range msgs {
		role := "Customer"
		if msgs[i].Sender == "agent" {
			role = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msgs[i].Body)
	}
	return b.String()
}
