package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/tekflox/inbox/internal/store"
)

func TestSuggesterDisabledWithoutKey(t *testing.T) {
	s := NewSuggester("", "")
	if s.Enabled() {
		t.Error("Enabled() = true without API key")
	}
	if _, err := s.Suggest(context.Background(), &store.Conversation{}, nil); err == nil {
		t.Error("Suggest() should fail when not configured")
	}
	if _, err := s.Summarize(context.Background(), &store.Conversation{}, nil); err == nil {
		t.Error("Summarize() should fail when not configured")
	}
}

func TestLastCustomerText(t *testing.T) {
	msgs := []store.Message{
		{Sender: "customer", Body: "first question"},
		{Sender: "agent", Body: "an answer"},
		{Sender: "customer", Body: "follow-up"},
		{Sender: "customer", Body: ""},
	}
	if got := lastCustomerText(msgs); got != "follow-up" {
		t.Errorf("lastCustomerText() = %q", got)
	}
	if got := lastCustomerText(nil); got != "" {
		t.Errorf("lastCustomerText(nil) = %q", got)
	}
}

func TestTranscript(t *testing.T) {
	conv := &store.Conversation{Platform: "whatsapp", ContactName: "Maria Silva"}
	msgs := []store.Message{
		{Sender: "customer", Body: "where is my order"},
		{Sender: "agent", Body: "checking now"},
	}
	got := transcript(conv, msgs)
	for _, want := range []string{"Platform: whatsapp", "Maria Silva", "Customer: where is my order", "Agent: checking now"} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}
}
