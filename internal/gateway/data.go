package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/tekflox/inbox/internal/remote"
)

type userRecord struct {
	remote.User
	Password string
}

// dataset is the in-memory gateway state. All handlers go through the mutex;
// the delivery status timers mutate messages concurrently with requests.
type dataset struct {
	mu sync.Mutex

	users         []userRecord
	customers     []remote.Customer
	orders        []remote.Order
	accounts      []remote.WordPressAccount
	posts         []remote.Post
	conversations []remote.Conversation
	messages      []remote.Message
	suggestions   map[int64]remote.Suggestion
	metadata      map[int64]*remote.Metadata
	settings      map[string]any
	actionChoices []remote.ActionChoice

	nextMessageID int64
}

func seedData() *dataset {
	now := time.Now()
	at := func(minutesAgo int) time.Time { return now.Add(-time.Duration(minutesAgo) * time.Minute) }

	d := &dataset{
		users: []userRecord{
			{User: remote.User{ID: 1, Username: "admin", Email: "admin@tekflox.com", Name: "Admin Tekflox", Role: "agent"}, Password: "admin123"},
			{User: remote.User{ID: 2, Username: "agente", Email: "agente@tekflox.com", Name: "Agente de Suporte", Role: "agent"}, Password: "agente123"},
		},
		customers: []remote.Customer{
			{ID: 1, Name: "Maria Silva", Email: "maria@email.com", Phone: "+55 11 98765-4321", Avatar: "https://i.pravatar.cc/150?img=1"},
			{ID: 2, Name: "João Santos", Email: "joao@email.com", Phone: "+55 11 98765-4322", Avatar: "https://i.pravatar.cc/150?img=2"},
			{ID: 3, Name: "Ana Costa", Email: "ana@email.com", Phone: "+55 11 98765-4323", Avatar: "https://i.pravatar.cc/150?img=3"},
		},
		orders: []remote.Order{
			{ID: 101, OrderNumber: "WC-1001", CustomerName: "Maria Silva", CustomerEmail: "maria@email.com", CustomerID: 1, Total: 250, Status: "completed", Date: now.AddDate(0, 0, -2).Format(time.RFC3339), Items: []remote.OrderItem{{ID: 1, Name: "Tênis Nike Air Max", Quantity: 1, Price: 250}}},
			{ID: 102, OrderNumber: "WC-1002", CustomerName: "João Santos", CustomerEmail: "joao@email.com", CustomerID: 2, Total: 150, Status: "processing", Date: now.AddDate(0, 0, -3).Format(time.RFC3339), Items: []remote.OrderItem{{ID: 2, Name: "Camisa Polo", Quantity: 2, Price: 75}}},
			{ID: 103, OrderNumber: "WC-1003", CustomerName: "Ana Costa", CustomerEmail: "ana@email.com", CustomerID: 3, Total: 450, Status: "completed", Date: now.AddDate(0, 0, -60).Format(time.RFC3339), Items: []remote.OrderItem{{ID: 3, Name: "Notebook Dell", Quantity: 1, Price: 450}}},
		},
		accounts: []remote.WordPressAccount{
			{ID: 1, Username: "maria_silva", Email: "maria@email.com", Role: "customer"},
			{ID: 2, Username: "joao_santos", Email: "joao@email.com", Role: "customer"},
		},
		posts: []remote.Post{
			{ID: "post_123", Platform: "facebook", Content: "Novidades chegando! Confira nossa nova coleção 🎉", Timestamp: at(2000), Likes: 245, Comments: 18, Shares: 12},
			{ID: "post_456", Platform: "instagram", Content: "Produtos originais com os melhores preços! ✨", Timestamp: at(3000), Likes: 389, Comments: 24, Shares: 8},
		},
		conversations: []remote.Conversation{
			{
				ID: 1, Platform: "instagram",
				Contact:     remote.Contact{Name: "Maria Silva", Username: "@mariasilva", Avatar: "https://i.pravatar.cc/150?img=1"},
				LastMessage: "Oi! Gostaria de saber se vocês têm esse produto em estoque?",
				Timestamp:   at(90), Unread: true, Status: "pending",
				CustomerID: 1, WPAccountID: 1, Type: "direct_message",
				Summary: "Cliente perguntando sobre disponibilidade de produto",
			},
			{
				ID: 2, Platform: "facebook",
				Contact:     remote.Contact{Name: "João Santos", Username: "joao.santos", Avatar: "https://i.pravatar.cc/150?img=2"},
				LastMessage: "Qual o prazo de entrega para São Paulo?",
				Timestamp:   at(150), Unread: true, Status: "pending",
				CustomerID: 2, OrderID: 102, WPAccountID: 2, Type: "comment", PostID: "post_123",
				Summary: "Cliente pedindo informações sobre prazo de entrega",
			},
			{
				ID: 3, Platform: "whatsapp",
				Contact:     remote.Contact{Name: "Ana Costa", Username: "+55 11 98765-4323", Avatar: "https://i.pravatar.cc/150?img=3"},
				LastMessage: "Obrigada pelo excelente atendimento!",
				Timestamp:   at(240), Unread: false, Status: "resolved",
				CustomerID: 3, OrderID: 103, Type: "direct_message",
				Summary: "Cliente agradecendo atendimento",
			},
		},
		messages: []remote.Message{
			{ID: 1, ConversationID: 1, Sender: "customer", Text: "Oi! Gostaria de saber se vocês têm esse produto em estoque?", Timestamp: at(90), Type: "text", Status: "read"},
			{ID: 2, ConversationID: 2, Sender: "customer", Text: "Qual o prazo de entrega para São Paulo?", Timestamp: at(150), Type: "text", Status: "read"},
			{ID: 3, ConversationID: 3, Sender: "customer", Text: "Olá! Fiz um pedido ontem e gostaria de confirmar.", Timestamp: at(250), Type: "text", Status: "read"},
			{ID: 4, ConversationID: 3, Sender: "agent", Text: "Olá Ana! Sim, seu pedido #WC-1003 foi confirmado. 😊", Timestamp: at(245), Type: "text", ActionType: "ai_edited", Status: "read"},
			{ID: 5, ConversationID: 3, Sender: "customer", Text: "Obrigada pelo excelente atendimento!", Timestamp: at(240), Type: "text", Status: "read"},
		},
		suggestions: map[int64]remote.Suggestion{
			1: {Original: "Oi! Gostaria de saber se vocês têm esse produto em estoque?", Suggestion: "Olá Maria! 😊 Sim, temos esse produto disponível em estoque. Posso te ajudar com mais informações?", Tone: "friendly", Confidence: 0.95},
			2: {Original: "Qual o prazo de entrega para São Paulo?", Suggestion: "Olá João! Para São Paulo, o prazo de entrega é de 3 a 5 dias úteis. 🚚", Tone: "professional", Confidence: 0.92},
		},
		metadata: map[int64]*remote.Metadata{
			1: {
				AIInsights:  json.RawMessage(`[]`),
				ManualNotes: "",
				Tags:        []string{"vip", "acompanhamento"},
				Labels:      json.RawMessage(`[{"text":"Novo cliente","color":"green"}]`),
			},
		},
		settings: map[string]any{
			"connectedAccounts": map[string]any{
				"instagram": map[string]any{"connected": true, "username": "@tekflox"},
				"facebook":  map[string]any{"connected": true, "pageName": "Tekflox"},
				"whatsapp":  map[string]any{"connected": true, "businessNumber": "+55 11 98765-0000"},
			},
			"notifications": map[string]any{"newMessages": true, "mentions": true, "comments": true, "email": false},
			"ai":            map[string]any{"autoSuggestions": true, "suggestionTone": "friendly", "autoSummary": true},
		},
		nextMessageID: 5,
	}
	return d
}

func (d *dataset) conversationIndex(id int64) int {
	for i := range d.conversations {
		if d.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *dataset) emptyMetadata(id int64) *remote.Metadata {
	m, ok := d.metadata[id]
	if !ok {
		m = &remote.Metadata{
			AIInsights: json.RawMessage(`[]`),
			Tags:       []string{},
			Labels:     json.RawMessage(`[]`),
		}
		d.metadata[id] = m
	}
	return m
}
