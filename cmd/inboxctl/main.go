package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tekflox/inbox/internal/config"
	"github.com/tekflox/inbox/internal/profile"
)

func main() {
	apiFlag := flag.String("api", "", "local API address (overrides config)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	cfg := config.LoadOrDefault(profile.ConfigPath())
	addr := cfg.APIListen
	if *apiFlag != "" {
		addr = *apiFlag
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &ctl{base: "http://" + addr, jsonOut: *jsonFlag}

	switch args[0] {
	case "status":
		c.cmdStatus()
	case "login":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl login <username> <password>")
			os.Exit(1)
		}
		c.cmdLogin(args[1], args[2])
	case "logout":
		c.post("/api/session/logout", nil)
	case "poll":
		c.post("/api/poll", nil)
	case "watch":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl watch <conversation-id>")
			os.Exit(1)
		}
		c.post("/api/conversations/"+args[1]+"/watch", nil)
	case "unwatch":
		c.delete("/api/watch")
	case "conversations":
		c.cmdConversations(args[1:])
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl messages <conversation-id>")
			os.Exit(1)
		}
		c.cmdMessages(args[1])
	case "send":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl send <conversation-id> <text>")
			os.Exit(1)
		}
		c.cmdSend(args[1], strings.Join(args[2:], " "))
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: inboxctl search <query>")
			os.Exit(1)
		}
		c.cmdSearch(strings.Join(args[1:], " "))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: inboxctl [--api <addr>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                      Show daemon status")
	fmt.Fprintln(os.Stderr, "  login <user> <password>     Log in to the gateway")
	fmt.Fprintln(os.Stderr, "  logout                      Log out and reset the session")
	fmt.Fprintln(os.Stderr, "  poll                        Trigger an immediate poll cycle")
	fmt.Fprintln(os.Stderr, "  watch <id>                  Watch a conversation for live updates")
	fmt.Fprintln(os.Stderr, "  unwatch                     Stop watching")
	fmt.Fprintln(os.Stderr, "  conversations [platform]    List synced conversations")
	fmt.Fprintln(os.Stderr, "  messages <id>               List messages in a conversation")
	fmt.Fprintln(os.Stderr, "  send <id> <text>            Queue an outgoing reply")
	fmt.Fprintln(os.Stderr, "  search <query>              Full-text search across messages")
}

type ctl struct {
	base    string
	jsonOut bool
}

func (c *ctl) request(method, path string, body []byte) []byte {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(body))
	if err != nil {
		fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon at %s: %v\n", c.base, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			fmt.Fprintf(os.Stderr, "error: %s\n", apiErr.Error)
		} else {
			fmt.Fprintf(os.Stderr, "error: HTTP %d\n", resp.StatusCode)
		}
		os.Exit(1)
	}
	return data
}

func (c *ctl) get(path string) []byte { return c.request(http.MethodGet, path, nil) }

func (c *ctl) post(path string, body []byte) {
	data := c.request(http.MethodPost, path, body)
	if c.jsonOut {
		outputRaw(data)
		return
	}
	fmt.Println("ok")
}

func (c *ctl) delete(path string) {
	c.request(http.MethodDelete, path, nil)
	if !c.jsonOut {
		fmt.Println("ok")
	}
}

func (c *ctl) cmdStatus() {
	data := c.get("/api/status")
	if c.jsonOut {
		outputRaw(data)
		return
	}
	var st struct {
		Profile       string `json:"profile"`
		State         string `json:"state"`
		UptimeMS      int64  `json:"uptime_ms"`
		Cursor        int64  `json:"cursor"`
		Conversations int64  `json:"conversations"`
		Messages      int64  `json:"messages"`
		User          *struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	if err := json.Unmarshal(data, &st); err != nil {
		fatal(err)
	}
	fmt.Printf("Profile:       %s\n", st.Profile)
	fmt.Printf("State:         %s\n", st.State)
	fmt.Printf("Uptime:        %s\n", (time.Duration(st.UptimeMS) * time.Millisecond).Round(time.Second))
	fmt.Printf("Cursor:        %d\n", st.Cursor)
	fmt.Printf("Conversations: %d\n", st.Conversations)
	fmt.Printf("Messages:      %d\n", st.Messages)
	if st.User != nil {
		fmt.Printf("User:          %s\n", st.User.Username)
	}
}

func (c *ctl) cmdLogin(username, password string) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	data := c.request(http.MethodPost, "/api/session/login", body)
	if c.jsonOut {
		outputRaw(data)
		return
	}
	fmt.Printf("logged in as %s\n", username)
}

func (c *ctl) cmdConversations(args []string) {
	path := "/api/conversations"
	if len(args) > 0 {
		path += "?platform=" + args[0]
	}
	data := c.get(path)
	if c.jsonOut {
		outputRaw(data)
		return
	}
	var convs []struct {
		ID       int64  `json:"id"`
		Platform string `json:"platform"`
		Contact  struct {
			Name string `json:"name"`
		} `json:"contact"`
		LastMessage string `json:"lastMessage"`
		Status      string `json:"status"`
		Unread      bool   `json:"unread"`
	}
	if err := json.Unmarshal(data, &convs); err != nil {
		fatal(err)
	}
	for _, conv := range convs {
		marker := " "
		if conv.Unread {
			marker = "*"
		}
		fmt.Printf("%s %4d  %-10s %-9s %-20s %s\n",
			marker, conv.ID, conv.Platform, conv.Status, conv.Contact.Name, truncate(conv.LastMessage, 50))
	}
}

func (c *ctl) cmdMessages(id string) {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid conversation id %q\n", id)
		os.Exit(1)
	}
	data := c.get("/api/conversations/" + id + "/messages")
	if c.jsonOut {
		outputRaw(data)
		return
	}
	var msgs []struct {
		Sender    string    `json:"sender"`
		Text      string    `json:"text"`
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &msgs); err != nil {
		fatal(err)
	}
	for _, m := range msgs {
		fmt.Printf("%s  %-8s [%s] %s\n", m.Timestamp.Format("15:04:05"), m.Sender, m.Status, m.Text)
	}
}

func (c *ctl) cmdSend(id, text string) {
	body, _ := json.Marshal(map[string]string{"text": text, "actionType": "manual"})
	data := c.request(http.MethodPost, "/api/conversations/"+id+"/messages", body)
	if c.jsonOut {
		outputRaw(data)
		return
	}
	var out struct {
		ClientMsgID string `json:"clientMsgId"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		fatal(err)
	}
	fmt.Printf("queued %s\n", out.ClientMsgID)
}

func (c *ctl) cmdSearch(query string) {
	data := c.get("/api/search?q=" + strings.ReplaceAll(query, " ", "+"))
	if c.jsonOut {
		outputRaw(data)
		return
	}
	var results []struct {
		Message struct {
			ConversationID int64  `json:"conversationId"`
			Sender         string `json:"sender"`
		} `json:"message"`
		Snippet string `json:"snippet"`
	}
	if err := json.Unmarshal(data, &results); err != nil {
		fatal(err)
	}
	for _, r := range results {
		fmt.Printf("#%d %-8s %s\n", r.Message.ConversationID, r.Message.Sender, r.Snippet)
	}
}

func outputRaw(data []byte) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
