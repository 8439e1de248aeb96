// Command client is a terminal chat client against a running gateway:
// it dials the websocket endpoint, joins a room and bridges stdin to
// the room.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

type outFrame struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Content string `json:"content,omitempty"`
}

type inEvent struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Content  string `json:"content,omitempty"`
	Text     string `json:"text,omitempty"`
	Room     string `json:"room,omitempty"`
	Messages []struct {
		Username string    `json:"username"`
		Content  string    `json:"content"`
		At       time.Time `json:"at"`
	} `json:"messages,omitempty"`
}

func main() {
	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		addr = "localhost:8080"
	}
	token := os.Getenv("TOKEN")
	if token == "" {
		log.Fatal("Set TOKEN to a bearer token (see cmd/tokengen)")
	}
	room := "general"
	if len(os.Args) > 1 {
		room = os.Args[1]
	}

	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			log.Fatalf("Dial failed: %v (status %s)", err, resp.Status)
		}
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	if err := writeFrame(conn, outFrame{Type: "join", Room: room}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}
	color.Cyan.Printf("Joined %s. Type to chat, /find <terms> to search, Ctrl+D to quit.\n", room)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			render(raw)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := writeFrame(conn, outFrame{Type: "send", Content: line}); err != nil {
			log.Fatalf("Send failed: %v", err)
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func writeFrame(conn *websocket.Conn, frame outFrame) error {
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, raw)
}

func render(raw []byte) {
	var e inEvent
	if err := json.Unmarshal(raw, &e); err != nil {
		fmt.Println(string(raw))
		return
	}

	switch e.Type {
	case "message":
		color.Green.Printf("%s: ", e.Username)
		fmt.Println(e.Content)
	case "notification":
		color.Yellow.Println(e.Text)
	case "history":
		color.Cyan.Printf("--- last %d messages in %s ---\n", len(e.Messages), e.Room)
		for _, m := range e.Messages {
			fmt.Printf("[%s] %s: %s\n", m.At.Local().Format("15:04"), m.Username, m.Content)
		}
	case "search_results":
		color.Cyan.Printf("--- %d search results ---\n", len(e.Messages))
		for _, m := range e.Messages {
			fmt.Printf("[%s] %s: %s\n", m.At.Local().Format("15:04"), m.Username, m.Content)
		}
	case "error":
		color.Red.Println(e.Text)
	default:
		fmt.Println(string(raw))
	}
}
