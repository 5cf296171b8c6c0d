//go:build ignore

// ws_client subscribes to the route event stream, triggers one optimization
// and prints the events it receives.
//
//	go run scripts/ws_client.go [sourceLocation]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	source := "depot"
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/api/routes/ws"}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}
	for i, topic := range []string{"routes", "deliveries"} {
		if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: fmt.Sprint(i + 1), Topic: topic}); err != nil {
			log.Fatal(err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s %s: %s", m.Type, m.Topic, string(m.Payload))
		}
	}()

	time.Sleep(500 * time.Millisecond)
	body, _ := json.Marshal(map[string]any{"sourceLocation": source})
	resp, err := http.Post(base+"/api/optimize-route", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatal(err)
	}
	_ = resp.Body.Close()
	log.Printf("optimize-route status=%d routeId=%s", resp.StatusCode, resp.Header.Get("X-Route-Id"))

	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
