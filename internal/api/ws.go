package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Route event stream over WebSocket. Clients send connection_init, then
// subscribe/complete messages naming a topic; events arrive as "next".

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	wsReadTimeout = 60 * time.Second
	wsPingEvery   = 20 * time.Second
)

func knownTopic(t string) bool { return t == TopicRoutes || t == TopicDeliveries }

// RouteEventsWSHandler handles /api/routes/ws. ?topic= subscribes right away
// under the id "default".
func (s *Server) RouteEventsWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	var wmu sync.Mutex
	write := func(v wsMessage) error {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(v)
	}

	type sub struct {
		topic string
		ch    chan Event
	}
	subs := map[string]sub{}
	subscribe := func(id, topic string) {
		if !knownTopic(topic) {
			_ = write(wsMessage{Type: "error", ID: id, Payload: []byte(`{"message":"unknown topic"}`)})
			return
		}
		if _, dup := subs[id]; dup {
			_ = write(wsMessage{Type: "error", ID: id, Payload: []byte(`{"message":"subscription id in use"}`)})
			return
		}
		ch := s.Broker.Subscribe(topic)
		subs[id] = sub{topic: topic, ch: ch}
		go func() {
			for evt := range ch {
				payload, _ := json.Marshal(evt)
				_ = write(wsMessage{Type: "next", ID: id, Topic: topic, Payload: payload})
			}
			_ = write(wsMessage{Type: "complete", ID: id})
		}()
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadTimeout)) })

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				wmu.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				wmu.Unlock()
				if err != nil {
					return
				}
			}
		}
	}()

	if t := r.URL.Query().Get("topic"); t != "" {
		subscribe("default", t)
	}

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		switch msg.Type {
		case "connection_init":
			_ = write(wsMessage{Type: "connection_ack"})
		case "ping":
			_ = write(wsMessage{Type: "pong"})
		case "subscribe":
			subscribe(msg.ID, msg.Topic)
		case "complete":
			if s0, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(s0.topic, s0.ch)
				delete(subs, msg.ID)
			}
		}
	}
	for id, s0 := range subs {
		s.Broker.Unsubscribe(s0.topic, s0.ch)
		delete(subs, id)
	}
}
