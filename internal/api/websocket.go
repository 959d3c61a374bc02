package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbernstein/lacylights-wifi/internal/services/pubsub"
)

const (
	pingInterval = 10 * time.Second
	writeWait    = 5 * time.Second
)

// statusStream sends the current status, then every published status, until
// the client goes away.
func (s *Server) statusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.V(1).Info("WebSocket upgrade failed", "error", err.Error())
		return
	}
	defer func() { _ = conn.Close() }()

	var updates <-chan interface{}
	if s.pubsub != nil {
		sub := s.pubsub.Subscribe(pubsub.TopicWiFiStatus, "", 16)
		defer s.pubsub.Unsubscribe(sub)
		updates = sub.Channel
	}

	// Reader: handles pongs and notices the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.writeStatus(conn, s.wifi.Status()); err != nil {
		return
	}

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-updates:
			if !ok {
				return
			}
			if err := s.writeStatus(conn, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeStatus(conn *websocket.Conn, v interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
