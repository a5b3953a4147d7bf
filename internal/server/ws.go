package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/handpilot/internal/relay"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	// the monitor is meant for the local network
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler pushes every relayed control record to WebSocket clients as
// a JSON text message.
type StreamHandler struct {
	hub *relay.Hub
}

// NewStreamHandler creates a StreamHandler reading from hub.
func NewStreamHandler(hub *relay.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// ServeHTTP upgrades the request and streams until the client leaves or the
// hub closes.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(relay.DefaultBuffer)
	defer h.hub.Unsubscribe(sub)

	gone := make(chan struct{})
	go h.readPump(conn, gone)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-gone:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case rec, ok := <-sub.C:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "relay stopped"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(rec); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages and closes gone once the client stops
// answering pings or disconnects.
func (h *StreamHandler) readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
