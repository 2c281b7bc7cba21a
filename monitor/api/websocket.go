package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/jimfhahn/qa-server/monitor/types"
)

// WSMessageType labels the live-feed messages pushed to dashboard clients.
type WSMessageType string

const (
	WSMessageTypeSampleRecorded  WSMessageType = "sample_recorded"
	WSMessageTypeSampleDiscarded WSMessageType = "sample_discarded"
	WSMessageTypeRollupRefreshed WSMessageType = "rollup_refreshed"
)

// WSMessage is the envelope for every live-feed message.
type WSMessage struct {
	Type      WSMessageType `json:"type"`
	Data      interface{}   `json:"data,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// WSHub fans sample lifecycle events out to connected WebSocket clients.
// It implements instrument.Publisher.
type WSHub struct {
	clients    map[*websocket.Conn]chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	broadcast  chan []byte
	done       chan struct{}
	log        logrus.FieldLogger

	mu      sync.Mutex
	running bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWSHub creates a hub. Run must be called before clients connect.
func NewWSHub(log logrus.FieldLogger) *WSHub {
	return &WSHub{
		clients:    make(map[*websocket.Conn]chan []byte),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn, 64),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		log:        log.WithField("component", "ws_hub"),
	}
}

// Run processes registrations and broadcasts until the context is done.
// The hub is single-use: once Run returns, new connections are refused.
func (h *WSHub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	for {
		select {
		case client := <-h.register:
			h.clients[client.conn] = client.send
			h.log.WithField("clients", len(h.clients)).Debug("WebSocket client connected")
		case conn := <-h.unregister:
			if send, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				close(send)
				conn.Close()
			}
		case msg := <-h.broadcast:
			for conn, send := range h.clients {
				select {
				case send <- msg:
				default:
					// Slow client: drop it rather than block the feed.
					delete(h.clients, conn)
					close(send)
					conn.Close()
				}
			}
		case <-ctx.Done():
			for conn, send := range h.clients {
				delete(h.clients, conn)
				close(send)
				conn.Close()
			}
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			close(h.done)
			return
		}
	}
}

// SampleRecorded broadcasts a newly recorded sample.
func (h *WSHub) SampleRecorded(sample types.Sample) {
	h.publish(WSMessageTypeSampleRecorded, sample)
}

// SampleDiscarded broadcasts a discarded sample event.
func (h *WSHub) SampleDiscarded(authority string, action types.Action, reason string) {
	h.publish(WSMessageTypeSampleDiscarded, map[string]string{
		"authority": authority,
		"action":    action.String(),
		"reason":    reason,
	})
}

// RollupRefreshed broadcasts that a new rollup snapshot was published.
func (h *WSHub) RollupRefreshed(generatedAt time.Time) {
	h.publish(WSMessageTypeRollupRefreshed, map[string]time.Time{"generated_at": generatedAt})
}

func (h *WSHub) publish(msgType WSMessageType, data interface{}) {
	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		return
	}

	raw, err := json.Marshal(WSMessage{Type: msgType, Data: data, Timestamp: time.Now()})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	select {
	case h.broadcast <- raw:
	default:
		// Feed is best-effort; never stall a recording request on it.
	}
}

// ServeWS upgrades an HTTP request to a feed connection.
func (h *WSHub) ServeWS(upgrader websocket.Upgrader, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	running := h.running
	h.mu.Unlock()
	if !running {
		conn.Close()
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	select {
	case h.register <- client:
	case <-h.done:
		// Hub shut down between the running check and registration.
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(conn)
}

func (h *WSHub) writePump(client *wsClient) {
	for msg := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister <- client.conn
			return
		}
	}
}

// readPump drains (and discards) client messages so pings and close frames
// are processed.
func (h *WSHub) readPump(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister <- conn
			return
		}
	}
}
