package notify

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Hub is the realtime broadcast channel. Dashboard clients connect over
// websocket and receive every accepted machine event as a JSON frame keyed
// by canonical event type. Delivery is best effort: a slow client gets
// dropped, never waited on.
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan []byte, 256),
	}
}

// Run owns the client set; all mutation goes through the channels so no
// lock is shared with request handlers.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
		case frame := <-h.broadcast:
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Broadcast queues one frame for all connected clients. Frames are dropped
// when the queue is full rather than blocking the caller.
func (h *Hub) Broadcast(eventType string, payload any) {
	frame, err := json.Marshal(fiber.Map{
		"event": eventType,
		"data":  payload,
	})
	if err != nil {
		log.Printf("❌ Failed to encode broadcast frame: %v", err)
		return
	}
	select {
	case h.broadcast <- frame:
	default:
		log.Println("⚠️  Broadcast queue full, frame dropped")
	}
}

// Upgrade gates the websocket route.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler registers the connection and parks on the read loop until the
// client goes away.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		h.register <- conn
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
