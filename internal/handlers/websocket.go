package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/vduarte/missions-api/internal/middleware"
	"github.com/vduarte/missions-api/internal/realtime"
)

// connection wraps a websocket connection with its user ID
type connection struct {
	conn   *websocket.Conn
	userID uuid.UUID
}

// Hub fans mission table events out to every connected client. There is a
// single channel for the whole table: every client sees every event,
// including the one who caused it, since client caches are echo-driven.
type Hub struct {
	mu    sync.RWMutex
	conns map[*connection]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*connection]bool)}
}

// Run pumps feed events to connected clients until the subscription closes.
func (h *Hub) Run(feed *realtime.Feed) func() {
	ch, cancel := feed.Subscribe(64)
	go func() {
		for e := range ch {
			h.broadcast(e)
		}
	}()
	return cancel
}

func (h *Hub) register(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = true
	log.Printf("WS register: user %s subscribed to missions (total: %d)", conn.userID, len(h.conns))
}

func (h *Hub) unregister(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
	log.Printf("WS unregister: user %s left missions channel (remaining: %d)", conn.userID, len(h.conns))
}

// broadcast sends an event to every connection on the missions channel.
func (h *Hub) broadcast(event realtime.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.conns) == 0 {
		return
	}

	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("WS broadcast marshal error: %v", err)
		return
	}
	log.Printf("WS broadcast: %s mission %s to %d connection(s)", event.Type, event.MissionID, len(h.conns))

	for c := range h.conns {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("WS write error: %v", err)
		}
	}
}

// WebSocketUpgrade is the middleware that checks the upgrade request and validates JWT
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Authenticate via query param: ?token=<jwt>
		tokenString := c.Query("token")
		if tokenString == "" {
			// Also check Authorization header for non-browser clients
			authHeader := c.Get("Authorization")
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				tokenString = ""
			}
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authentication token",
			})
		}

		claims, ok := middleware.ParseToken(tokenString)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("userId", claims.UserID)
		return c.Next()
	}
}

// HandleWebSocket keeps a mission-channel subscriber connected until it
// drops. Clients only read; inbound frames are keepalives.
func (h *Hub) HandleWebSocket(c *websocket.Conn) {
	userID, ok := c.Locals("userId").(uuid.UUID)
	if !ok {
		c.Close()
		return
	}

	conn := &connection{conn: c, userID: userID}
	h.register(conn)
	defer h.unregister(conn)

	for {
		_, _, err := c.ReadMessage()
		if err != nil {
			break
		}
	}
}
