// Package websocket pushes conversation events to the browser: toasts, view
// switches, checkout requests and payment state.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/shared/models"
	"github.com/gorilla/websocket"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypeNotification MessageType = "notification"
	MessageTypeViewSwitch   MessageType = "view_switch"
	MessageTypeCheckoutOpen MessageType = "checkout_open"
	MessageTypePaymentState MessageType = "payment_state"
)

// ViewChat is the conversation view of the hosting UI
const ViewChat = "chat"

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message represents a WebSocket message
type Message struct {
	Type           MessageType             `json:"type"`
	ConversationID string                  `json:"conversationId"`
	TripID         string                  `json:"tripId,omitempty"`
	View           string                  `json:"view,omitempty"`
	Notification   *models.Notification    `json:"notification,omitempty"`
	Checkout       *models.CheckoutOptions `json:"checkout,omitempty"`
	Payment        *models.PaymentState    `json:"payment,omitempty"`
	Timestamp      int64                   `json:"timestamp"`
}

// Client represents a WebSocket client connection
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	conversationID string
}

// Hub manages WebSocket connections per conversation
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for client := range clients {
					close(client.send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.conversationID] == nil {
				h.clients[client.conversationID] = make(map[*Client]bool)
			}
			h.clients[client.conversationID][client] = true
			h.logger.Info("WebSocket client registered", "conversationId", client.conversationID, "total", len(h.clients[client.conversationID]))
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("Failed to marshal websocket message", "type", message.Type, "error", err)
				continue
			}

			h.mu.Lock()
			clients := h.clients[message.ConversationID]
			h.logger.Debug("Broadcasting", "type", message.Type, "conversationId", message.ConversationID, "clients", len(clients))
			for client := range clients {
				select {
				case client.send <- data:
				default:
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeLocked must be called with mu held
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.clients[client.conversationID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	h.logger.Info("WebSocket client unregistered", "conversationId", client.conversationID, "remaining", len(clients))
	if len(clients) == 0 {
		delete(h.clients, client.conversationID)
	}
}

// ServeWS upgrades the request and attaches the connection to conversationID
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, conversationID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "conversationId", conversationID, "error", err)
		return
	}

	client := &Client{
		hub:            h,
		conn:           conn,
		send:           make(chan []byte, 64),
		conversationID: conversationID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection; the browser reports checkout outcomes over HTTP
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) publish(ctx context.Context, msg *Message) {
	msg.Timestamp = time.Now().UnixMilli()
	select {
	case h.broadcast <- msg:
	case <-ctx.Done():
		h.logger.Warn("Dropped websocket message", "type", msg.Type, "conversationId", msg.ConversationID, "error", ctx.Err())
	case <-h.done:
	}
}

// Notify delivers a toast to the conversation's browsers
func (h *Hub) Notify(ctx context.Context, n models.Notification) {
	h.publish(ctx, &Message{
		Type:           MessageTypeNotification,
		ConversationID: n.ConversationID,
		Notification:   &n,
	})
}

// SwitchToChat asks the browser to return to the conversation view
func (h *Hub) SwitchToChat(ctx context.Context, conversationID string) {
	h.publish(ctx, &Message{
		Type:           MessageTypeViewSwitch,
		ConversationID: conversationID,
		View:           ViewChat,
	})
}

// OpenCheckout asks the browser to open the external checkout
func (h *Hub) OpenCheckout(ctx context.Context, conversationID, tripID string, opts models.CheckoutOptions) {
	h.publish(ctx, &Message{
		Type:           MessageTypeCheckoutOpen,
		ConversationID: conversationID,
		TripID:         tripID,
		Checkout:       &opts,
	})
}

// PublishPaymentState pushes a payment state change
func (h *Hub) PublishPaymentState(ctx context.Context, conversationID, tripID string, state models.PaymentState) {
	h.publish(ctx, &Message{
		Type:           MessageTypePaymentState,
		ConversationID: conversationID,
		TripID:         tripID,
		Payment:        &state,
	})
}

// GetClientCount returns the number of clients attached to a conversation
func (h *Hub) GetClientCount(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[conversationID])
}
