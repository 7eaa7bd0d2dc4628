package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"event-signup-backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message types sent over the websocket
const (
	MsgProfileUpdated      = "profile_updated"
	MsgNotification        = "notification"
	MsgRegistrationCreated = "registration_created"
	MsgPing                = "ping"
	MsgPong                = "pong"
	MsgError               = "error"
)

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp,omitempty"`
	Level     string      `json:"level,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// WSConn is the part of a websocket connection the hub writes to
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type wsClient struct {
	conn    WSConn
	writeMu sync.Mutex
}

func (c *wsClient) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub manages WebSocket connections, one per user
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		connections: make(map[string]*wsClient),
	}
}

// Register registers a new WebSocket connection for a user, closing any
// previous one
func (h *WSHub) Register(userID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.connections[userID]; exists {
		existing.conn.Close()
	}
	h.connections[userID] = &wsClient{conn: conn}

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes the connection of a user if it is still conn
func (h *WSHub) Unregister(userID string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.connections[userID]; exists && client.conn == conn {
		client.conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
}

// SendToUser sends a message to a specific user
func (h *WSHub) SendToUser(userID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(userID, client.conn)
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// IsOnline checks if a user is online
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}

// NotifyProfileUpdated pushes the stored profile to the user's client
func (h *WSHub) NotifyProfileUpdated(userID string, profile *models.Profile) {
	h.sendIfOnline(userID, WSMessage{Type: MsgProfileUpdated, Data: profile})
}

// NotifyError shows a transient error notification to the user
func (h *WSHub) NotifyError(userID, message string) {
	h.sendIfOnline(userID, WSMessage{Type: MsgNotification, Level: "error", Message: message})
}

// NotifyRegistrationCreated tells an organizer about a new participant
func (h *WSHub) NotifyRegistrationCreated(organizerID string, event *models.Event, reg *models.EventRegistration) {
	h.sendIfOnline(organizerID, WSMessage{
		Type:    MsgRegistrationCreated,
		Message: fmt.Sprintf("New registration for %s", event.Title),
		Data: map[string]interface{}{
			"event_id":        event.ID,
			"registration_id": reg.ID,
			"user_id":         reg.UserID,
			"group_id":        reg.GroupID,
		},
	})
}

func (h *WSHub) sendIfOnline(userID string, message WSMessage) {
	if !h.IsOnline(userID) {
		return
	}
	if err := h.SendToUser(userID, message); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("type", message.Type).
			Msg("Failed to send websocket message")
	}
}

// CloseAll closes every registered connection
func (h *WSHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, client := range h.connections {
		client.conn.Close()
		delete(h.connections, userID)
	}
}
