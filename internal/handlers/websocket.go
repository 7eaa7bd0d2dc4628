package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"event-signup-backend/internal/middleware"
	"event-signup-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub       *services.WSHub
	validator middleware.TokenValidator
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *services.WSHub, validator middleware.TokenValidator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		validator: validator,
	}
}

// HandleWebSocket handles GET /ws. The session token comes from the token
// query parameter or a bearer Authorization header.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, _, err := h.validator.ValidateToken(r.Context(), token)
	if err != nil {
		if middleware.IsTokenRejected(err) {
			respondError(w, "invalid token", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Msg("Failed to validate websocket token")
		respondError(w, "failed to validate token", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID, conn)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.reply(userID, services.WSMessage{Type: services.MsgError, Message: "Invalid message format"})
			continue
		}

		h.handleMessage(userID, msg)
	}
}

func (h *WebSocketHandler) handleMessage(userID string, msg services.WSMessage) {
	switch msg.Type {
	case services.MsgPing:
		h.reply(userID, services.WSMessage{Type: services.MsgPong})
	default:
		h.reply(userID, services.WSMessage{Type: services.MsgError, Message: "Unknown message type"})
	}
}

func (h *WebSocketHandler) reply(userID string, msg services.WSMessage) {
	if err := h.hub.SendToUser(userID, msg); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("type", msg.Type).
			Msg("Failed to reply on websocket")
	}
}
