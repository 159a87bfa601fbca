package handlers

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/chat"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/pkg/logger"
)

// WebSocketHandler streams chat turns over a websocket: one inbound
// turn message, a sequence of frame messages carrying message
// snapshots, then a complete message.
type WebSocketHandler struct {
	orchestrator *chat.Orchestrator
	turnTimeout  time.Duration
}

func NewWebSocketHandler(orchestrator *chat.Orchestrator, turnTimeout time.Duration) *WebSocketHandler {
	return &WebSocketHandler{
		orchestrator: orchestrator,
		turnTimeout:  turnTimeout,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Debug("WebSocket read ended", zap.Error(err))
			break
		}

		if msg.Type != "turn" {
			continue
		}

		if msg.ConversationID == "" || msg.Content == "" {
			h.sendError(c, "conversation_id and content are required")
			continue
		}

		if err := h.streamTurn(c, msg.ConversationID, msg.Content); err != nil {
			logger.Error("Failed to stream turn", zap.Error(err))
			h.sendError(c, "Failed to process turn")
		}
	}
}

func (h *WebSocketHandler) streamTurn(c *websocket.Conn, conversationID, content string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.turnTimeout)
	defer cancel()

	sink := func(msg models.Message) error {
		return c.WriteJSON(map[string]interface{}{
			"type": "frame",
			"data": msg,
		})
	}

	msg, err := h.orchestrator.ProcessTurn(ctx, chat.TurnRequest{
		ConversationID: conversationID,
		Message:        content,
		Streaming:      true,
	}, sink)
	if err != nil {
		// The error frame already went out through the sink.
		return nil
	}

	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": msg.ID,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
