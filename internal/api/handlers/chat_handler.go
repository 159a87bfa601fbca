package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/chat"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/pkg/logger"
)

type ChatHandler struct {
	orchestrator     *chat.Orchestrator
	defaultStreaming bool
	maxMessageLen    int
	turnTimeout      time.Duration
}

func NewChatHandler(orchestrator *chat.Orchestrator, defaultStreaming bool, maxMessageLen int, turnTimeout time.Duration) *ChatHandler {
	return &ChatHandler{
		orchestrator:     orchestrator,
		defaultStreaming: defaultStreaming,
		maxMessageLen:    maxMessageLen,
		turnTimeout:      turnTimeout,
	}
}

// HandleTurn runs one chat turn. Delivery mode follows the server
// default unless the request overrides it with the stream flag:
// blocking returns a single JSON message, streaming returns
// server-sent-event frames carrying message snapshots.
func (h *ChatHandler) HandleTurn(c *fiber.Ctx) error {
	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Conversation id is required",
		})
	}

	var req struct {
		Message            string `json:"message"`
		AssistantMessageID string `json:"assistant_message_id"`
		Stream             *bool  `json:"stream"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message is required",
		})
	}

	if h.maxMessageLen > 0 && len(strings.Fields(req.Message)) > h.maxMessageLen {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message exceeds maximum length",
		})
	}

	streaming := h.defaultStreaming
	if req.Stream != nil {
		streaming = *req.Stream
	}

	turnReq := chat.TurnRequest{
		ConversationID:     conversationID,
		Message:            req.Message,
		AssistantMessageID: req.AssistantMessageID,
		Streaming:          streaming,
	}

	if streaming {
		return h.streamTurn(c, turnReq)
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.turnTimeout)
	defer cancel()

	msg, err := h.orchestrator.ProcessTurn(ctx, turnReq, nil)
	if err != nil {
		// The terminal message carries ERROR status and any partial
		// content; surface both alongside the failure code.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Turn failed",
			"data":    msg,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Turn completed",
		"data":    msg,
	})
}

func (h *ChatHandler) streamTurn(c *fiber.Ctx, turnReq chat.TurnRequest) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	timeout := h.turnTimeout

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sink := func(msg models.Message) error {
			data, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			return w.Flush()
		}

		if _, err := h.orchestrator.ProcessTurn(ctx, turnReq, sink); err != nil {
			logger.Error("Streamed turn failed",
				zap.String("conversation_id", turnReq.ConversationID),
				zap.Error(err),
			)
		}
	}))

	return nil
}
