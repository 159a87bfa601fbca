package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/citations"
	"github.com/govscan/backend/internal/documents"
	"github.com/govscan/backend/internal/export"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/internal/storage/sqlite"
	"github.com/govscan/backend/pkg/logger"
)

type ConversationHandler struct {
	db      *sqlite.Client
	maxDocs int
}

func NewConversationHandler(db *sqlite.Client, maxDocs int) *ConversationHandler {
	return &ConversationHandler{
		db:      db,
		maxDocs: maxDocs,
	}
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		DocumentIDs []string `json:"document_ids"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if len(req.DocumentIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "At least one document is required",
		})
	}

	if len(req.DocumentIDs) > h.maxDocs {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("At most %d documents per conversation", h.maxDocs),
		})
	}

	conv := &models.Conversation{
		ID:          uuid.New().String(),
		DocumentIDs: req.DocumentIDs,
		CreatedAt:   time.Now(),
	}

	if err := h.db.CreateConversation(conv); err != nil {
		logger.Error("Failed to create conversation", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create conversation",
		})
	}

	return c.JSON(fiber.Map{
		"id": conv.ID,
	})
}

// GetConversation replays a stored conversation: messages in created_at
// order with their citation sub-processes reattached, plus the
// normalized documents needed to label them.
func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Conversation id is required",
		})
	}

	conv, err := h.db.GetConversation(id)
	if err != nil {
		logger.Error("Failed to get conversation", zap.String("conversation_id", id), zap.Error(err))
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}

	stored, err := h.db.GetDocumentsByID(conv.DocumentIDs)
	if err != nil {
		logger.Error("Failed to load documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation documents",
		})
	}
	docs := documents.Normalize(documents.FromStored(stored))

	msgs, err := h.db.ListMessages(id)
	if err != nil {
		logger.Error("Failed to list messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}

	cits, err := h.db.ListCitationsByConversation(id)
	if err != nil {
		logger.Error("Failed to list citations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load citations",
		})
	}

	msgs = citations.AttachCitations(msgs, cits, docs)

	return c.JSON(fiber.Map{
		"id":        conv.ID,
		"messages":  msgs,
		"documents": docs,
	})
}

// ExportConversation renders the conversation transcript as a markdown
// attachment.
func (h *ConversationHandler) ExportConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Conversation id is required",
		})
	}

	conv, err := h.db.GetConversation(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}

	stored, err := h.db.GetDocumentsByID(conv.DocumentIDs)
	if err != nil {
		logger.Error("Failed to load documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load conversation documents",
		})
	}

	msgs, err := h.db.ListMessages(id)
	if err != nil {
		logger.Error("Failed to list messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load messages",
		})
	}

	cits, err := h.db.ListCitationsByConversation(id)
	if err != nil {
		logger.Error("Failed to list citations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load citations",
		})
	}

	transcript := export.Transcript(msgs, cits, stored)

	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.Filename(id)))
	c.Set("Content-Type", "text/markdown; charset=utf-8")
	return c.SendString(transcript)
}
