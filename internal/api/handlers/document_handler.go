package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/documents"
	"github.com/govscan/backend/internal/ingestion"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/internal/storage/sqlite"
	"github.com/govscan/backend/pkg/logger"
)

type DocumentHandler struct {
	db        *sqlite.Client
	processor *ingestion.Processor
}

func NewDocumentHandler(db *sqlite.Client, processor *ingestion.Processor) *DocumentHandler {
	return &DocumentHandler{
		db:        db,
		processor: processor,
	}
}

// ListDocuments returns the normalized document catalog.
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	stored, err := h.db.ListDocuments()
	if err != nil {
		logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	normalized := documents.Normalize(documents.FromStored(stored))

	return c.JSON(fiber.Map{
		"documents": normalized,
	})
}

// IngestDocument registers a document and ingests its source PDF.
func (h *DocumentHandler) IngestDocument(c *fiber.Ctx) error {
	var req struct {
		ID        string `json:"id"`
		DocType   string `json:"doc_type"`
		Geography string `json:"geography"`
		Year      string `json:"year"`
		Quarter   string `json:"quarter"`
		Language  string `json:"language"`
		URL       string `json:"url"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ID == "" || req.DocType == "" || req.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id, doc_type and url are required",
		})
	}

	doc := &models.Document{
		ID:        req.ID,
		DocType:   req.DocType,
		FullName:  req.DocType,
		Geography: req.Geography,
		Year:      req.Year,
		Quarter:   req.Quarter,
		Language:  req.Language,
		URL:       req.URL,
	}

	if err := h.processor.IngestFromURL(c.Context(), doc); err != nil {
		logger.Error("Failed to ingest document", zap.String("doc_id", req.ID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to ingest document",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Document ingested successfully",
		"id":      req.ID,
	})
}
