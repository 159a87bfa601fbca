package ingestion

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/llm"
	"github.com/govscan/backend/internal/metrics"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/internal/storage/sqlite"
	"github.com/govscan/backend/internal/vector/milvus"
	"github.com/govscan/backend/pkg/logger"
)

// Processor turns a source PDF into stored, embedded passages: one
// document row, per-page passage rows, and vectors in the search
// collection.
type Processor struct {
	db          *sqlite.Client
	vectorDB    *milvus.Client
	llmClient   *llm.Client
	scraper     *Scraper
	chunkWords  int
	strideWords int
	embedBatch  int
}

func NewProcessor(db *sqlite.Client, vectorDB *milvus.Client, llmClient *llm.Client, chunkWords, strideWords, embedBatch int) *Processor {
	return &Processor{
		db:          db,
		vectorDB:    vectorDB,
		llmClient:   llmClient,
		scraper:     NewScraper(),
		chunkWords:  chunkWords,
		strideWords: strideWords,
		embedBatch:  embedBatch,
	}
}

// IngestFromURL downloads the document's source PDF and ingests it.
func (p *Processor) IngestFromURL(ctx context.Context, doc *models.Document) error {
	tmpDir, err := os.MkdirTemp("", "govscan-ingest")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, doc.ID+".pdf")
	if err := p.scraper.Download(ctx, doc.URL, pdfPath); err != nil {
		return err
	}

	return p.IngestPDF(ctx, doc, pdfPath)
}

// IngestPDF extracts text page by page, chunks it into overlapping
// passages, embeds them, and stores rows plus vectors.
func (p *Processor) IngestPDF(ctx context.Context, doc *models.Document, pdfPath string) error {
	logger.Info("Ingesting document",
		zap.String("doc_id", doc.ID),
		zap.String("path", pdfPath),
	)

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if err := p.db.InsertDocument(doc); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	pages, err := extractPages(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var passages []models.Passage
	index := 0
	for pageNum, pageText := range pages {
		for _, chunk := range splitPassages(pageText, p.chunkWords, p.strideWords) {
			passages = append(passages, models.Passage{
				ID:         fmt.Sprintf("%s_p%d_%d", doc.ID, pageNum, index),
				DocumentID: doc.ID,
				PageNumber: pageNum,
				Index:      index,
				Text:       chunk,
				CreatedAt:  time.Now(),
			})
			index++
		}
	}

	if len(passages) == 0 {
		return fmt.Errorf("no text extracted from %s", pdfPath)
	}

	texts := make([]string, len(passages))
	for i, ps := range passages {
		texts[i] = ps.Text
	}

	embeddings, err := p.llmClient.EmbedBatch(ctx, texts, p.embedBatch)
	if err != nil {
		return fmt.Errorf("failed to embed passages: %w", err)
	}

	if len(embeddings) != len(passages) {
		return fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(passages))
	}

	vectorPassages := make([]milvus.Passage, 0, len(passages))
	for i, ps := range passages {
		if err := p.db.InsertPassage(&passages[i]); err != nil {
			logger.Warn("Failed to store passage row", zap.String("passage_id", ps.ID), zap.Error(err))
		}

		vectorPassages = append(vectorPassages, milvus.Passage{
			ID:         ps.ID,
			Embedding:  embeddings[i],
			Text:       ps.Text,
			DocumentID: ps.DocumentID,
			PageNumber: ps.PageNumber,
		})
	}

	if err := p.vectorDB.Insert(ctx, vectorPassages); err != nil {
		return fmt.Errorf("failed to insert vectors: %w", err)
	}

	metrics.DocumentsIngested.Inc()

	logger.Info("Document ingested",
		zap.String("doc_id", doc.ID),
		zap.Int("pages", len(pages)),
		zap.Int("passages", len(passages)),
	)

	return nil
}

// extractPages returns plain text keyed by 1-based page number. Pages
// that yield no text are skipped.
func extractPages(path string) (map[int]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pages := make(map[int]string)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("Failed to extract page text", zap.Int("page", i), zap.Error(err))
			continue
		}
		if text != "" {
			pages[i] = text
		}
	}

	return pages, nil
}

func writeFile(destPath string, r io.Reader) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
