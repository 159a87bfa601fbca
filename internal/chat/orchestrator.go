package chat

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/citations"
	"github.com/govscan/backend/internal/llm"
	"github.com/govscan/backend/internal/metrics"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/internal/vector/milvus"
	"github.com/govscan/backend/pkg/logger"
	"github.com/govscan/backend/pkg/utils"
)

const systemPrompt = `You are a regulatory research assistant. Answer the user's question using ONLY the retrieved passages provided. Cite the source document and page for every claim. If the passages do not contain the answer, say so rather than speculating.`

// minPassages floors the retrieval budget regardless of how many
// documents a conversation holds.
const minPassages = 2

// Provider is the LLM boundary: embeddings plus blocking and streamed
// completions.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteStream(ctx context.Context, req llm.CompletionRequest, onDelta func(delta string) error) error
}

// Searcher is the nearest-neighbor search boundary.
type Searcher interface {
	Search(ctx context.Context, queryEmbedding []float32, topK int, documentIDs []string) ([]milvus.SearchResult, error)
}

// Store is the persistence surface one turn touches.
type Store interface {
	GetConversation(id string) (*models.Conversation, error)
	GetDocumentsByID(ids []string) ([]models.Document, error)
	InsertMessage(msg *models.Message) error
	InsertCitation(cit *models.Citation) error
}

// EmbeddingCache is optional; a nil cache disables caching.
type EmbeddingCache interface {
	GetEmbedding(ctx context.Context, textHash string) ([]float32, bool, error)
	SetEmbedding(ctx context.Context, textHash string, embedding []float32) error
}

// Sink receives message snapshots during a streamed turn. Partial
// frames are delivered at least once; the terminal frame exactly once.
type Sink func(msg models.Message) error

type Orchestrator struct {
	store    Store
	searcher Searcher
	provider Provider
	cache    EmbeddingCache
}

type TurnRequest struct {
	ConversationID string
	Message        string
	// AssistantMessageID lets the client pre-assign the id it will
	// correlate streamed frames with. Generated when empty.
	AssistantMessageID string
	// Streaming selects token-streamed delivery; requires a Sink.
	Streaming bool
}

func NewOrchestrator(store Store, searcher Searcher, provider Provider, cache EmbeddingCache) *Orchestrator {
	return &Orchestrator{
		store:    store,
		searcher: searcher,
		provider: provider,
		cache:    cache,
	}
}

// PassageCount derives the retrieval budget from the number of selected
// documents: fewer documents means more passages requested overall.
func PassageCount(numDocs int) int {
	count := int(math.Floor(11 - float64(numDocs)*0.8))
	if count < minPassages {
		count = minPassages
	}
	return count
}

// ProcessTurn runs one assistant turn: persist the user message, embed
// the question, search the conversation's documents, generate an
// answer, and persist the result with its citation links.
//
// The returned message carries terminal status SUCCESS or ERROR; a
// non-nil error always pairs with ERROR. Writes are not transactional
// with generation: a crash after generation but before persistence
// loses the record while the client keeps the answer. Accepted
// best-effort gap. The server does not serialize concurrent turns
// against one conversation; the client is expected not to submit while
// one is pending.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest, sink Sink) (*models.Message, error) {
	start := time.Now()

	// CREATED: the user message gets its timestamp now, so display
	// order survives out-of-order persistence.
	userMsg := &models.Message{
		ID:             uuid.New().String(),
		ConversationID: req.ConversationID,
		Role:           models.RoleUser,
		Content:        req.Message,
		Status:         models.StatusSuccess,
		CreatedAt:      time.Now(),
	}
	if err := o.store.InsertMessage(userMsg); err != nil {
		logger.Error("Failed to persist user message", zap.Error(err))
	}

	assistantID := req.AssistantMessageID
	if assistantID == "" {
		assistantID = uuid.New().String()
	}

	assistant := models.Message{
		ID:             assistantID,
		ConversationID: req.ConversationID,
		Role:           models.RoleAssistant,
		Content:        "",
		Status:         models.StatusPending,
		CreatedAt:      time.Now(),
	}

	conv, err := o.store.GetConversation(req.ConversationID)
	if err != nil {
		return o.failTurn(&assistant, sink, "created", fmt.Errorf("unknown conversation: %w", err))
	}

	docs, err := o.store.GetDocumentsByID(conv.DocumentIDs)
	if err != nil {
		return o.failTurn(&assistant, sink, "created", fmt.Errorf("failed to load documents: %w", err))
	}

	// EMBEDDING
	embedding, err := o.embedQuery(ctx, req.Message)
	if err != nil {
		return o.failTurn(&assistant, sink, "embedding", err)
	}

	// SEARCHING
	topK := PassageCount(len(conv.DocumentIDs))
	results, err := o.searcher.Search(ctx, embedding, topK, conv.DocumentIDs)
	if err != nil {
		return o.failTurn(&assistant, sink, "searching", err)
	}
	metrics.PassagesRetrieved.Observe(float64(len(results)))

	cits := citationsFromResults(results, assistantID)
	assistant.SubProcesses = citations.BuildSubProcesses(assistantID, cits, docs)

	// GENERATING
	prompt := buildPrompt(req.Message, results, docs)

	if req.Streaming && sink != nil {
		err = o.provider.CompleteStream(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   prompt,
		}, func(delta string) error {
			assistant.Content += delta
			return sink(assistant)
		})
	} else {
		var resp *llm.CompletionResponse
		resp, err = o.provider.Complete(ctx, llm.CompletionRequest{
			SystemPrompt: systemPrompt,
			UserPrompt:   prompt,
		})
		if err == nil {
			assistant.Content = resp.Content
			metrics.LLMTokensUsed.WithLabelValues("completion").Add(float64(resp.Usage.CompletionTokens))
			metrics.LLMTokensUsed.WithLabelValues("prompt").Add(float64(resp.Usage.PromptTokens))
		}
	}

	if err != nil {
		// Partial streamed content stays with the client; the terminal
		// frame flags the failure.
		return o.failTurn(&assistant, sink, "generating", err)
	}

	assistant.Status = models.StatusSuccess
	if sink != nil {
		if err := sink(assistant); err != nil {
			logger.Warn("Failed to deliver terminal frame", zap.Error(err))
		}
	}

	o.persistResult(&assistant, cits)

	metrics.TurnsTotal.WithLabelValues("success").Inc()
	metrics.TurnDuration.WithLabelValues(deliveryMode(req.Streaming)).Observe(time.Since(start).Seconds())

	logger.Info("Turn processed",
		zap.String("conversation_id", req.ConversationID),
		zap.String("message_id", assistantID),
		zap.Int("passages", len(results)),
		zap.Duration("latency", time.Since(start)),
	)

	return &assistant, nil
}

func (o *Orchestrator) embedQuery(ctx context.Context, query string) ([]float32, error) {
	hash := utils.HashString(query)

	if o.cache != nil {
		cached, ok, err := o.cache.GetEmbedding(ctx, hash)
		if err != nil {
			logger.Warn("Embedding cache lookup failed", zap.Error(err))
		}
		if ok {
			metrics.EmbeddingCacheHits.Inc()
			return cached, nil
		}
		metrics.EmbeddingCacheMisses.Inc()
	}

	embedding, err := o.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	if o.cache != nil {
		if err := o.cache.SetEmbedding(ctx, hash, embedding); err != nil {
			logger.Warn("Embedding cache write failed", zap.Error(err))
		}
	}

	return embedding, nil
}

// failTurn finalizes the assistant message with ERROR status, delivers
// the terminal frame, and persists the failed message. Status never
// regresses after this.
func (o *Orchestrator) failTurn(assistant *models.Message, sink Sink, stage string, err error) (*models.Message, error) {
	assistant.Status = models.StatusError

	if sink != nil {
		if sinkErr := sink(*assistant); sinkErr != nil {
			logger.Warn("Failed to deliver error frame", zap.Error(sinkErr))
		}
	}

	if persistErr := o.store.InsertMessage(assistant); persistErr != nil {
		logger.Error("Failed to persist failed assistant message", zap.Error(persistErr))
	}

	metrics.TurnsTotal.WithLabelValues("error").Inc()
	metrics.StageFailures.WithLabelValues(stage).Inc()

	logger.Error("Turn failed",
		zap.String("message_id", assistant.ID),
		zap.String("stage", stage),
		zap.Error(err),
	)

	return assistant, err
}

// persistResult writes the assistant message and one citation row per
// retrieved passage. Failures are logged but not surfaced: the client
// already holds the generated answer.
func (o *Orchestrator) persistResult(assistant *models.Message, cits []models.Citation) {
	if err := o.store.InsertMessage(assistant); err != nil {
		logger.Error("Failed to persist assistant message",
			zap.String("message_id", assistant.ID),
			zap.Error(err),
		)
		return
	}

	for i := range cits {
		if err := o.store.InsertCitation(&cits[i]); err != nil {
			logger.Error("Failed to persist citation",
				zap.String("message_id", assistant.ID),
				zap.String("document_id", cits[i].DocumentID),
				zap.Error(err),
			)
		}
	}
}

func citationsFromResults(results []milvus.SearchResult, messageID string) []models.Citation {
	cits := make([]models.Citation, 0, len(results))
	for _, r := range results {
		cits = append(cits, models.Citation{
			ID:         uuid.New().String(),
			MessageID:  messageID,
			DocumentID: r.DocumentID,
			PageNumber: r.PageNumber,
			Score:      r.Score,
			Text:       r.Text,
		})
	}
	return cits
}

// buildPrompt serializes the retrieved passages with their source
// metadata ahead of the user's question.
func buildPrompt(question string, results []milvus.SearchResult, docs []models.Document) string {
	var b strings.Builder

	b.WriteString("Retrieved passages:\n")
	if len(results) == 0 {
		b.WriteString("(none)\n")
	}
	for i, r := range results {
		b.WriteString(fmt.Sprintf("\n[Passage %d] document=%s page=%d\n", i+1, describeDocument(r.DocumentID, docs), r.PageNumber))
		b.WriteString(r.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)

	return b.String()
}

func describeDocument(id string, docs []models.Document) string {
	for _, d := range docs {
		if d.ID == id {
			return fmt.Sprintf("%s, %s (%s)", d.DocType, d.Geography, d.Year)
		}
	}
	return id
}

func deliveryMode(streaming bool) string {
	if streaming {
		return "streaming"
	}
	return "blocking"
}
