package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.uber.org/zap"

	"github.com/govscan/backend/pkg/logger"
)

type Client struct {
	client         client.Client
	collectionName string
	vectorDim      int
}

// Passage is one embedded chunk stored in the collection.
type Passage struct {
	ID         string
	Embedding  []float32
	Text       string
	DocumentID string
	PageNumber int
}

// SearchResult is a flat retrieved passage row. Score is L2 distance:
// lower is better. Downstream sorting takes the direction explicitly
// rather than assuming it.
type SearchResult struct {
	PassageID  string
	Text       string
	DocumentID string
	PageNumber int
	Score      float64
}

func NewClient(endpoint, apiKey, collectionName string, vectorDim int) (*Client, error) {
	c, err := client.NewGrpcClient(context.Background(), endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	logger.Info("Milvus client initialized",
		zap.String("endpoint", endpoint),
		zap.String("collection", collectionName),
	)

	return &Client{
		client:         c,
		collectionName: collectionName,
		vectorDim:      vectorDim,
	}, nil
}

func (m *Client) Close() error {
	return m.client.Close()
}

func (m *Client) CreateCollection(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if has {
		logger.Info("Collection already exists", zap.String("collection", m.collectionName))
		return nil
	}

	schema := &entity.Schema{
		CollectionName: m.collectionName,
		Description:    "Regulatory document passage embeddings",
		Fields: []*entity.Field{
			{
				Name:       "passage_id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.vectorDim),
				},
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "8192",
				},
			},
			{
				Name:     "document_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "page_number",
				DataType: entity.FieldTypeInt64,
			},
		},
	}

	err = m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexIvfFlat(entity.L2, 1024)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	err = m.client.CreateIndex(ctx, m.collectionName, "embedding", idx, false)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = m.client.LoadCollection(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	logger.Info("Collection created and loaded", zap.String("collection", m.collectionName))

	return nil
}

func (m *Client) Insert(ctx context.Context, passages []Passage) error {
	if len(passages) == 0 {
		return nil
	}

	ids := make([]string, len(passages))
	embeddings := make([][]float32, len(passages))
	texts := make([]string, len(passages))
	docIDs := make([]string, len(passages))
	pages := make([]int64, len(passages))

	for i, p := range passages {
		ids[i] = p.ID
		embeddings[i] = p.Embedding
		texts[i] = p.Text
		docIDs[i] = p.DocumentID
		pages[i] = int64(p.PageNumber)
	}

	_, err := m.client.Insert(
		ctx,
		m.collectionName,
		"",
		entity.NewColumnVarChar("passage_id", ids),
		entity.NewColumnFloatVector("embedding", m.vectorDim, embeddings),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnVarChar("document_id", docIDs),
		entity.NewColumnInt64("page_number", pages),
	)

	if err != nil {
		return fmt.Errorf("failed to insert passages: %w", err)
	}

	err = m.client.Flush(ctx, m.collectionName, false)
	if err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	logger.Info("Passages inserted into vector DB", zap.Int("count", len(passages)))

	return nil
}

// Search retrieves the topK nearest passages, restricted to the given
// document ids when any are supplied.
func (m *Client) Search(ctx context.Context, queryEmbedding []float32, topK int, documentIDs []string) ([]SearchResult, error) {
	expr := ""
	if len(documentIDs) > 0 {
		quoted := make([]string, len(documentIDs))
		for i, id := range documentIDs {
			quoted[i] = fmt.Sprintf("%q", id)
		}
		expr = fmt.Sprintf("document_id in [%s]", strings.Join(quoted, ", "))
	}

	sp, _ := entity.NewIndexIvfFlatSearchParam(16)

	searchResult, err := m.client.Search(
		ctx,
		m.collectionName,
		[]string{},
		expr,
		[]string{"passage_id", "text", "document_id", "page_number"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding",
		entity.L2,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0)
	for _, sr := range searchResult {
		idCol, _ := sr.Fields.GetColumn("passage_id").(*entity.ColumnVarChar)
		textCol, _ := sr.Fields.GetColumn("text").(*entity.ColumnVarChar)
		docCol, _ := sr.Fields.GetColumn("document_id").(*entity.ColumnVarChar)
		pageCol, _ := sr.Fields.GetColumn("page_number").(*entity.ColumnInt64)

		if idCol == nil || textCol == nil || docCol == nil || pageCol == nil {
			continue
		}

		for i := 0; i < sr.ResultCount; i++ {
			id, err := idCol.ValueByIdx(i)
			if err != nil {
				continue
			}
			text, _ := textCol.ValueByIdx(i)
			docID, _ := docCol.ValueByIdx(i)
			page, _ := pageCol.ValueByIdx(i)

			results = append(results, SearchResult{
				PassageID:  id,
				Text:       text,
				DocumentID: docID,
				PageNumber: int(page),
				Score:      float64(sr.Scores[i]),
			})
		}
	}

	logger.Debug("Vector search complete",
		zap.Int("requested", topK),
		zap.Int("returned", len(results)),
	)

	return results, nil
}
