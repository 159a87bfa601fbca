package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	// DSN parameters apply to every pooled connection; a bare PRAGMA
	// would only reach the connection that ran it.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		doc_type TEXT NOT NULL,
		full_name TEXT,
		geography TEXT,
		year TEXT,
		quarter TEXT,
		language TEXT,
		url TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type);
	CREATE INDEX IF NOT EXISTS idx_documents_geography ON documents(geography);

	CREATE TABLE IF NOT EXISTS passages (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		passage_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_passages_document ON passages(document_id);

	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS conversation_documents (
		conversation_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		PRIMARY KEY (conversation_id, document_id),
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE,
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
	CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);

	CREATE TABLE IF NOT EXISTS citations (
		id TEXT PRIMARY KEY,
		message_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		page_number INTEGER NOT NULL,
		score REAL NOT NULL,
		text TEXT NOT NULL,
		FOREIGN KEY (message_id) REFERENCES messages(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_citations_message ON citations(message_id);
	CREATE INDEX IF NOT EXISTS idx_citations_document ON citations(document_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDocument(doc *models.Document) error {
	query := `
		INSERT INTO documents (id, doc_type, full_name, geography, year, quarter, language, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc_type = excluded.doc_type,
			full_name = excluded.full_name,
			url = excluded.url
	`

	_, err := c.db.Exec(
		query,
		doc.ID,
		doc.DocType,
		doc.FullName,
		doc.Geography,
		doc.Year,
		doc.Quarter,
		doc.Language,
		doc.URL,
		doc.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	logger.Debug("Document inserted", zap.String("doc_id", doc.ID), zap.String("url", doc.URL))
	return nil
}

func (c *Client) ListDocuments() ([]models.Document, error) {
	query := `SELECT id, doc_type, full_name, geography, year, quarter, language, url, created_at FROM documents`

	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var d models.Document
		var createdAt int64

		err := rows.Scan(&d.ID, &d.DocType, &d.FullName, &d.Geography, &d.Year, &d.Quarter, &d.Language, &d.URL, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		d.CreatedAt = time.Unix(createdAt, 0)
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

func (c *Client) GetDocumentsByID(ids []string) ([]models.Document, error) {
	docs := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		query := `SELECT id, doc_type, full_name, geography, year, quarter, language, url, created_at FROM documents WHERE id = ?`

		var d models.Document
		var createdAt int64

		err := c.db.QueryRow(query, id).Scan(&d.ID, &d.DocType, &d.FullName, &d.Geography, &d.Year, &d.Quarter, &d.Language, &d.URL, &createdAt)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get document %s: %w", id, err)
		}

		d.CreatedAt = time.Unix(createdAt, 0)
		docs = append(docs, d)
	}

	return docs, nil
}

func (c *Client) InsertPassage(p *models.Passage) error {
	query := `INSERT INTO passages (id, document_id, page_number, passage_index, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, p.ID, p.DocumentID, p.PageNumber, p.Index, p.Text, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert passage: %w", err)
	}

	return nil
}

func (c *Client) CreateConversation(conv *models.Conversation) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO conversations (id, created_at) VALUES (?, ?)`, conv.ID, conv.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}

	for _, docID := range conv.DocumentIDs {
		_, err = tx.Exec(`INSERT INTO conversation_documents (conversation_id, document_id) VALUES (?, ?)`, conv.ID, docID)
		if err != nil {
			return fmt.Errorf("failed to link document %s: %w", docID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}

	logger.Info("Conversation created",
		zap.String("conversation_id", conv.ID),
		zap.Int("documents", len(conv.DocumentIDs)),
	)

	return nil
}

func (c *Client) GetConversation(id string) (*models.Conversation, error) {
	var conv models.Conversation
	var createdAt int64

	err := c.db.QueryRow(`SELECT id, created_at FROM conversations WHERE id = ?`, id).Scan(&conv.ID, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	conv.CreatedAt = time.Unix(createdAt, 0)

	rows, err := c.db.Query(`SELECT document_id FROM conversation_documents WHERE conversation_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var docID string
		if err := rows.Scan(&docID); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		conv.DocumentIDs = append(conv.DocumentIDs, docID)
	}

	return &conv, rows.Err()
}

func (c *Client) InsertMessage(msg *models.Message) error {
	query := `INSERT INTO messages (id, conversation_id, role, content, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		msg.ID,
		msg.ConversationID,
		string(msg.Role),
		msg.Content,
		string(msg.Status),
		msg.CreatedAt.UnixMilli(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	logger.Debug("Message inserted",
		zap.String("message_id", msg.ID),
		zap.String("conversation_id", msg.ConversationID),
		zap.String("role", string(msg.Role)),
	)

	return nil
}

// ListMessages returns a conversation's messages ordered by creation
// time, not insertion order.
func (c *Client) ListMessages(conversationID string) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, role, content, status, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC
	`

	rows, err := c.db.Query(query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var role, status string
		var createdAt int64

		err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &status, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		m.Role = models.MessageRole(role)
		m.Status = models.MessageStatus(status)
		// Millisecond precision keeps the user/assistant pair of one
		// turn ordered even when both land in the same second.
		m.CreatedAt = time.UnixMilli(createdAt)
		msgs = append(msgs, m)
	}

	return msgs, rows.Err()
}

func (c *Client) InsertCitation(cit *models.Citation) error {
	query := `INSERT INTO citations (id, message_id, document_id, page_number, score, text) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, cit.ID, cit.MessageID, cit.DocumentID, cit.PageNumber, cit.Score, cit.Text)
	if err != nil {
		return fmt.Errorf("failed to insert citation: %w", err)
	}

	return nil
}

func (c *Client) ListCitationsByConversation(conversationID string) ([]models.Citation, error) {
	query := `
		SELECT c.id, c.message_id, c.document_id, c.page_number, c.score, c.text
		FROM citations c
		JOIN messages m ON m.id = c.message_id
		WHERE m.conversation_id = ?
	`

	return c.scanCitations(query, conversationID)
}

func (c *Client) ListCitationsByMessage(messageID string) ([]models.Citation, error) {
	query := `SELECT id, message_id, document_id, page_number, score, text FROM citations WHERE message_id = ?`

	return c.scanCitations(query, messageID)
}

func (c *Client) scanCitations(query string, arg string) ([]models.Citation, error) {
	rows, err := c.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list citations: %w", err)
	}
	defer rows.Close()

	var cits []models.Citation
	for rows.Next() {
		var cit models.Citation
		err := rows.Scan(&cit.ID, &cit.MessageID, &cit.DocumentID, &cit.PageNumber, &cit.Score, &cit.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		cits = append(cits, cit)
	}

	return cits, rows.Err()
}
