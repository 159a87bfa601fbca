package models

import "time"

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type MessageStatus string

const (
	StatusPending MessageStatus = "PENDING"
	StatusSuccess MessageStatus = "SUCCESS"
	StatusError   MessageStatus = "ERROR"
)

// SubProcessSource tags where a citation group came from. A single
// variant exists today.
type SubProcessSource string

const (
	SourcePlaceholder SubProcessSource = "PLACEHOLDER"
)

// Document is a retrievable regulatory source artifact. Color is
// display-only and assigned at normalization time; every other field is
// immutable once stored.
type Document struct {
	ID        string    `json:"id"`
	DocType   string    `json:"doc_type"`
	FullName  string    `json:"full_name"`
	Geography string    `json:"geography"`
	Year      string    `json:"year"`
	Quarter   string    `json:"quarter,omitempty"`
	Language  string    `json:"language,omitempty"`
	URL       string    `json:"url"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation's document set is fixed at creation.
type Conversation struct {
	ID          string    `json:"id"`
	DocumentIDs []string  `json:"document_ids"`
	CreatedAt   time.Time `json:"created_at"`
}

type Message struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Role           MessageRole         `json:"role"`
	Content        string              `json:"content"`
	Status         MessageStatus       `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	SubProcesses   []MessageSubProcess `json:"sub_processes,omitempty"`
}

// MessageSubProcess is one citation group attached to an assistant
// message, keyed by source document. At most one exists per
// (message, document) pair.
type MessageSubProcess struct {
	ID        string           `json:"id"`
	MessageID string           `json:"message_id"`
	Source    SubProcessSource `json:"source"`
	Metadata  SubQuestion      `json:"metadata_map"`
}

// SubQuestion carries the group's display label and its citations.
type SubQuestion struct {
	Question  string     `json:"question"`
	Citations []Citation `json:"citations"`
}

// Citation is one retrieved passage backing an answer. Score direction
// depends on the search provider and is not normalized here.
type Citation struct {
	ID         string  `json:"id"`
	MessageID  string  `json:"message_id"`
	DocumentID string  `json:"document_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// Passage is one stored chunk of an ingested document.
type Passage struct {
	ID         string
	DocumentID string
	PageNumber int
	Index      int
	Text       string
	CreatedAt  time.Time
}
