package documents

import (
	"sort"

	"github.com/govscan/backend/internal/storage/models"
)

// documentColors is the fixed display palette, assigned cyclically.
var documentColors = []string{
	"#f28b82",
	"#fbbc04",
	"#fff475",
	"#ccff90",
	"#a7ffeb",
	"#cbf0f8",
	"#aecbfa",
	"#d7aefb",
	"#fdcfe8",
	"#e6c9a8",
}

// RawDocument is the heterogeneous record shape produced by the
// persistence layer. Backend variants disagree on field names, so both
// spellings are accepted and reconciled here.
type RawDocument struct {
	ID        string `json:"id"`
	DocType   string `json:"doc_type"`
	FullName  string `json:"full_name"`
	Geography string `json:"geography"`
	Year      string `json:"year"`
	Quarter   string `json:"quarter"`
	Language  string `json:"language"`
	URL       string `json:"url"`
	SourceURL string `json:"source_url"`
	CreatedAt int64  `json:"created_at"`
}

func (r RawDocument) url() string {
	if r.URL != "" {
		return r.URL
	}
	return r.SourceURL
}

// Normalize converts raw records into canonical Documents.
//
// Records are sorted oldest-first so the de-dupe pass below keeps the
// earliest occurrence per key. Records without a doc type carry no
// recognized classification and are excluded, not treated as errors.
// Colors cycle through the palette by insertion order.
func Normalize(raw []RawDocument) []models.Document {
	sorted := make([]RawDocument, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt < sorted[j].CreatedAt
	})

	docs := make([]models.Document, 0, len(sorted))
	for _, r := range sorted {
		if r.DocType == "" {
			continue
		}

		fullName := r.FullName
		if fullName == "" {
			fullName = r.DocType
		}

		docs = append(docs, models.Document{
			ID:        r.ID,
			DocType:   r.DocType,
			FullName:  fullName,
			Geography: r.Geography,
			Year:      r.Year,
			Quarter:   r.Quarter,
			Language:  r.Language,
			URL:       r.url(),
			Color:     documentColors[len(docs)%len(documentColors)],
		})
	}

	return dedupe(docs)
}

// DedupeKey is the identity under which duplicate upstream rows
// collapse: same document id, year, and quarter.
func DedupeKey(d models.Document) string {
	return d.ID + "-" + d.Year + "-" + d.Quarter
}

func dedupe(docs []models.Document) []models.Document {
	seen := make(map[string]bool, len(docs))
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		key := DedupeKey(d)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// FindByID returns the document with the given id, or nil.
func FindByID(id string, docs []models.Document) *models.Document {
	for i := range docs {
		if docs[i].ID == id {
			return &docs[i]
		}
	}
	return nil
}

// FromStored adapts persistence-layer documents to raw records so the
// single normalization path serves both fresh fetches and replay.
func FromStored(stored []models.Document) []RawDocument {
	raw := make([]RawDocument, 0, len(stored))
	for _, d := range stored {
		raw = append(raw, RawDocument{
			ID:        d.ID,
			DocType:   d.DocType,
			FullName:  d.FullName,
			Geography: d.Geography,
			Year:      d.Year,
			Quarter:   d.Quarter,
			Language:  d.Language,
			URL:       d.URL,
			CreatedAt: d.CreatedAt.Unix(),
		})
	}
	return raw
}
