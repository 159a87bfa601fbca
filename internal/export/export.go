package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/govscan/backend/internal/citations"
	"github.com/govscan/backend/internal/documents"
	"github.com/govscan/backend/internal/storage/models"
)

// Transcript renders a conversation as a markdown document: messages in
// created_at order, each assistant message followed by its citations
// grouped by source document.
func Transcript(msgs []models.Message, cits []models.Citation, docs []models.Document) string {
	sorted := make([]models.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var b strings.Builder

	for _, msg := range sorted {
		b.WriteString(fmt.Sprintf("# %s:\n\n", capitalize(string(msg.Role))))
		b.WriteString(msg.Content)
		b.WriteString("\n\n")

		if msg.Role != models.RoleAssistant {
			continue
		}

		var scoped []models.Citation
		for _, c := range cits {
			if c.MessageID == msg.ID {
				scoped = append(scoped, c)
			}
		}
		if len(scoped) == 0 {
			continue
		}

		b.WriteString("## Citations:\n\n")
		writeCitationGroups(&b, scoped, docs)
	}

	return b.String()
}

// writeCitationGroups groups one message's citations by source
// document, heading each group with the document's label.
func writeCitationGroups(b *strings.Builder, cits []models.Citation, docs []models.Document) {
	order, groups := citations.GroupBy(cits, func(c models.Citation) string {
		return c.DocumentID
	})

	for _, docID := range order {
		doc := documents.FindByID(docID, docs)
		if doc == nil {
			continue
		}

		b.WriteString(fmt.Sprintf("### %s, %s (%s):\n\n", doc.DocType, doc.Geography, doc.Year))

		for _, c := range groups[docID] {
			b.WriteString(fmt.Sprintf("**Page %d:** %s\n\n", c.PageNumber, c.Text))
		}
	}
}

// Filename names the exported attachment for a conversation.
func Filename(conversationID string) string {
	return fmt.Sprintf("chat_%s.md", conversationID)
}

func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
