package citations

import (
	"sort"

	"github.com/google/uuid"

	"github.com/govscan/backend/internal/documents"
	"github.com/govscan/backend/internal/storage/models"
)

// BuildSubProcesses groups a message's citations by source document and
// emits one sub-process per group, labeled with the owning document's
// geography. Citations whose document id does not resolve are dropped
// individually without aborting the rest. A message with no citations
// yields nil, not an empty slice: callers distinguish "no citations
// found" from "citations pending".
func BuildSubProcesses(messageID string, cits []models.Citation, docs []models.Document) []models.MessageSubProcess {
	if len(cits) == 0 {
		return nil
	}

	scoped := make([]models.Citation, 0, len(cits))
	for _, c := range cits {
		if c.MessageID != "" && c.MessageID != messageID {
			continue
		}
		scoped = append(scoped, c)
	}

	order, groups := GroupBy(scoped, func(c models.Citation) string {
		return c.DocumentID
	})

	var subs []models.MessageSubProcess
	for _, docID := range order {
		doc := documents.FindByID(docID, docs)
		if doc == nil {
			continue
		}

		group := groups[docID]
		for i := range group {
			group[i].MessageID = messageID
		}

		subs = append(subs, models.MessageSubProcess{
			ID:        uuid.New().String(),
			MessageID: messageID,
			Source:    models.SourcePlaceholder,
			Metadata: models.SubQuestion{
				Question:  doc.Geography,
				Citations: group,
			},
		})
	}

	return subs
}

// AttachCitations rebuilds the per-message display hierarchy for a
// stored conversation: each assistant message gets the sub-processes
// derived from its own citations. A nil citations payload is a no-op
// and messages pass through unchanged.
func AttachCitations(msgs []models.Message, cits []models.Citation, docs []models.Document) []models.Message {
	if cits == nil {
		return msgs
	}

	out := make([]models.Message, len(msgs))
	copy(out, msgs)

	for i := range out {
		if out[i].Role != models.RoleAssistant {
			continue
		}

		var scoped []models.Citation
		for _, c := range cits {
			if c.MessageID == out[i].ID {
				scoped = append(scoped, c)
			}
		}

		out[i].SubProcesses = BuildSubProcesses(out[i].ID, scoped, docs)
	}

	return out
}

// SortCitations orders by score. Direction is explicit because score
// semantics differ by provider: L2 distance wants ascending, similarity
// wants descending.
func SortCitations(cits []models.Citation, ascending bool) {
	sort.SliceStable(cits, func(i, j int) bool {
		if ascending {
			return cits[i].Score < cits[j].Score
		}
		return cits[i].Score > cits[j].Score
	})
}
