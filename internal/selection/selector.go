package selection

import (
	"go.uber.org/zap"

	"github.com/govscan/backend/internal/documents"
	"github.com/govscan/backend/internal/storage/models"
	"github.com/govscan/backend/pkg/logger"
)

// Selector tracks which documents are chosen for a new conversation.
// Picks cascade: type, then geography within that type, then year; a
// concrete (type, geography, year) triple resolves to exactly one
// document. Choosing a new type invalidates any downstream choice.
//
// Selector is an explicit owned state container, not ambient state; it
// is mutated from a single caller at a time.
type Selector struct {
	available []models.Document
	selected  []models.Document
	maxDocs   int
	store     Store

	docType   string
	geography string
	year      string
}

// NewSelector loads any persisted selection from the store. The
// available catalog always comes fresh from the caller.
func NewSelector(available []models.Document, maxDocs int, store Store) *Selector {
	s := &Selector{
		available: available,
		maxDocs:   maxDocs,
		store:     store,
	}

	if store != nil {
		selected, err := store.Load()
		if err != nil {
			logger.Warn("Failed to load persisted selection", zap.Error(err))
		} else if len(selected) > 0 {
			if len(selected) > maxDocs {
				selected = selected[:maxDocs]
			}
			s.selected = selected
		}
	}

	return s
}

// DocumentTypes lists the distinct document types available, in
// catalog order.
func (s *Selector) DocumentTypes() []string {
	var types []string
	seen := make(map[string]bool)
	for _, d := range s.available {
		if seen[d.DocType] {
			continue
		}
		seen[d.DocType] = true
		types = append(types, d.DocType)
	}
	return types
}

// Geographies lists the geographies available within the active type.
// Nil until a type is chosen.
func (s *Selector) Geographies() []string {
	if s.docType == "" {
		return nil
	}

	var geos []string
	seen := make(map[string]bool)
	for _, d := range s.available {
		if d.DocType != s.docType || seen[d.Geography] {
			continue
		}
		seen[d.Geography] = true
		geos = append(geos, d.Geography)
	}
	return geos
}

// Years lists the years available for the active type and geography.
func (s *Selector) Years() []string {
	if s.docType == "" || s.geography == "" {
		return nil
	}

	var years []string
	for _, d := range s.available {
		if d.DocType == s.docType && d.Geography == s.geography {
			years = append(years, d.Year)
		}
	}
	return years
}

// SelectDocumentType sets the active type filter and clears geography
// and year.
func (s *Selector) SelectDocumentType(docType string) {
	s.docType = docType
	s.geography = ""
	s.year = ""
}

// SelectGeography sets the geography filter within the current type and
// clears year.
func (s *Selector) SelectGeography(geo string) {
	s.geography = geo
	s.year = ""
}

// SetYear finalizes one concrete document choice.
func (s *Selector) SetYear(year string) {
	s.year = year
}

// AddDocument prepends the resolved document to the selection and
// clears the three filters, ready for the next pick. It is a no-op when
// any filter is unset, the document is already selected, or the
// selection is at the configured maximum.
func (s *Selector) AddDocument() bool {
	if s.docType == "" || s.geography == "" || s.year == "" {
		return false
	}
	if len(s.selected) >= s.maxDocs {
		return false
	}

	doc := s.resolve()
	if doc == nil {
		return false
	}
	if documents.FindByID(doc.ID, s.selected) != nil {
		return false
	}

	s.selected = append([]models.Document{*doc}, s.selected...)
	s.docType = ""
	s.geography = ""
	s.year = ""

	s.persist()
	return true
}

// AddAll selects every available document until the maximum is reached,
// leaving a partial addition rather than failing outright.
func (s *Selector) AddAll() int {
	added := 0
	for i := range s.available {
		if len(s.selected) >= s.maxDocs {
			break
		}
		if documents.FindByID(s.available[i].ID, s.selected) != nil {
			continue
		}
		s.selected = append([]models.Document{s.available[i]}, s.selected...)
		added++
	}

	if added > 0 {
		s.persist()
	}
	return added
}

// RemoveDocument removes by position in the selected list.
func (s *Selector) RemoveDocument(index int) {
	if index < 0 || index >= len(s.selected) {
		return
	}
	s.selected = append(s.selected[:index], s.selected[index+1:]...)
	s.persist()
}

func (s *Selector) RemoveAll() {
	s.selected = nil
	s.persist()
}

func (s *Selector) Selected() []models.Document {
	out := make([]models.Document, len(s.selected))
	copy(out, s.selected)
	return out
}

func (s *Selector) SelectedIDs() []string {
	ids := make([]string, 0, len(s.selected))
	for _, d := range s.selected {
		ids = append(ids, d.ID)
	}
	return ids
}

// CanStartConversation reports whether at least one document is
// selected.
func (s *Selector) CanStartConversation() bool {
	return len(s.selected) > 0
}

func (s *Selector) resolve() *models.Document {
	for i := range s.available {
		d := &s.available[i]
		if d.DocType == s.docType && d.Geography == s.geography && d.Year == s.year {
			return d
		}
	}
	return nil
}

func (s *Selector) persist() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.selected); err != nil {
		logger.Warn("Failed to persist selection", zap.Error(err))
	}
}
