package selection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/govscan/backend/internal/storage/models"
)

// storageKey is the fixed name the selected-document list persists
// under, mirroring the browser storage key it replaces.
const storageKey = "selected_documents"

// Store persists the selected-document list across restarts. The
// available-document catalog is never persisted; it is re-fetched on
// each mount.
type Store interface {
	Load() ([]models.Document, error)
	Save(docs []models.Document) error
}

// FileStore keeps the selection as a JSON file under a fixed name in
// the configured directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create selection store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, storageKey+".json")
}

func (s *FileStore) Load() ([]models.Document, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read selection: %w", err)
	}

	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode selection: %w", err)
	}

	return docs, nil
}

func (s *FileStore) Save(docs []models.Document) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("failed to encode selection: %w", err)
	}

	if err := os.WriteFile(s.path(), data, 0644); err != nil {
		return fmt.Errorf("failed to write selection: %w", err)
	}

	return nil
}
