// Package history maintains the bounded, ordered collection of past
// generations. The collection lives in memory and is written through to a
// storage backend as a single JSON blob after every mutation, so the
// persisted state is always a snapshot of what the store holds.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/nafisa/promptpix/internal/storage"
	"github.com/nafisa/promptpix/pkg/models"
)

// MaxHistory is the hard bound on retained generations. Inserting beyond
// it evicts the oldest entries.
const MaxHistory = 50

const blobKey = "history"

var ErrNilImage = errors.New("image cannot be nil")

type Store struct {
	storage storage.Storage

	mu     sync.Mutex
	images []*models.GeneratedImage
}

func NewStore(st storage.Storage) *Store {
	return &Store{storage: st}
}

// Load rehydrates the collection from storage. A missing blob yields an
// empty collection. A blob that fails to parse also yields an empty
// collection: a corrupt history file must never take the tool down, so it
// is logged and discarded.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.storage.Read(blobKey)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if !ok {
		s.images = nil
		return nil
	}

	var images []*models.GeneratedImage
	if err := json.Unmarshal(data, &images); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: corrupt history blob, starting with empty history: %v\n", err)
		s.images = nil
		return nil
	}

	s.images = images
	return nil
}

// Insert prepends img, evicts the oldest entries beyond MaxHistory, and
// persists the whole collection before returning. An entry with the same
// id is replaced rather than duplicated.
func (s *Store) Insert(img *models.GeneratedImage) error {
	if img == nil {
		return ErrNilImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.images[:0:0]
	for _, existing := range s.images {
		if existing.ID != img.ID {
			kept = append(kept, existing)
		}
	}

	s.images = append([]*models.GeneratedImage{img}, kept...)
	if len(s.images) > MaxHistory {
		s.images = s.images[:MaxHistory]
	}

	return s.persist()
}

// Remove deletes the entry with the given id. An unknown id is a no-op,
// including the persistence write.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, img := range s.images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	s.images = append(s.images[:idx], s.images[idx+1:]...)
	return s.persist()
}

// All returns the collection most-recent-first. The returned slice is a
// copy; callers cannot reorder the store through it.
func (s *Store) All() []*models.GeneratedImage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.GeneratedImage, len(s.images))
	copy(out, s.images)
	return out
}

func (s *Store) Get(id string) (*models.GeneratedImage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range s.images {
		if img.ID == id {
			return img, true
		}
	}
	return nil, false
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

func (s *Store) persist() error {
	data, err := json.Marshal(s.images)
	if err != nil {
		return fmt.Errorf("failed to serialize history: %w", err)
	}
	if err := s.storage.Write(blobKey, data); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}
