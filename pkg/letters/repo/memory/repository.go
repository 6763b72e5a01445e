package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-letters/pkg/letters"
)

// Repository implements letters.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*letters.Letter
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records: make(map[uuid.UUID]*letters.Letter),
	}
}

func (r *Repository) Create(ctx context.Context, letter *letters.Letter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	record := *letter
	r.records[letter.ID] = &record

	return nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID, ownerID int64) (*letters.Letter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.records[id]
	if !exists || record.OwnerID != ownerID {
		return nil, letters.ErrLetterNotFound
	}

	letter := *record
	return &letter, nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]*letters.Letter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var list []*letters.Letter
	for _, record := range r.records {
		if record.OwnerID != ownerID {
			continue
		}
		letter := *record
		list = append(list, &letter)
	}

	// Newest first, matching the SQL repository's ordering
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	return list, nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id uuid.UUID, ownerID int64, category letters.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[id]
	if !exists || record.OwnerID != ownerID {
		return letters.ErrLetterNotFound
	}
	record.Category = category

	return nil
}

func (r *Repository) SetImageKey(ctx context.Context, id uuid.UUID, ownerID int64, objectKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[id]
	if !exists || record.OwnerID != ownerID {
		return letters.ErrLetterNotFound
	}
	record.ImageKey = objectKey

	return nil
}

func (r *Repository) SetMood(ctx context.Context, id uuid.UUID, ownerID int64, mood, detailedMood string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[id]
	if !exists || record.OwnerID != ownerID {
		return letters.ErrLetterNotFound
	}
	record.Mood = mood
	record.DetailedMood = detailedMood

	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.records[id]
	if !exists || record.OwnerID != ownerID {
		return false, nil
	}
	delete(r.records, id)

	return true, nil
}
