package competitiondb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MemoryRepository is a Repository held in process memory. It backs the
// offline CLI commands; the db argument is ignored.
type MemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]Competition
	now  func() time.Time
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{rows: map[string]Competition{}, now: time.Now}
}

var _ Repository = (*MemoryRepository)(nil)

func copyRow(c Competition) *Competition {
	c.Document = c.Document.Clone()
	return &c
}

func (r *MemoryRepository) Get(_ context.Context, _ bun.IDB, id string) (*Competition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRow(row), nil
}

func (r *MemoryRepository) List(_ context.Context, _ bun.IDB) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, Summary{ID: row.ID, Name: row.Name, Revision: row.Revision, UpdatedAt: row.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r *MemoryRepository) Create(_ context.Context, _ bun.IDB, comp *Competition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[comp.ID]; ok {
		return ErrAlreadyExists
	}
	now := r.now()
	comp.Revision = uuid.New()
	comp.CreatedAt = now
	comp.UpdatedAt = now
	r.rows[comp.ID] = *copyRow(*comp)
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, _ bun.IDB, comp *Competition, expected uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[comp.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Revision != expected {
		return ErrRevisionConflict
	}
	comp.Revision = uuid.New()
	comp.CreatedAt = stored.CreatedAt
	comp.UpdatedAt = r.now()
	r.rows[comp.ID] = *copyRow(*comp)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, _ bun.IDB, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}
