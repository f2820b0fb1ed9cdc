package media

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pairwave/mediaflow/internal/common"
	"github.com/pairwave/mediaflow/internal/server/models"
)

// InMemoryRepository keeps media rows in a map. Used by the dev server when
// no DSN is configured, and by tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*models.Media
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: make(map[string]*models.Media)}
}

func (r *InMemoryRepository) Create(ctx context.Context, m *models.Media) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *m
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	r.items[m.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *InMemoryRepository) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.items {
		if m.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Media, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Media
	for _, m := range r.items {
		if m.OwnerID == ownerID {
			cp := *m
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status models.MediaStatus, etag, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.items[id]
	if !ok {
		return common.ErrorNotFound
	}
	m.Status = status
	if etag != "" {
		m.ETag = etag
	}
	if errorMessage != "" {
		m.ErrorMessage = errorMessage
	}
	m.UpdatedAt = time.Now()
	return nil
}

func (r *InMemoryRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.items, id)
	return nil
}
