package service

import (
	"context"
	"sync"

	"github.com/spec-kit/campus-support/internal/domain"
	"github.com/spec-kit/campus-support/internal/repository"
)

// CategoryLookup is a read-through cache of categories keyed by ID. Category
// SLA and domain rarely change; callers that edit them must Invalidate.
type CategoryLookup struct {
	mu      sync.RWMutex
	entries map[string]domain.Category
}

// NewCategoryLookup creates an empty cache.
func NewCategoryLookup() *CategoryLookup {
	return &CategoryLookup{entries: make(map[string]domain.Category)}
}

// Get returns the category, loading it through repo on a miss. A nil lookup
// always reads through.
func (l *CategoryLookup) Get(ctx context.Context, repo repository.CategoryRepository, id string) (*domain.Category, error) {
	if l == nil {
		return repo.GetByID(ctx, id)
	}
	l.mu.RLock()
	cached, ok := l.entries[id]
	l.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.entries[id] = *category
	l.mu.Unlock()
	return category, nil
}

// Invalidate drops one entry, or the whole cache when id is empty.
func (l *CategoryLookup) Invalidate(id string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if id == "" {
		l.entries = make(map[string]domain.Category)
		return
	}
	delete(l.entries, id)
}
