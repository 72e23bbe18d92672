package pagecache

import (
	"context"
	"errors"
	"sync"

	"spacetraveling/models"
)

// ErrMiss 는 저장소에 해당 slug 페이지가 없다는 뜻이다.
var ErrMiss = errors.New("pagecache: miss")

// Store 는 생성된 페이지 저장소다. 없는 slug 는 ErrMiss 를 반환해야 한다.
type Store interface {
	Get(ctx context.Context, slug string) (*models.Page, error)
	Put(ctx context.Context, page *models.Page) error
	Delete(ctx context.Context, slug string) error
}

// SlugLister 는 저장된 slug 전체를 한 번에 돌려줄 수 있는 Store 다.
type SlugLister interface {
	ListSlugs(ctx context.Context) ([]string, error)
}

// MemoryStore 는 단일 프로세스용 Store 다.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]models.Page
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pages: make(map[string]models.Page)}
}

func (m *MemoryStore) Get(_ context.Context, slug string) (*models.Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[slug]
	if !ok {
		return nil, ErrMiss
	}
	return &p, nil
}

func (m *MemoryStore) Put(_ context.Context, page *models.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.Slug] = *page
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, slug)
	return nil
}

func (m *MemoryStore) ListSlugs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slugs := make([]string, 0, len(m.pages))
	for slug := range m.pages {
		slugs = append(slugs, slug)
	}
	return slugs, nil
}
