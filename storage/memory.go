package storage

import (
	"context"
	"sync"
	"time"

	"newsmint/types"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process article store used when MONGO_URI=memory.
// It enforces the same url uniqueness and single-mint rules as MongoStore.
type MemoryStore struct {
	mu       sync.RWMutex
	articles []*types.Article
	byURL    map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byURL: make(map[string]int)}
}

func (m *MemoryStore) EnsureIndexes(context.Context) error { return nil }

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) FindByURL(_ context.Context, url string) (*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	idx, ok := m.byURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(m.articles[idx]), nil
}

func (m *MemoryStore) FindByID(_ context.Context, id primitive.ObjectID) (*types.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.articles {
		if a.ID == id {
			return clone(a), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Insert(_ context.Context, a *types.Article) (primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byURL[a.URL]; exists {
		return primitive.NilObjectID, ErrDuplicateURL
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}

	m.articles = append(m.articles, clone(a))
	m.byURL[a.URL] = len(m.articles) - 1
	return a.ID, nil
}

func (m *MemoryStore) Count(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.articles)), nil
}

func (m *MemoryStore) List(_ context.Context, skip, limit int64) ([]*types.Article, error) {
	return m.filter(func(*types.Article) bool { return true }, skip, limit), nil
}

func (m *MemoryStore) ListByAddress(_ context.Context, address string, skip, limit int64) ([]*types.Article, error) {
	return m.filter(func(a *types.Article) bool { return a.DagAddress == address }, skip, limit), nil
}

func (m *MemoryStore) filter(match func(*types.Article) bool, skip, limit int64) []*types.Article {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*types.Article, 0)
	var seen int64
	for _, a := range m.articles {
		if !match(a) {
			continue
		}
		seen++
		if seen <= skip {
			continue
		}
		if int64(len(out)) >= limit {
			break
		}
		out = append(out, clone(a))
	}
	return out
}

func (m *MemoryStore) MarkMinted(_ context.Context, id primitive.ObjectID, address, tokenID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.articles {
		if a.ID != id {
			continue
		}
		if a.MintedBy != nil {
			return ErrNotModified
		}
		mintedAt := at.UTC()
		a.MintedBy = &address
		a.MintedAt = &mintedAt
		a.NFTTokenID = &tokenID
		return nil
	}
	return ErrNotModified
}

func clone(a *types.Article) *types.Article {
	c := *a
	c.Videos = append([]string(nil), a.Videos...)
	c.Keywords = append([]string(nil), a.Keywords...)
	return &c
}
