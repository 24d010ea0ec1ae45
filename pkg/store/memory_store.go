package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookshelf/pkg/domain"
)

// MemoryStore keeps books in-process. Data is lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	books  map[primitive.ObjectID]domain.Book
	orders []primitive.ObjectID
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{books: make(map[primitive.ObjectID]domain.Book)}
}

// ListBooks returns books in insertion order.
func (m *MemoryStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.orders))
	for _, id := range m.orders {
		if b, ok := m.books[id]; ok {
			res = append(res, b.Clone())
		}
	}
	return res, nil
}

// InsertBook stores b under a new identifier.
func (m *MemoryStore) InsertBook(_ context.Context, b domain.NewBook) (domain.Book, error) {
	book := b.WithID(domain.NewID())
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[book.ID] = book
	m.orders = append(m.orders, book.ID)
	return book.Clone(), nil
}

// GetBook returns a copy of the stored book.
func (m *MemoryStore) GetBook(_ context.Context, id primitive.ObjectID) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	return b.Clone(), true, nil
}

// UpdateBook merges patch into the stored book.
func (m *MemoryStore) UpdateBook(_ context.Context, id primitive.ObjectID, patch domain.BookPatch) (domain.Book, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	updated := patch.Apply(b)
	m.books[id] = updated
	return updated.Clone(), true, nil
}

// DeleteBook removes the book if present.
func (m *MemoryStore) DeleteBook(_ context.Context, id primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[id]; !ok {
		return 0, nil
	}
	delete(m.books, id)
	for i, oid := range m.orders {
		if oid == id {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }
