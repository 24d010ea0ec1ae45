package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bookshelf/pkg/domain"
)

// BooksCollection is the collection (or table stem) holding book documents.
const BooksCollection = "books"

// Store defines persistence operations for the books collection.
// Implementations must be safe for concurrent use.
type Store interface {
	// ListBooks returns every book in the backend's natural order. An empty
	// collection yields an empty slice.
	ListBooks(ctx context.Context) ([]domain.Book, error)
	// InsertBook stores b under a freshly allocated identifier.
	InsertBook(ctx context.Context, b domain.NewBook) (domain.Book, error)
	GetBook(ctx context.Context, id primitive.ObjectID) (domain.Book, bool, error)
	// UpdateBook merges patch into the stored book and returns the result.
	UpdateBook(ctx context.Context, id primitive.ObjectID, patch domain.BookPatch) (domain.Book, bool, error)
	// DeleteBook removes at most one book and reports how many were removed.
	DeleteBook(ctx context.Context, id primitive.ObjectID) (int64, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
