package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"bookshelf/pkg/domain"
)

const mongoConnectTimeout = 5 * time.Second

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	books  *mongo.Collection
}

// NewMongoStore connects to uri, verifies the server answers and scopes the
// store to the books collection of database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, errors.New("mongo uri required")
	}
	database = strings.TrimSpace(database)
	if database == "" {
		return nil, errors.New("mongo database name required")
	}
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(mongoConnectTimeout).
		SetServerSelectionTimeout(mongoConnectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client: client,
		books:  client.Database(database).Collection(BooksCollection),
	}, nil
}

// ListBooks returns all books in natural order.
func (s *MongoStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	cur, err := s.books.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find books: %w", err)
	}
	defer cur.Close(ctx)
	books := make([]domain.Book, 0)
	if err := cur.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	return books, nil
}

// InsertBook stores a new book document.
func (s *MongoStore) InsertBook(ctx context.Context, b domain.NewBook) (domain.Book, error) {
	book := b.WithID(domain.NewID())
	if _, err := s.books.InsertOne(ctx, book); err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// GetBook looks up one book by identifier.
func (s *MongoStore) GetBook(ctx context.Context, id primitive.ObjectID) (domain.Book, bool, error) {
	var book domain.Book
	if err := s.books.FindOne(ctx, bson.M{"_id": id}).Decode(&book); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, fmt.Errorf("find book: %w", err)
	}
	return book, true, nil
}

// UpdateBook applies patch with $set and returns the document after the update.
func (s *MongoStore) UpdateBook(ctx context.Context, id primitive.ObjectID, patch domain.BookPatch) (domain.Book, bool, error) {
	if patch.Empty() {
		return s.GetBook(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var book domain.Book
	err := s.books.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": patch.Fields()}, opts).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, fmt.Errorf("update book: %w", err)
	}
	return book, true, nil
}

// DeleteBook removes one book and reports the deleted count.
func (s *MongoStore) DeleteBook(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.books.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, fmt.Errorf("delete book: %w", err)
	}
	return res.DeletedCount, nil
}

// Ping checks the primary is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
