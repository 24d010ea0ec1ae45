package app

import (
	"context"
	"fmt"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	// Store is used as-is when set; otherwise one is built from StoreConfig.
	Store       store.Store
	StoreConfig store.Config
}

// App is the core application service: it validates input and talks to the
// book store. Callers serialize the results.
type App struct {
	store  store.Store
	schema *Schema
}

// New constructs the application, opening the configured store when none is given.
func New(ctx context.Context, cfg Config) (*App, error) {
	schema, err := NewSchema()
	if err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	dataStore := cfg.Store
	if dataStore == nil {
		dataStore, err = store.New(ctx, cfg.StoreConfig)
		if err != nil {
			return nil, fmt.Errorf("init %s store: %w", store.NormalizeBackend(cfg.StoreConfig.Backend), err)
		}
	}
	return &App{store: dataStore, schema: schema}, nil
}

// ListBooks returns every stored book.
func (a *App) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return a.store.ListBooks(ctx)
}

// CreateBook validates raw as a create payload and stores it.
func (a *App) CreateBook(ctx context.Context, raw []byte) (domain.Book, error) {
	fields, err := a.schema.ValidateCreate(raw)
	if err != nil {
		return domain.Book{}, err
	}
	return a.store.InsertBook(ctx, fields)
}

// GetBook looks up a book by its wire identifier.
func (a *App) GetBook(ctx context.Context, rawID string) (domain.Book, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

// UpdateBook merges the fields supplied in raw into an existing book.
func (a *App) UpdateBook(ctx context.Context, rawID string, raw []byte) (domain.Book, error) {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return domain.Book{}, err
	}
	patch, err := a.schema.ValidateUpdate(raw)
	if err != nil {
		return domain.Book{}, err
	}
	book, ok, err := a.store.UpdateBook(ctx, id, patch)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrNotFound
	}
	return book, nil
}

// DeleteBook removes a book; ErrNotFound when nothing was deleted.
func (a *App) DeleteBook(ctx context.Context, rawID string) error {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}
	n, err := a.store.DeleteBook(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping reports whether the store is reachable.
func (a *App) Ping(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// Close releases the store.
func (a *App) Close(ctx context.Context) error {
	return a.store.Close(ctx)
}
