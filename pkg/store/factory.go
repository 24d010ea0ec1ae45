package store

import (
	"context"
	"fmt"
	"strings"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend       string
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
}

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"mongo"    - MongoDB collection (default)
//	"postgres" - Postgres table via GORM
//	"memory"   - in-memory, for tests and local runs
func New(ctx context.Context, cfg Config) (Store, error) {
	switch NormalizeBackend(cfg.Backend) {
	case BackendMongo:
		s, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendPostgres:
		s, err := NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: mongo, postgres, memory)", cfg.Backend)
	}
}

// NormalizeBackend lowercases name and maps the empty name to mongo.
func NormalizeBackend(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return BackendMongo
	}
	return name
}
