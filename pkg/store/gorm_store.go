package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookshelf/pkg/domain"
)

const migrateLockID int64 = 73217321

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database URL required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newGormStore(db, migrateBooks)
}

// newGormStore runs migrate on an opened DB and closes the pool on failure.
func newGormStore(db *gorm.DB, migrate func(*gorm.DB) error) (*GormStore, error) {
	if err := migrate(db); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func migrateBooks(db *gorm.DB) error {
	return withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(&BookModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	})
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// ListBooks returns all books ordered by creation time.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		b, err := bookFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, b)
	}
	return res, nil
}

// InsertBook stores a new row.
func (s *GormStore) InsertBook(ctx context.Context, b domain.NewBook) (domain.Book, error) {
	book := b.WithID(domain.NewID())
	model := bookToModel(book)
	model.CreatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return book, nil
}

// GetBook retrieves a book.
func (s *GormStore) GetBook(ctx context.Context, id primitive.ObjectID) (domain.Book, bool, error) {
	return getBook(s.db.WithContext(ctx), id)
}

func getBook(db *gorm.DB, id primitive.ObjectID) (domain.Book, bool, error) {
	var model BookModel
	if err := db.First(&model, "id = ?", domain.FormatID(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	b, err := bookFromModel(model)
	if err != nil {
		return domain.Book{}, false, err
	}
	return b, true, nil
}

// UpdateBook sets the supplied columns and re-reads the row in one transaction.
func (s *GormStore) UpdateBook(ctx context.Context, id primitive.ObjectID, patch domain.BookPatch) (domain.Book, bool, error) {
	if patch.Empty() {
		return s.GetBook(ctx, id)
	}
	var (
		book  domain.Book
		found bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&BookModel{}).Where("id = ?", domain.FormatID(id)).Updates(patch.Fields())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		var err error
		book, found, err = getBook(tx, id)
		return err
	})
	if err != nil {
		return domain.Book{}, false, fmt.Errorf("update book: %w", err)
	}
	return book, found, nil
}

// DeleteBook removes the row and reports the affected count.
func (s *GormStore) DeleteBook(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&BookModel{}, "id = ?", domain.FormatID(id))
	if res.Error != nil {
		return 0, fmt.Errorf("delete book: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
