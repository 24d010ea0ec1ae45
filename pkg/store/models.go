package store

import (
	"fmt"
	"time"

	"bookshelf/pkg/domain"
)

// BookModel is the GORM model for the Postgres backend. The identifier is the
// hex form of the ObjectID so ids look the same across backends.
type BookModel struct {
	ID         string    `gorm:"primaryKey;size:24"`
	Author     string    `gorm:"not null"`
	Title      string    `gorm:"not null"`
	ReadStatus *string   `gorm:"column:read_status"`
	ISBN       *string   `gorm:"column:isbn"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func bookToModel(b domain.Book) BookModel {
	m := BookModel{
		ID:     domain.FormatID(b.ID),
		Author: b.Author,
		Title:  b.Title,
	}
	if b.ReadStatus != nil {
		s := string(*b.ReadStatus)
		m.ReadStatus = &s
	}
	if b.ISBN != nil {
		isbn := *b.ISBN
		m.ISBN = &isbn
	}
	return m
}

func bookFromModel(m BookModel) (domain.Book, error) {
	id, err := domain.ParseID(m.ID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("stored book id %q: %w", m.ID, err)
	}
	b := domain.Book{
		ID:     id,
		Author: m.Author,
		Title:  m.Title,
	}
	if m.ReadStatus != nil {
		s := domain.ReadStatus(*m.ReadStatus)
		b.ReadStatus = &s
	}
	if m.ISBN != nil {
		isbn := *m.ISBN
		b.ISBN = &isbn
	}
	return b, nil
}
