package store

import (
	"context"
	"testing"

	"bookshelf/pkg/domain"
)

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreListKeepsInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var want []string
	for _, title := range []string{"a", "b", "c"} {
		b, err := s.InsertBook(ctx, domain.NewBook{Author: "x", Title: title})
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		want = append(want, b.Title)
	}
	first, _ := s.ListBooks(ctx)
	if _, err := s.DeleteBook(ctx, first[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	books, _ := s.ListBooks(ctx)
	if len(books) != 2 || books[0].Title != want[0] || books[1].Title != want[2] {
		t.Fatalf("unexpected order after delete: %+v", books)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	created, err := s.InsertBook(ctx, domain.NewBook{Author: "A", Title: "T", ISBN: strPtr("1")})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	*created.ISBN = "mutated"

	got, _, _ := s.GetBook(ctx, created.ID)
	if *got.ISBN != "1" {
		t.Fatalf("stored book mutated through returned value: %q", *got.ISBN)
	}
}
