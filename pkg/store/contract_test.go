package store

import (
	"context"
	"sync"
	"testing"

	"bookshelf/pkg/domain"
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.ReadStatus) *domain.ReadStatus { return &s }

// runStoreContract exercises behavior every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("empty list", func(t *testing.T) {
		s := newStore(t)
		books, err := s.ListBooks(context.Background())
		if err != nil {
			t.Fatalf("list books: %v", err)
		}
		if books == nil || len(books) != 0 {
			t.Fatalf("expected empty non-nil slice, got %#v", books)
		}
	})

	t.Run("insert then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.InsertBook(ctx, domain.NewBook{
			Author:     "Michael G Scott",
			Title:      "Somehow I Manage",
			ReadStatus: statusPtr(domain.StatusWantToRead),
			ISBN:       strPtr("9781463586621"),
		})
		if err != nil {
			t.Fatalf("insert book: %v", err)
		}
		if created.ID.IsZero() {
			t.Fatalf("expected assigned id")
		}
		got, ok, err := s.GetBook(ctx, created.ID)
		if err != nil || !ok {
			t.Fatalf("get book: ok=%v err=%v", ok, err)
		}
		if got.Author != created.Author || got.Title != created.Title {
			t.Fatalf("unexpected book: %+v", got)
		}
		if got.ReadStatus == nil || *got.ReadStatus != domain.StatusWantToRead {
			t.Fatalf("read status lost: %v", got.ReadStatus)
		}
		if got.ISBN == nil || *got.ISBN != "9781463586621" {
			t.Fatalf("isbn lost: %v", got.ISBN)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		id, _ := domain.ParseID("5a6cbc261d242f09ad6bed33")
		if _, ok, err := s.GetBook(context.Background(), id); err != nil || ok {
			t.Fatalf("expected missing book, ok=%v err=%v", ok, err)
		}
	})

	t.Run("list returns inserted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		titles := []string{"Screwtape Letters", "Chronicles of Narnia", "The Great Divorce", "The Weight of Glory"}
		ids := map[string]bool{}
		for _, title := range titles {
			b, err := s.InsertBook(ctx, domain.NewBook{Author: "CS Lewis", Title: title})
			if err != nil {
				t.Fatalf("insert %q: %v", title, err)
			}
			ids[domain.FormatID(b.ID)] = true
		}
		books, err := s.ListBooks(ctx)
		if err != nil {
			t.Fatalf("list books: %v", err)
		}
		if len(books) != len(titles) {
			t.Fatalf("expected %d books, got %d", len(titles), len(books))
		}
		for _, b := range books {
			if !ids[domain.FormatID(b.ID)] {
				t.Fatalf("unexpected book in list: %+v", b)
			}
		}
	})

	t.Run("update merges supplied fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.InsertBook(ctx, domain.NewBook{Author: "A", Title: "T", ISBN: strPtr("1")})
		if err != nil {
			t.Fatalf("insert book: %v", err)
		}
		updated, ok, err := s.UpdateBook(ctx, created.ID, domain.BookPatch{
			Title:      strPtr("T2"),
			ReadStatus: statusPtr(domain.StatusReading),
		})
		if err != nil || !ok {
			t.Fatalf("update book: ok=%v err=%v", ok, err)
		}
		if updated.Author != "A" || updated.Title != "T2" {
			t.Fatalf("unexpected merge: %+v", updated)
		}
		if updated.ISBN == nil || *updated.ISBN != "1" {
			t.Fatalf("isbn should be untouched: %v", updated.ISBN)
		}
		got, _, err := s.GetBook(ctx, created.ID)
		if err != nil {
			t.Fatalf("get book: %v", err)
		}
		if got.Title != "T2" || got.ReadStatus == nil || *got.ReadStatus != domain.StatusReading {
			t.Fatalf("update not persisted: %+v", got)
		}
	})

	t.Run("empty update is a read", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.InsertBook(ctx, domain.NewBook{Author: "A", Title: "T"})
		if err != nil {
			t.Fatalf("insert book: %v", err)
		}
		got, ok, err := s.UpdateBook(ctx, created.ID, domain.BookPatch{})
		if err != nil || !ok {
			t.Fatalf("update book: ok=%v err=%v", ok, err)
		}
		if got.Title != "T" {
			t.Fatalf("unexpected book: %+v", got)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		_, ok, err := s.UpdateBook(context.Background(), domain.NewID(), domain.BookPatch{Title: strPtr("x")})
		if err != nil || ok {
			t.Fatalf("expected not found, ok=%v err=%v", ok, err)
		}
	})

	t.Run("delete twice", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.InsertBook(ctx, domain.NewBook{Author: "A", Title: "T"})
		if err != nil {
			t.Fatalf("insert book: %v", err)
		}
		n, err := s.DeleteBook(ctx, created.ID)
		if err != nil || n != 1 {
			t.Fatalf("first delete: n=%d err=%v", n, err)
		}
		n, err = s.DeleteBook(ctx, created.ID)
		if err != nil || n != 0 {
			t.Fatalf("second delete: n=%d err=%v", n, err)
		}
		if _, ok, _ := s.GetBook(ctx, created.ID); ok {
			t.Fatalf("book still present after delete")
		}
	})

	t.Run("concurrent inserts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const workers = 8
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.InsertBook(ctx, domain.NewBook{Author: "A", Title: "T"})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		books, err := s.ListBooks(ctx)
		if err != nil {
			t.Fatalf("list books: %v", err)
		}
		if len(books) != workers {
			t.Fatalf("expected %d books, got %d", workers, len(books))
		}
	})
}
