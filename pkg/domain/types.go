package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

type ReadStatus string

const (
	StatusRead       ReadStatus = "read"
	StatusReading    ReadStatus = "reading"
	StatusWantToRead ReadStatus = "want-to-read"
)

// ReadStatuses lists every accepted ReadStatus.
var ReadStatuses = []ReadStatus{StatusRead, StatusReading, StatusWantToRead}

// Book is a book document as kept in the books collection.
type Book struct {
	ID         primitive.ObjectID `bson:"_id"`
	Author     string             `bson:"author"`
	Title      string             `bson:"title"`
	ReadStatus *ReadStatus        `bson:"read_status,omitempty"`
	ISBN       *string            `bson:"isbn,omitempty"`
}

// Clone returns a copy of b that shares no memory with it.
func (b Book) Clone() Book {
	return BookPatch{}.Apply(b)
}

// NewBook carries validated fields for a book that has not been stored yet.
type NewBook struct {
	Author     string
	Title      string
	ReadStatus *ReadStatus
	ISBN       *string
}

// WithID returns the stored form of n under id.
func (n NewBook) WithID(id primitive.ObjectID) Book {
	return Book{
		ID:         id,
		Author:     n.Author,
		Title:      n.Title,
		ReadStatus: cloneStatus(n.ReadStatus),
		ISBN:       cloneString(n.ISBN),
	}
}

// BookPatch holds the fields supplied to an update. Nil fields stay untouched.
type BookPatch struct {
	Author     *string
	Title      *string
	ReadStatus *ReadStatus
	ISBN       *string
}

// Empty reports whether the patch changes nothing.
func (p BookPatch) Empty() bool {
	return p.Author == nil && p.Title == nil && p.ReadStatus == nil && p.ISBN == nil
}

// Apply merges p into b and returns the result; b itself is not modified.
func (p BookPatch) Apply(b Book) Book {
	out := Book{
		ID:         b.ID,
		Author:     b.Author,
		Title:      b.Title,
		ReadStatus: cloneStatus(b.ReadStatus),
		ISBN:       cloneString(b.ISBN),
	}
	if p.Author != nil {
		out.Author = *p.Author
	}
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.ReadStatus != nil {
		out.ReadStatus = cloneStatus(p.ReadStatus)
	}
	if p.ISBN != nil {
		out.ISBN = cloneString(p.ISBN)
	}
	return out
}

// Fields returns the patch as a flat field map keyed by document field name.
func (p BookPatch) Fields() map[string]any {
	fields := make(map[string]any, 4)
	if p.Author != nil {
		fields["author"] = *p.Author
	}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.ReadStatus != nil {
		fields["read_status"] = string(*p.ReadStatus)
	}
	if p.ISBN != nil {
		fields["isbn"] = *p.ISBN
	}
	return fields
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStatus(s *ReadStatus) *ReadStatus {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
