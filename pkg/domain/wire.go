package domain

// WireBook is the JSON form of a Book.
type WireBook struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Title      string  `json:"title"`
	ReadStatus *string `json:"read_status,omitempty"`
	ISBN       *string `json:"isbn,omitempty"`
}

// ToWire converts b for transport. The result shares no memory with b.
func ToWire(b Book) WireBook {
	out := WireBook{
		ID:     FormatID(b.ID),
		Author: b.Author,
		Title:  b.Title,
		ISBN:   cloneString(b.ISBN),
	}
	if b.ReadStatus != nil {
		s := string(*b.ReadStatus)
		out.ReadStatus = &s
	}
	return out
}

// ToWireList converts books in order. It never returns nil so an empty
// collection encodes as [].
func ToWireList(books []Book) []WireBook {
	out := make([]WireBook, 0, len(books))
	for _, b := range books {
		out = append(out, ToWire(b))
	}
	return out
}
