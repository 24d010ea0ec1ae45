package domain

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID matches every identifier parse failure.
var ErrInvalidID = errors.New("invalid id")

// InvalidIDError reports a path identifier that is not a valid ObjectID.
type InvalidIDError struct {
	Raw string
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("InvalidId: %s is not a valid ID", e.Raw)
}

func (e *InvalidIDError) Is(target error) bool {
	return target == ErrInvalidID
}

// ParseID decodes the wire form of a book identifier.
func ParseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, &InvalidIDError{Raw: raw}
	}
	return id, nil
}

// FormatID encodes id for the wire.
func FormatID(id primitive.ObjectID) string {
	return id.Hex()
}

// NewID allocates a fresh identifier. Every store backend uses it so ids look
// the same regardless of where the book lives.
func NewID() primitive.ObjectID {
	return primitive.NewObjectID()
}
