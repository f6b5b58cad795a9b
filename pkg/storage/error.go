package storage

import "errors"

var (
	// ErrInvalidRecord is returned by Put for nil or incomplete records.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrConflict is returned by backends keyed on the timestamp when a record
	// already exists under the same key. Nothing is overwritten.
	ErrConflict = errors.New("record already exists")
)

// NotFoundError is returned when a conversation has no records.
type NotFoundError struct {
	ConversationID string
}

func (e NotFoundError) Error() string {
	if e.ConversationID == "" {
		return "conversation not found"
	}

	return "conversation not found: " + e.ConversationID
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
