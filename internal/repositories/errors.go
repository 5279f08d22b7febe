package repositories

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrInvalidArgument marks caller-correctable input errors.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConversationNotFound is returned for unknown conversation ids.
	ErrConversationNotFound = errors.New("conversation not found")
	// ErrUnavailable wraps every storage failure. Callers should not show the
	// wrapped text to clients.
	ErrUnavailable = errors.New("storage unavailable")
)

func invalidArgument(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, reason)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
