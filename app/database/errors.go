package database

import (
	"errors"
	"fmt"
)

var (
	ErrFeedNotFound      = errors.New("feed not found")
	ErrArticleNotFound   = errors.New("article not found")
	ErrFeedAlreadyExists = errors.New("feed already exists")
	ErrStorage           = errors.New("storage error")
)

// storageError keeps the driver error in the chain next to ErrStorage.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrStorage, op, err)
}
