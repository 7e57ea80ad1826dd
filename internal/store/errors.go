package store

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the requested row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate means a uniqueness constraint was violated
	ErrDuplicate = errors.New("duplicate record")
)

// translate maps GORM errors onto the store's sentinel errors
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
