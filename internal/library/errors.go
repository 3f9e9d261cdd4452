package library

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotFound         = errors.New("not in library")
	ErrDuplicate        = errors.New("already in library")
	ErrInvalidArg       = errors.New("invalid argument")
	ErrPersistenceRead  = errors.New("library read failed")
	ErrPersistenceWrite = errors.New("library write failed")
)

// EntryError provides context for a failed library operation.
type EntryError struct {
	Op     string // operation that failed, e.g. "add"
	GameID int    // 0 when the operation is not about one game
	Err    error
}

func (e *EntryError) Error() string {
	if e.GameID != 0 {
		return fmt.Sprintf("%s game %d: %v", e.Op, e.GameID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

func entryErr(op string, id int, err error) error {
	return &EntryError{Op: op, GameID: id, Err: err}
}
