package booth

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by template operations.
var (
	ErrNoEmptySlot     = errors.New("no empty slot available")
	ErrNothingToPrint  = errors.New("nothing to print")
	ErrSlotOutOfRange  = errors.New("slot index out of range")
	ErrSlotEmpty       = errors.New("slot is empty")
	ErrPhotoConsumed   = errors.New("photo was already printed or deleted")
	ErrOwnerChanged    = errors.New("template owner changed")
	ErrNoOwner         = errors.New("template has no owner")
	ErrPrintInProgress = errors.New("a print is already in progress")
	ErrNoPendingPrint  = errors.New("no print is awaiting confirmation")
)

// TransientFetchError wraps a store failure during a poll tick. The tick is
// skipped and retried on the next interval.
type TransientFetchError struct {
	OwnerID string
	Err     error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch photos for %s: %v", e.OwnerID, e.Err)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed store write. Local state has been rolled
// back (remove), left dirty (save) or left untouched (mark printed).
type PersistenceError struct {
	Op       string
	PhotoIDs []string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, strings.Join(e.PhotoIDs, ","), e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistenceError reports whether err is or wraps a PersistenceError.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
