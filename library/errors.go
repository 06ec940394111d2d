package library

import (
	"errors"
	"fmt"
)

// Business outcomes of a lending request. They are expected results, and the
// state of the catalog and ledger is unchanged whenever one is returned.
var (
	ErrItemNotFound     = errors.New("item not found")
	ErrItemNotAvailable = errors.New("item is not available")
	ErrNoActiveRecord   = errors.New("no active borrow record")
)

// LendingError carries which request a business outcome belongs to.
// errors.Is matches it against the sentinels above.
type LendingError struct {
	Op       string
	ItemID   string
	MemberID string
	Err      error
}

func (e *LendingError) Error() string {
	return fmt.Sprintf("%s item=%s member=%s: %v", e.Op, e.ItemID, e.MemberID, e.Err)
}

func (e *LendingError) Unwrap() error { return e.Err }

// StoreError reports that a lending transition succeeded in memory but could
// not be written to the database or an event sink. The transition stands.
type StoreError struct {
	Op       string
	ItemID   string
	MemberID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("persist %s item=%s member=%s: %v", e.Op, e.ItemID, e.MemberID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsBusinessError reports whether err is one of the ordinary lending outcomes
// rather than an environment failure.
func IsBusinessError(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrItemNotAvailable) ||
		errors.Is(err, ErrNoActiveRecord)
}
