package types

import (
	"errors"
	"fmt"
)

// Error categories. Every specific error below wraps exactly one of these,
// so callers may test either the category or the specific value with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrReadFailure  = errors.New("ledger read failure")
	ErrWriteFailure = errors.New("ledger write failure")
	ErrAuthFailure  = errors.New("authentication failed")
)

// Validation errors.
var (
	ErrInvalidName          = fmt.Errorf("%w: name must not be empty", ErrValidation)
	ErrInvalidPath          = fmt.Errorf("%w: storage path must not be empty", ErrValidation)
	ErrInvalidOrderNumber   = fmt.Errorf("%w: invalid order number", ErrValidation)
	ErrInvalidCount         = fmt.Errorf("%w: serial count must be positive", ErrValidation)
	ErrSerialOverflow       = fmt.Errorf("%w: serial range exceeds five digits", ErrValidation)
	ErrDuplicateName        = fmt.Errorf("%w: name already exists", ErrValidation)
	ErrDuplicateOrderNumber = fmt.Errorf("%w: order number already exists", ErrValidation)
	ErrDuplicateUsername    = fmt.Errorf("%w: username already exists", ErrValidation)
	ErrInvalidRole          = fmt.Errorf("%w: invalid role", ErrValidation)
	ErrInvalidPassword      = fmt.Errorf("%w: password must not be empty", ErrValidation)
	ErrSelfDelete           = fmt.Errorf("%w: users cannot delete themselves", ErrValidation)
	ErrUserInUse            = fmt.Errorf("%w: user is referenced by orders", ErrValidation)
	ErrInvalidKind          = fmt.Errorf("%w: unknown entity kind", ErrValidation)
	ErrOrderArchived        = fmt.Errorf("%w: order is archived", ErrValidation)
	ErrInvalidTransition    = fmt.Errorf("%w: invalid result transition", ErrValidation)
	ErrMissingExplanation   = fmt.Errorf("%w: explanation required", ErrValidation)
)

// Lookup errors.
var (
	ErrUnknownCompany = fmt.Errorf("%w: company", ErrNotFound)
	ErrUnknownBoard   = fmt.Errorf("%w: board", ErrNotFound)
	ErrUnknownOrder   = fmt.Errorf("%w: order", ErrNotFound)
	ErrUnknownUser    = fmt.Errorf("%w: user", ErrNotFound)
	ErrSerialNotFound = fmt.Errorf("%w: serial", ErrNotFound)
)

// Ledger file errors.
var (
	ErrLedgerExists = fmt.Errorf("%w: ledger file already exists", ErrWriteFailure)
	ErrLockHeld     = fmt.Errorf("%w: ledger is locked by another writer", ErrWriteFailure)
	ErrBadLayout    = fmt.Errorf("%w: unexpected column layout", ErrReadFailure)
)
