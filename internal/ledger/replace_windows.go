//go:build windows

package ledger

import (
	"errors"
	"syscall"
)

const (
	errorAccessDenied     syscall.Errno = 5
	errorSharingViolation syscall.Errno = 32
	errorLockViolation    syscall.Errno = 33
)

// isSharingViolation reports whether err means the target is open in
// another process, typically a spreadsheet application. Access denied is
// included because a rename over an open file reports it on some shares.
func isSharingViolation(err error) bool {
	return errors.Is(err, errorSharingViolation) ||
		errors.Is(err, errorLockViolation) ||
		errors.Is(err, errorAccessDenied)
}
