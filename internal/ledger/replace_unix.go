//go:build !windows

package ledger

import (
	"errors"
	"syscall"
)

// isSharingViolation reports whether err means the target is busy in
// another process.
func isSharingViolation(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY)
}
