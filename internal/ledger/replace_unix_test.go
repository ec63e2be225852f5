//go:build !windows

package ledger

import "syscall"

var sharingViolation error = syscall.EBUSY
