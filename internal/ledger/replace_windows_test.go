//go:build windows

package ledger

var sharingViolation error = errorSharingViolation
