package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

const lockPoll = 50 * time.Millisecond

// LockPath returns the companion lock file guarding the ledger at path.
func LockPath(path string) string { return path + ".lock" }

// fileLock is an advisory lock held by creating a companion file. The file
// carries a random token so a writer never removes a lock it does not own.
type fileLock struct {
	path  string
	token string
}

// acquireLock creates the companion lock for ledgerPath, waiting up to
// timeout while another writer holds it. A lock file older than staleAfter
// is assumed abandoned and broken.
func acquireLock(ledgerPath string, timeout, staleAfter time.Duration, log *slog.Logger) (*fileLock, error) {
	lk := &fileLock{path: LockPath(ledgerPath), token: uuid.NewString()}
	deadline := time.Now().Add(timeout)
	for {
		err := lk.tryCreate()
		if err == nil {
			return lk, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: create lock %s: %w", types.ErrWriteFailure, lk.path, err)
		}
		broken, err := lk.breakStale(staleAfter, log)
		if err != nil {
			return nil, fmt.Errorf("%w: break stale lock %s: %w", types.ErrWriteFailure, lk.path, err)
		}
		if broken {
			continue
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s", types.ErrLockHeld, lk.path)
		}
		time.Sleep(lockPoll)
	}
}

// beforeStaleRename runs between reading a stale lock and moving it aside.
var beforeStaleRename = func() {}

// breakStale discards the lock file if it is older than staleAfter and
// reports whether the caller should retry creating it. The file is first
// renamed aside and checked again, so a lock another writer recreated in
// the meantime is restored instead of deleted.
func (l *fileLock) breakStale(staleAfter time.Duration, log *slog.Logger) (bool, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if time.Since(info.ModTime()) <= staleAfter {
		return false, nil
	}
	token, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	beforeStaleRename()
	aside := l.path + "." + uuid.NewString() + ".stale"
	if err := os.Rename(l.path, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, err
	}

	got, readErr := os.ReadFile(aside)
	asideInfo, statErr := os.Stat(aside)
	if readErr == nil && statErr == nil && string(got) == string(token) && time.Since(asideInfo.ModTime()) > staleAfter {
		log.Warn("breaking stale ledger lock", "path", l.path, "age", time.Since(asideInfo.ModTime()).Round(time.Second))
		if err := os.Remove(aside); err != nil {
			log.Warn("remove stale ledger lock", "path", aside, "err", err)
		}
		return true, nil
	}

	// A live lock was moved; put it back without overwriting a newer one.
	if err := os.Link(aside, l.path); err != nil {
		log.Warn("could not restore live ledger lock", "path", l.path, "err", err)
	}
	if err := os.Remove(aside); err != nil {
		log.Warn("remove moved ledger lock", "path", aside, "err", err)
	}
	return false, nil
}

func (l *fileLock) tryCreate() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, werr := f.WriteString(l.token)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(l.path)
		return err
	}
	return nil
}

// release removes the lock file if it still carries this lock's token.
func (l *fileLock) release(log *slog.Logger) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		log.Warn("ledger lock vanished before release", "path", l.path, "err", err)
		return
	}
	if string(data) != l.token {
		log.Warn("ledger lock taken over by another writer", "path", l.path)
		return
	}
	if err := os.Remove(l.path); err != nil {
		log.Warn("release ledger lock", "path", l.path, "err", err)
	}
}
