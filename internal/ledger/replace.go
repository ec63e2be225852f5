package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// writeAtomic writes f to a temp file beside path, fsyncs it and renames
// it over path. The temp file is removed whatever happens.
func (w *Writer) writeAtomic(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", types.ErrWriteFailure, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write workbook: %w", types.ErrWriteFailure, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync temp file: %w", types.ErrWriteFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %w", types.ErrWriteFailure, err)
	}
	return w.replace(tmpName, path)
}

// replace renames src over dst. Sharing violations, raised while another
// program has dst open, are retried up to ReplaceAttempts times; any
// other error fails at once.
func (w *Writer) replace(src, dst string) error {
	var err error
	for attempt := 1; attempt <= w.opts.ReplaceAttempts; attempt++ {
		if err = w.rename(src, dst); err == nil {
			return nil
		}
		if !isSharingViolation(err) {
			break
		}
		w.log.Warn("ledger in use, retrying replace",
			"path", dst, "attempt", attempt, "of", w.opts.ReplaceAttempts, "err", err)
		if attempt < w.opts.ReplaceAttempts {
			time.Sleep(w.opts.ReplaceDelay)
		}
	}
	return fmt.Errorf("%w: replace %s: %w", types.ErrWriteFailure, dst, err)
}
