package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Options tune the Writer. Zero durations and attempts take the values
// from types.Defaults.
type Options struct {
	ReplaceAttempts int
	ReplaceDelay    time.Duration
	LockTimeout     time.Duration
	LockStaleAfter  time.Duration

	Logger *slog.Logger
	Now    func() time.Time
}

// OptionsFromConfig copies the ledger section of the configuration.
func OptionsFromConfig(cfg types.LedgerConfig, log *slog.Logger) Options {
	return Options{
		ReplaceAttempts: cfg.ReplaceAttempts,
		ReplaceDelay:    cfg.ReplaceDelay,
		LockTimeout:     cfg.LockTimeout,
		LockStaleAfter:  cfg.LockStaleAfter,
		Logger:          log,
	}
}

// Writer creates ledgers and records results in them.
type Writer struct {
	opts   Options
	log    *slog.Logger
	now    func() time.Time
	rename func(src, dst string) error
}

// NewWriter returns a Writer with opts applied over the defaults.
func NewWriter(opts Options) *Writer {
	def := types.Defaults().Ledger
	if opts.ReplaceAttempts <= 0 {
		opts.ReplaceAttempts = def.ReplaceAttempts
	}
	if opts.ReplaceDelay <= 0 {
		opts.ReplaceDelay = def.ReplaceDelay
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = def.LockTimeout
	}
	if opts.LockStaleAfter <= 0 {
		opts.LockStaleAfter = def.LockStaleAfter
	}
	w := &Writer{opts: opts, log: opts.Logger, now: opts.Now, rename: os.Rename}
	if w.log == nil {
		w.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Create writes a new ledger for spec in dir and returns its path,
// {dir}/{order number}.xlsx. Every serial starts Pending.
func (w *Writer) Create(dir string, spec types.OrderSpec) (path string, err error) {
	defer w.logFailure("create_ledger", &err, "order", spec.OrderNumber, "dir", dir)

	if strings.TrimSpace(dir) == "" {
		return "", fmt.Errorf("%w: ledger directory is empty", types.ErrInvalidPath)
	}
	if err := types.ValidateOrderNumber(spec.OrderNumber); err != nil {
		return "", err
	}
	if spec.Count <= 0 {
		return "", fmt.Errorf("%w: %d", types.ErrInvalidCount, spec.Count)
	}
	if spec.Start <= 0 {
		spec.Start = 1
	}
	if spec.Prefix == "" {
		spec.Prefix = types.DefaultSerialPrefix
	}
	if last := spec.Start + spec.Count - 1; last > MaxSequence {
		return "", fmt.Errorf("%w: last sequence would be %d", types.ErrSerialOverflow, last)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create directory: %w", types.ErrWriteFailure, err)
	}
	path = filepath.Join(dir, spec.OrderNumber+Extension)

	// Reserve the name first so two creators cannot both succeed.
	placeholder, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", types.ErrLedgerExists, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: reserve %s: %w", types.ErrWriteFailure, path, err)
	}
	placeholder.Close()

	if err := w.writeNew(path, spec); err != nil {
		os.Remove(path)
		return "", err
	}
	w.log.Info("ledger created", "op", "create_ledger", "order", spec.OrderNumber, "path", path, "serials", spec.Count)
	return path, nil
}

func (w *Writer) writeNew(path string, spec types.OrderSpec) error {
	createdAt := w.now().Format(types.TimestampLayout)
	serials := GenerateSerials(spec.Prefix, spec.Start, spec.Count)
	rows := make([]types.LedgerRow, len(serials))
	for i, sn := range serials {
		rows[i] = types.LedgerRow{
			CreatorID:  spec.CreatedBy,
			CreatedAt:  createdAt,
			CompanyID:  spec.CompanyID,
			BoardLabel: spec.BoardLabel,
			Serial:     sn,
			Result:     types.ResultPending,
		}
	}

	f, err := newWorkbook(sheetName(spec.OrderNumber), rows)
	if err != nil {
		return fmt.Errorf("%w: build workbook: %w", types.ErrWriteFailure, err)
	}
	defer f.Close()
	return w.writeAtomic(f, path)
}

// UpdateRow records u against the row holding u.Serial. The row's current
// outcome must allow the transition. Nothing is written when the serial is
// absent or the transition is refused.
func (w *Writer) UpdateRow(path string, u types.RowUpdate) (err error) {
	defer w.logFailure("update_row", &err, "path", path, "serial", u.Serial, "outcome", u.Outcome.String())

	serial := NormalizeSerial(u.Serial)
	if serial == "" {
		return fmt.Errorf("%w: empty serial", types.ErrSerialNotFound)
	}

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %w", types.ErrReadFailure, path, err)
	}
	lk, err := acquireLock(path, w.opts.LockTimeout, w.opts.LockStaleAfter, w.log)
	if err != nil {
		return err
	}
	defer lk.release(w.log)

	f, err := excelize.OpenFile(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", types.ErrReadFailure, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("%w: %s: no sheets", types.ErrBadLayout, path)
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", types.ErrReadFailure, path, err)
	}
	if len(rows) == 0 || !headerMatches(rows[0]) {
		return fmt.Errorf("%w: %s: header", types.ErrBadLayout, path)
	}

	excelRow := 0
	var cells []string
	for i, r := range rows[1:] {
		if len(r) > ColSerial && NormalizeSerial(r[ColSerial]) == serial {
			excelRow, cells = i+2, r
			break
		}
	}
	if excelRow == 0 {
		return fmt.Errorf("%w: %q in %s", types.ErrSerialNotFound, serial, path)
	}

	current, err := decodeRow(cells)
	if err != nil {
		return fmt.Errorf("%s: row %d: %w", path, excelRow, err)
	}
	if err := current.Outcome().CanTransitionTo(u.Outcome); err != nil {
		return err
	}

	at := u.At
	if at.IsZero() {
		at = w.now()
	}
	next := current.Apply(u.Outcome, at, u.Operator)
	if err := setResultCells(f, sheet, excelRow, next); err != nil {
		return fmt.Errorf("%w: %w", types.ErrWriteFailure, err)
	}
	if err := w.writeAtomic(f, path); err != nil {
		return err
	}
	w.log.Info("result recorded", "op", "update_row", "path", path, "serial", serial,
		"result", next.Result, "operator", u.Operator)
	return nil
}

// Discard removes a ledger created moments ago whose order could not be
// registered. A missing file is not an error.
func (w *Writer) Discard(path string) (err error) {
	defer w.logFailure("discard_ledger", &err, "path", path)

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove %s: %w", types.ErrWriteFailure, path, err)
	}
	w.log.Info("ledger discarded", "op", "discard_ledger", "path", path)
	return nil
}

func (w *Writer) logFailure(op string, err *error, attrs ...any) {
	if *err == nil {
		return
	}
	level := slog.LevelError
	if errors.Is(*err, types.ErrValidation) || errors.Is(*err, types.ErrNotFound) {
		level = slog.LevelWarn
	}
	w.log.Log(context.Background(), level, "ledger operation failed", append([]any{"op", op, "err", *err}, attrs...)...)
}
