package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

var (
	createdAt  = time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	recordedAt = time.Date(2026, 3, 14, 10, 15, 30, 0, time.Local)
)

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	return NewWriter(Options{
		ReplaceAttempts: 3,
		ReplaceDelay:    time.Millisecond,
		LockTimeout:     200 * time.Millisecond,
		LockStaleAfter:  time.Minute,
		Now:             func() time.Time { return createdAt },
	})
}

func testSpec() types.OrderSpec {
	return types.OrderSpec{
		OrderNumber: "A100",
		Prefix:      "TEST-",
		Start:       5,
		Count:       3,
		CompanyID:   7,
		BoardLabel:  "Controller",
		CreatedBy:   1,
	}
}

func createLedger(t *testing.T, w *Writer) string {
	t.Helper()
	path, err := w.Create(t.TempDir(), testSpec())
	require.NoError(t, err)
	return path
}

func tempFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".ledger-*.tmp"))
	require.NoError(t, err)
	return matches
}

func TestCreate(t *testing.T) {
	w := newTestWriter(t)
	dir := filepath.Join(t.TempDir(), "acme", "controller")

	path, err := w.Create(dir, testSpec())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "A100.xlsx"), path)
	assert.Empty(t, tempFiles(t, dir))

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, GenerateSerials("TEST-", 5, 3)[i], r.Serial)
		assert.Equal(t, int64(1), r.CreatorID)
		assert.Equal(t, int64(7), r.CompanyID)
		assert.Equal(t, "Controller", r.BoardLabel)
		assert.Equal(t, "2026-03-14 09:00:00", r.CreatedAt)
		assert.Equal(t, types.ResultPending, r.Result)
		assert.Empty(t, r.Operator)
		assert.Empty(t, r.ResultTimestamp)
		assert.Equal(t, types.OutcomePending, r.Outcome().Kind())
	}

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	sheet := f.GetSheetName(0)
	assert.Equal(t, "A100 Tracking", sheet)
	width, err := f.GetColWidth(sheet, "F")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, width, float64(len("Serial Number")+2))
	width, err = f.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, width, float64(minColWidth))
}

func TestCreateDefaults(t *testing.T) {
	w := newTestWriter(t)
	path, err := w.Create(t.TempDir(), types.OrderSpec{OrderNumber: "B1", Count: 2, CompanyID: 1, CreatedBy: 1})
	require.NoError(t, err)

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CUSTID-ORDNO-00001", rows[0].Serial)
	assert.Equal(t, "CUSTID-ORDNO-00002", rows[1].Serial)
}

func TestCreateErrors(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t)
	_, err := w.Create(dir, testSpec())
	require.NoError(t, err)

	tests := []struct {
		name    string
		dir     string
		mutate  func(*types.OrderSpec)
		wantErr error
	}{
		{"already exists", dir, func(*types.OrderSpec) {}, types.ErrLedgerExists},
		{"zero count", dir, func(s *types.OrderSpec) { s.OrderNumber, s.Count = "A2", 0 }, types.ErrInvalidCount},
		{"negative count", dir, func(s *types.OrderSpec) { s.OrderNumber, s.Count = "A2", -4 }, types.ErrInvalidCount},
		{"overflow", dir, func(s *types.OrderSpec) { s.OrderNumber, s.Start, s.Count = "A2", 99990, 11 }, types.ErrSerialOverflow},
		{"unsafe order number", dir, func(s *types.OrderSpec) { s.OrderNumber = "A:2" }, types.ErrInvalidOrderNumber},
		{"no directory", "", func(s *types.OrderSpec) { s.OrderNumber = "A2" }, types.ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec()
			tt.mutate(&spec)
			_, err := w.Create(tt.dir, spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err = os.Stat(filepath.Join(dir, "A2.xlsx"))
	assert.True(t, os.IsNotExist(err), "failed creates leave no file")
}

func TestCreateLastSerialAtLimit(t *testing.T) {
	w := newTestWriter(t)
	spec := testSpec()
	spec.Start, spec.Count = 99998, 2
	path, err := w.Create(t.TempDir(), spec)
	require.NoError(t, err)
	rows, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "TEST-99999", rows[1].Serial)
}

func TestUpdateRowTransitions(t *testing.T) {
	tests := []struct {
		name    string
		steps   []types.Outcome
		wantErr error
		check   func(t *testing.T, r types.LedgerRow)
	}{
		{
			name:  "pending to pass",
			steps: []types.Outcome{types.Passed()},
			check: func(t *testing.T, r types.LedgerRow) {
				assert.Equal(t, types.ResultPass, r.Result)
				assert.Equal(t, "2026-03-14 10:15:30", r.ResultTimestamp)
				assert.Equal(t, "op1", r.Operator)
				assert.Empty(t, r.FailureExplanation)
			},
		},
		{
			name:  "pending to fail",
			steps: []types.Outcome{types.Failed("no boot")},
			check: func(t *testing.T, r types.LedgerRow) {
				assert.Equal(t, types.ResultFail, r.Result)
				assert.Equal(t, "no boot", r.FailureExplanation)
			},
		},
		{
			name:  "fail then fixed keeps both explanations",
			steps: []types.Outcome{types.Failed("no boot"), types.Fixed("reflowed U3")},
			check: func(t *testing.T, r types.LedgerRow) {
				assert.Equal(t, types.ResultPass, r.Result)
				assert.Equal(t, "no boot", r.FailureExplanation)
				assert.Equal(t, "reflowed U3", r.FixExplanation)
				assert.Equal(t, types.OutcomeFixed, r.Outcome().Kind())
			},
		},
		{
			name:    "pass is terminal",
			steps:   []types.Outcome{types.Passed(), types.Failed("late")},
			wantErr: types.ErrInvalidTransition,
		},
		{
			name:    "fixed needs a failure first",
			steps:   []types.Outcome{types.Fixed("nothing to fix")},
			wantErr: types.ErrInvalidTransition,
		},
		{
			name:    "fail needs an explanation",
			steps:   []types.Outcome{types.Failed("  ")},
			wantErr: types.ErrMissingExplanation,
		},
		{
			name:    "fixed needs an explanation",
			steps:   []types.Outcome{types.Failed("no boot"), types.Fixed("")},
			wantErr: types.ErrMissingExplanation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWriter(t)
			path := createLedger(t, w)

			var err error
			for _, o := range tt.steps {
				err = w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00006", Outcome: o, Operator: "op1", At: recordedAt})
				if err != nil {
					break
				}
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			rows, err := Load(path)
			require.NoError(t, err)
			tt.check(t, rows[1])
			assert.Equal(t, types.ResultPending, rows[0].Result, "other rows untouched")
			assert.Equal(t, types.ResultPending, rows[2].Result, "other rows untouched")
			assert.NoFileExists(t, LockPath(path))
			assert.Empty(t, tempFiles(t, filepath.Dir(path)))
		})
	}
}

func TestUpdateRowUnknownSerialLeavesFileUnchanged(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	for _, serial := range []string{"TEST-99999", "test-00005", ""} {
		err = w.UpdateRow(path, types.RowUpdate{Serial: serial, Outcome: types.Passed(), Operator: "op1"})
		assert.ErrorIs(t, err, types.ErrSerialNotFound, serial)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.NoFileExists(t, LockPath(path))
}

func TestUpdateRowTrimsScannedSerial(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)

	require.NoError(t, w.UpdateRow(path, types.RowUpdate{Serial: "  TEST-00005\r\n", Outcome: types.Passed(), Operator: "op1"}))

	rows, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.ResultPass, rows[0].Result)
	assert.Equal(t, "2026-03-14 09:00:00", rows[0].ResultTimestamp, "zero At uses the writer clock")
}

func TestUpdateRowMissingLedger(t *testing.T) {
	w := newTestWriter(t)
	err := w.UpdateRow(filepath.Join(t.TempDir(), "gone.xlsx"), types.RowUpdate{Serial: "X", Outcome: types.Passed()})
	assert.ErrorIs(t, err, types.ErrReadFailure)
}

func TestReplaceRetriesSharingViolations(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)

	calls := 0
	w.rename = func(src, dst string) error {
		calls++
		if calls < 3 {
			return &os.LinkError{Op: "rename", Old: src, New: dst, Err: sharingViolation}
		}
		return os.Rename(src, dst)
	}

	require.NoError(t, w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00005", Outcome: types.Passed(), Operator: "op1"}))
	assert.Equal(t, 3, calls)

	rows, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.ResultPass, rows[0].Result)
	assert.Empty(t, tempFiles(t, filepath.Dir(path)))
}

func TestReplaceGivesUpAfterAttempts(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	calls := 0
	w.rename = func(src, dst string) error {
		calls++
		return &os.LinkError{Op: "rename", Old: src, New: dst, Err: sharingViolation}
	}

	err = w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00005", Outcome: types.Passed(), Operator: "op1"})
	assert.ErrorIs(t, err, types.ErrWriteFailure)
	assert.Equal(t, 3, calls)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, tempFiles(t, filepath.Dir(path)), "temp file removed on failure")
	assert.NoFileExists(t, LockPath(path))
}

func TestReplaceDoesNotRetryOtherErrors(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)

	calls := 0
	w.rename = func(src, dst string) error {
		calls++
		return errors.New("read-only file system")
	}

	err := w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00005", Outcome: types.Passed(), Operator: "op1"})
	assert.ErrorIs(t, err, types.ErrWriteFailure)
	assert.Equal(t, 1, calls)
	assert.Empty(t, tempFiles(t, filepath.Dir(path)))
}

func TestUpdateRowRespectsLock(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)

	require.NoError(t, os.WriteFile(LockPath(path), []byte("someone-else"), 0o644))
	err := w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00005", Outcome: types.Passed(), Operator: "op1"})
	assert.ErrorIs(t, err, types.ErrLockHeld)
	assert.FileExists(t, LockPath(path), "a foreign lock is never removed")

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(LockPath(path), old, old))
	require.NoError(t, w.UpdateRow(path, types.RowUpdate{Serial: "TEST-00005", Outcome: types.Passed(), Operator: "op1"}))
	assert.NoFileExists(t, LockPath(path))
}

func TestDiscard(t *testing.T) {
	w := newTestWriter(t)
	path := createLedger(t, w)

	require.NoError(t, w.Discard(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, w.Discard(path), "discarding twice is harmless")
}
