package ledger

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// writeWorkbook saves rows to a single-sheet workbook, bypassing Writer.
func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hand-made.xlsx")
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func headerRow() []any {
	out := make([]any, len(Header))
	for i, h := range Header {
		out[i] = h
	}
	return out
}

func TestLoad(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		headerRow(),
		{1, "2026-03-14 09:00:00", "", 7, "Controller", "SN-00001", "Pending"},
		{1, "2026-03-14 09:00:00", "op1", 7, "Controller", "SN-00002", "fail", "2026-03-14 10:00:00", "cracked"},
		{},
		{1, "2026-03-14 09:00:00", "op1", 7, "Controller", "SN-00003", "Pass", "2026-03-14 10:00:00", "no boot", "reseated"},
	})

	rows, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, types.OutcomePending, rows[0].Outcome().Kind())
	assert.Equal(t, types.Failed("cracked"), rows[1].Outcome())
	assert.Equal(t, types.Fixed("reseated"), rows[2].Outcome())
	assert.Equal(t, int64(7), rows[2].CompanyID)

	idx, err := FindRow(path, " SN-00003 ")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	_, err = FindRow(path, "sn-00003")
	assert.ErrorIs(t, err, types.ErrSerialNotFound)
}

func TestLoadRejectsBadLayouts(t *testing.T) {
	tests := []struct {
		name string
		rows [][]any
	}{
		{"empty workbook", nil},
		{"wrong header", [][]any{{"User ID", "Company ID", "Board ID", "Serial Number"}}},
		{"short row", [][]any{headerRow(), {1, "2026-03-14 09:00:00", "", 7, "Controller"}}},
		{"duplicate serial", [][]any{
			headerRow(),
			{1, "", "", 7, "B", "SN-1", "Pending"},
			{1, "", "", 7, "B", "SN-1", "Pending"},
		}},
		{"bad creator id", [][]any{headerRow(), {"alice", "", "", 7, "B", "SN-1", "Pending"}}},
		{"missing serial", [][]any{headerRow(), {1, "", "", 7, "B", "", "Pending"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeWorkbook(t, tt.rows))
			assert.ErrorIs(t, err, types.ErrReadFailure)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.ErrorIs(t, err, types.ErrReadFailure)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReadDataRowsIsLenient(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"anything"},
		{1, 2, 3},
		{1, "", "", 7, "B", "SN-1", "Pass"},
	})
	rows, err := ReadDataRows(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 3)
	assert.Equal(t, "Pass", rows[1][ColResult])
}
