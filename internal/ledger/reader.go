package ledger

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// ReadDataRows returns the raw cells of every row below the header of the
// ledger's first sheet. The header itself is not checked and rows are not
// padded. Errors wrap types.ErrReadFailure; a missing file also matches
// fs.ErrNotExist.
func ReadDataRows(path string) ([][]string, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}

// Load returns every data row of the ledger at path, in file order.
// Blank rows are skipped. A wrong header, a row too short to carry a
// result, a malformed id or a repeated serial fails with
// types.ErrReadFailure.
func Load(path string) ([]types.LedgerRow, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 || !headerMatches(rows[0]) {
		return nil, fmt.Errorf("%w: %s: header", types.ErrBadLayout, path)
	}

	out := make([]types.LedgerRow, 0, len(rows)-1)
	seen := make(map[string]int, len(rows)-1)
	for i, cells := range rows[1:] {
		line := i + 2
		if isBlank(cells) {
			continue
		}
		if len(cells) < MinColumns {
			return nil, fmt.Errorf("%w: %s: row %d has %d columns", types.ErrBadLayout, path, line, len(cells))
		}
		row, err := decodeRow(cells)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: %w", path, line, err)
		}
		if row.Serial == "" {
			return nil, fmt.Errorf("%w: %s: row %d has no serial", types.ErrBadLayout, path, line)
		}
		if prev, dup := seen[row.Serial]; dup {
			return nil, fmt.Errorf("%w: %s: serial %q on rows %d and %d",
				types.ErrBadLayout, path, row.Serial, prev, line)
		}
		seen[row.Serial] = line
		out = append(out, row)
	}
	return out, nil
}

// FindRow returns the position of serial among Load(path)'s rows.
// Surrounding whitespace is ignored; case is not.
func FindRow(path, serial string) (int, error) {
	rows, err := Load(path)
	if err != nil {
		return -1, err
	}
	entry, err := BuildIndex(rows).Lookup(serial)
	if err != nil {
		return -1, err
	}
	return entry.RowIndex, nil
}

func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", types.ErrReadFailure, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s: no sheets", types.ErrBadLayout, path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", types.ErrReadFailure, path, err)
	}
	return rows, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
