package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// newWorkbook lays out a fresh ledger: the bold, centred header followed
// by one Pending row per serial.
func newWorkbook(sheet string, rows []types.LedgerRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	widths := make([]int, NumColumns)
	track := func(col int, v string) {
		widths[col] = max(widths[col], utf8.RuneCountInString(v))
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
		track(i, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := rowValues(r)
		for col, v := range values {
			track(col, fmt.Sprint(v))
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := styleWorkbook(f, sheet, widths); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func styleWorkbook(f *excelize.File, sheet string, widths []int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	last, err := excelize.ColumnNumberToName(NumColumns)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return fmt.Errorf("wrap style: %w", err)
	}
	first, _ := excelize.ColumnNumberToName(ColFailureExplanation + 1)
	if err := f.SetColStyle(sheet, first+":"+last, wrapStyle); err != nil {
		return fmt.Errorf("style explanations: %w", err)
	}

	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, float64(max(w+2, minColWidth))); err != nil {
			return fmt.Errorf("size column %s: %w", col, err)
		}
	}
	return nil
}

// rowValues returns the cells written for a row. Trailing empty result
// columns are left out.
func rowValues(r types.LedgerRow) []any {
	values := []any{
		r.CreatorID,
		r.CreatedAt,
		r.Operator,
		r.CompanyID,
		r.BoardLabel,
		r.Serial,
		r.Result,
		r.ResultTimestamp,
		r.FailureExplanation,
		r.FixExplanation,
	}
	n := len(values)
	for n > MinColumns && values[n-1] == "" {
		n--
	}
	return values[:n]
}

// setResultCells rewrites the operator and result columns of one
// spreadsheet row (1-based).
func setResultCells(f *excelize.File, sheet string, excelRow int, r types.LedgerRow) error {
	cells := map[int]string{
		ColOperator:           r.Operator,
		ColResult:             r.Result,
		ColResultTimestamp:    r.ResultTimestamp,
		ColFailureExplanation: r.FailureExplanation,
		ColFixExplanation:     r.FixExplanation,
	}
	for col, v := range cells {
		name, err := excelize.CoordinatesToCellName(col+1, excelRow)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, name, v); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

// decodeRow converts a data row's cells into a LedgerRow. Rows shorter
// than NumColumns are padded with empty cells.
func decodeRow(cells []string) (types.LedgerRow, error) {
	padded := make([]string, NumColumns)
	copy(padded, cells)
	for i := range padded {
		padded[i] = strings.TrimSpace(padded[i])
	}

	creator, err := parseID(padded[ColCreatorID])
	if err != nil {
		return types.LedgerRow{}, fmt.Errorf("%w: creator id %q", types.ErrBadLayout, padded[ColCreatorID])
	}
	company, err := parseID(padded[ColCompanyID])
	if err != nil {
		return types.LedgerRow{}, fmt.Errorf("%w: company id %q", types.ErrBadLayout, padded[ColCompanyID])
	}
	return types.LedgerRow{
		CreatorID:          creator,
		CreatedAt:          padded[ColCreatedAt],
		Operator:           padded[ColOperator],
		CompanyID:          company,
		BoardLabel:         padded[ColBoard],
		Serial:             padded[ColSerial],
		Result:             padded[ColResult],
		ResultTimestamp:    padded[ColResultTimestamp],
		FailureExplanation: padded[ColFailureExplanation],
		FixExplanation:     padded[ColFixExplanation],
	}, nil
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
