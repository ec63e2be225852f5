// Package ledger reads and writes per-order XLSX ledgers. A ledger holds
// one row per serial and is the only record of test outcomes.
package ledger

import (
	"strings"
	"unicode/utf8"
)

// Column positions, zero-based.
const (
	ColCreatorID = iota
	ColCreatedAt
	ColOperator
	ColCompanyID
	ColBoard
	ColSerial
	ColResult
	ColResultTimestamp
	ColFailureExplanation
	ColFixExplanation

	NumColumns
)

// MinColumns is the fewest cells a data row needs to carry a result.
const MinColumns = ColResult + 1

// Header is the first row of every ledger.
var Header = []string{
	"Creator ID",
	"Created At",
	"Operator",
	"Company ID",
	"Board",
	"Serial Number",
	"Result",
	"Result Timestamp",
	"Failure Explanation",
	"Fix Explanation",
}

// Extension is appended to the order number to form the ledger file name.
const Extension = ".xlsx"

const (
	maxSheetName = 31
	minColWidth  = 10
)

// sheetName derives a worksheet name from an order number. Characters
// Excel forbids in sheet names are replaced.
func sheetName(orderNumber string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, orderNumber+" Tracking")
	for utf8.RuneCountInString(name) > maxSheetName {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return strings.Trim(name, "'")
}

func headerMatches(cells []string) bool {
	if len(cells) < len(Header) {
		return false
	}
	for i, h := range Header {
		if strings.TrimSpace(cells[i]) != h {
			return false
		}
	}
	return true
}
