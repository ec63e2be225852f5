// Package status derives an order's progress from the results in its
// ledger. The persisted order status is never consulted.
package status

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/samber/lo"

	"github.com/mesh-intelligence/boardtrack/internal/ledger"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Status is the derived state of an order.
type Status string

const (
	Pending  Status = "Pending"  // no serial has a result yet
	Active   Status = "Active"   // some results recorded, not all passed
	Complete Status = "Complete" // every serial passed
	Unknown  Status = "Unknown"  // ledger file missing
	Error    Status = "Error"    // ledger file unreadable
)

// Summary counts the results in one ledger.
type Summary struct {
	Status  Status `json:"status"`
	Pass    int    `json:"pass"`
	Fail    int    `json:"fail"`
	Pending int    `json:"pending"`
	Total   int    `json:"total"`
}

// Compute reads the ledger at path and summarizes it. It never fails: a
// missing file yields Unknown and an unreadable one yields Error, both with
// zero counts.
func Compute(path string) Summary {
	rows, err := ledger.ReadDataRows(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Summary{Status: Unknown}
	case err != nil:
		return Summary{Status: Error}
	}
	return FromRows(rows)
}

// FromRows summarizes raw data rows. Rows too short to reach the result
// column are ignored. Results are matched case-insensitively; anything
// other than Pass or Fail counts as pending.
func FromRows(rows [][]string) Summary {
	var s Summary
	for _, cells := range rows {
		if len(cells) < ledger.MinColumns {
			continue
		}
		s.Total++
		switch result := strings.TrimSpace(cells[ledger.ColResult]); {
		case strings.EqualFold(result, types.ResultPass):
			s.Pass++
		case strings.EqualFold(result, types.ResultFail):
			s.Fail++
		default:
			s.Pending++
		}
	}
	s.Status = derive(s)
	return s
}

// FromLedgerRows summarizes rows already decoded by ledger.Load.
func FromLedgerRows(rows []types.LedgerRow) Summary {
	return FromRows(lo.Map(rows, func(r types.LedgerRow, _ int) []string {
		cells := make([]string, ledger.MinColumns)
		cells[ledger.ColSerial] = r.Serial
		cells[ledger.ColResult] = r.Result
		return cells
	}))
}

func derive(s Summary) Status {
	switch {
	case s.Pending == s.Total:
		return Pending
	case s.Pass == s.Total:
		return Complete
	default:
		return Active
	}
}
