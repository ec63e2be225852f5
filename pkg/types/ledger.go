package types

import (
	"strings"
	"time"
)

// TimestampLayout formats every timestamp written to a ledger.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultSerialPrefix is used when an order is created without a prefix.
const DefaultSerialPrefix = "CUSTID-ORDNO-"

// LedgerRow is one serial's line in an order ledger. Timestamps are kept
// as the text stored in the file.
type LedgerRow struct {
	CreatorID          int64  `json:"creator_id"`
	CreatedAt          string `json:"created_at"`
	Operator           string `json:"operator"`
	CompanyID          int64  `json:"company_id"`
	BoardLabel         string `json:"board_label"`
	Serial             string `json:"serial"`
	Result             string `json:"result"`
	ResultTimestamp    string `json:"result_timestamp"`
	FailureExplanation string `json:"failure_explanation"`
	FixExplanation     string `json:"fix_explanation"`
}

// Outcome decodes the row's result columns. Results other than Pass or
// Fail (compared case-insensitively) read as Pending.
func (r LedgerRow) Outcome() Outcome {
	switch {
	case strings.EqualFold(strings.TrimSpace(r.Result), ResultPass):
		if r.FixExplanation != "" {
			return Fixed(r.FixExplanation)
		}
		return Passed()
	case strings.EqualFold(strings.TrimSpace(r.Result), ResultFail):
		return Failed(r.FailureExplanation)
	default:
		return Pending()
	}
}

// Apply returns a copy of r with its result columns set to o.
// A Fixed outcome keeps the original failure explanation.
func (r LedgerRow) Apply(o Outcome, at time.Time, operator string) LedgerRow {
	r.Operator = operator
	r.ResultTimestamp = at.Format(TimestampLayout)
	switch o.Kind() {
	case OutcomePass:
		r.Result = ResultPass
		r.FailureExplanation, r.FixExplanation = "", ""
	case OutcomeFail:
		r.Result = ResultFail
		r.FailureExplanation, r.FixExplanation = o.Explanation(), ""
	case OutcomeFixed:
		r.Result = ResultPass
		r.FixExplanation = o.Explanation()
	default:
		r.Result = ResultPending
		r.ResultTimestamp, r.FailureExplanation, r.FixExplanation = "", "", ""
	}
	return r
}

// OrderSpec describes the ledger to allocate for a new order.
type OrderSpec struct {
	OrderNumber string
	Prefix      string // serial prefix; DefaultSerialPrefix when empty
	Start       int    // first sequence number; 1 when zero or negative
	Count       int
	CompanyID   int64
	BoardLabel  string
	CreatedBy   int64
}

// RowUpdate is one operator action against a single serial.
type RowUpdate struct {
	Serial   string
	Outcome  Outcome
	Operator string
	At       time.Time // zero means now
}
