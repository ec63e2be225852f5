package types

import (
	"strings"
	"time"

	"github.com/samber/mo"
)

// Persisted order status values. The persisted field only tracks the
// explicit archive transition; test progress is derived from the ledger.
const (
	OrderStatusPending  = "Pending"
	OrderStatusArchived = "Archived"
)

// Order is one batch of serialized units under test.
type Order struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	CompanyID   int64            `json:"company_id"`
	BoardID     mo.Option[int64] `json:"board_id"`
	Status      string           `json:"status"`
	LedgerPath  string           `json:"ledger_path"`
	CreatedAt   time.Time        `json:"created_at"`
	CreatedBy   int64            `json:"created_by"`
}

// IsArchived reports whether the order was explicitly archived.
func (o Order) IsArchived() bool {
	return o.Status == OrderStatusArchived
}

// OrderFilter narrows ListOrders. Zero value lists every order.
type OrderFilter struct {
	CompanyID mo.Option[int64]
	Status    string // exact persisted status, empty for any
	Search    string // substring of the order number
}

// ValidateOrderNumber checks that n is non-empty and usable as a file name,
// since the ledger is stored as {dir}/{order number}.xlsx.
func ValidateOrderNumber(n string) error {
	if strings.TrimSpace(n) != n || n == "" || n == "." || n == ".." {
		return ErrInvalidOrderNumber
	}
	if strings.ContainsAny(n, `/\:*?"<>|`) {
		return ErrInvalidOrderNumber
	}
	return nil
}
