package types

import "github.com/samber/mo"

// Company owns board types and the directory its order ledgers are written to.
type Company struct {
	CompanyID    int64             `json:"company_id"`
	Name         string            `json:"name"`
	StoragePath  string            `json:"storage_path"`
	CustomerCode mo.Option[string] `json:"customer_code"`
	Archived     bool              `json:"archived"`
}

// Board is a board type produced for one company.
type Board struct {
	BoardID     int64  `json:"board_id"`
	CompanyID   int64  `json:"company_id"`
	Name        string `json:"name"`
	StoragePath string `json:"storage_path"`
	Archived    bool   `json:"archived"`
}

// LedgerDir returns the directory new ledgers for this board are created in.
// Boards without their own storage path fall back to the company's.
func (b Board) LedgerDir(c Company) string {
	if b.StoragePath != "" {
		return b.StoragePath
	}
	return c.StoragePath
}

// EntityKind selects the table a permanent delete applies to.
type EntityKind string

const (
	KindCompany EntityKind = "company"
	KindBoard   EntityKind = "board"
	KindOrder   EntityKind = "order"
)

// ParseEntityKind maps a user-supplied kind name to an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindCompany, KindBoard, KindOrder:
		return k, nil
	default:
		return "", ErrInvalidKind
	}
}
