// Package tracker coordinates the metadata store and the order ledgers.
// Ledger files are written first and metadata second; a ledger whose
// order cannot be registered is removed again.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/mesh-intelligence/boardtrack/internal/ledger"
	"github.com/mesh-intelligence/boardtrack/internal/status"
	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// Metadata is the part of the metadata store the tracker needs.
type Metadata interface {
	GetCompany(ctx context.Context, companyID int64) (*types.Company, error)
	GetBoard(ctx context.Context, boardID int64) (*types.Board, error)
	OrderNumberExists(ctx context.Context, orderNumber string) (bool, error)
	CreateOrder(ctx context.Context, orderNumber string, companyID int64, boardID mo.Option[int64], ledgerPath string, createdBy int64) (int64, error)
	GetOrder(ctx context.Context, orderID int64) (*types.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*types.Order, error)
	ListOrders(ctx context.Context, f types.OrderFilter) ([]types.Order, error)
	ArchiveOrder(ctx context.Context, orderID int64) error
	DeletePermanently(ctx context.Context, kind types.EntityKind, id int64) ([]string, error)
}

// Ledgers creates and mutates ledger files.
type Ledgers interface {
	Create(dir string, spec types.OrderSpec) (string, error)
	UpdateRow(path string, u types.RowUpdate) error
	Discard(path string) error
}

// Service runs the order workflow over both stores.
type Service struct {
	meta    Metadata
	ledgers Ledgers
	log     *slog.Logger
}

// New returns a Service. A nil logger discards.
func New(meta Metadata, ledgers Ledgers, log *slog.Logger) *Service {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{meta: meta, ledgers: ledgers, log: log}
}

// CreateOrderRequest describes a new order. An empty Prefix is composed
// from the customer code, board name and order number.
type CreateOrderRequest struct {
	OrderNumber string
	CompanyID   int64
	BoardID     mo.Option[int64]
	Prefix      string
	Start       int
	Count       int
	CreatedBy   int64
}

// OrderSummary pairs an order with the status derived from its ledger.
type OrderSummary struct {
	Order   types.Order    `json:"order"`
	Summary status.Summary `json:"summary"`
}

// Session is an order opened for scanning.
type Session struct {
	Order   types.Order
	Rows    []types.LedgerRow
	Index   *ledger.SerialIndex
	Summary status.Summary
}

// Lookup returns the row and index entry for a scanned serial.
func (s *Session) Lookup(serial string) (types.LedgerRow, ledger.IndexEntry, error) {
	e, err := s.Index.Lookup(serial)
	if err != nil {
		return types.LedgerRow{}, ledger.IndexEntry{}, err
	}
	return s.Rows[e.RowIndex], e, nil
}

// SerialPrefix composes the default serial prefix. Empty parts are left
// out.
func SerialPrefix(customerCode, boardLabel, orderNumber string) string {
	parts := lo.Compact(lo.Map([]string{customerCode, boardLabel, orderNumber},
		func(p string, _ int) string { return strings.TrimSpace(p) }))
	if len(parts) == 0 {
		return types.DefaultSerialPrefix
	}
	return strings.Join(parts, "-") + "-"
}

// CreateOrder allocates the ledger and then registers the order. No
// metadata is written if the ledger cannot be created, and the ledger is
// discarded if registration fails.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (o *types.Order, err error) {
	defer s.logFailure("create_order", &err, "order", req.OrderNumber, "company_id", req.CompanyID)

	if err := types.ValidateOrderNumber(req.OrderNumber); err != nil {
		return nil, err
	}
	if req.Count <= 0 {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidCount, req.Count)
	}

	company, err := s.meta.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}
	dir, label := company.StoragePath, ""
	if bid, ok := req.BoardID.Get(); ok {
		board, err := s.meta.GetBoard(ctx, bid)
		if err != nil {
			return nil, err
		}
		if board.CompanyID != company.CompanyID {
			return nil, fmt.Errorf("%w: board %d belongs to company %d", types.ErrUnknownBoard, bid, board.CompanyID)
		}
		dir, label = board.LedgerDir(*company), board.Name
	}

	taken, err := s.meta.OrderNumberExists(ctx, req.OrderNumber)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: %q", types.ErrDuplicateOrderNumber, req.OrderNumber)
	}

	prefix := req.Prefix
	if prefix == "" {
		prefix = SerialPrefix(company.CustomerCode.OrEmpty(), label, req.OrderNumber)
	}
	path, err := s.ledgers.Create(dir, types.OrderSpec{
		OrderNumber: req.OrderNumber,
		Prefix:      prefix,
		Start:       req.Start,
		Count:       req.Count,
		CompanyID:   company.CompanyID,
		BoardLabel:  label,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, err
	}

	id, err := s.meta.CreateOrder(ctx, req.OrderNumber, company.CompanyID, req.BoardID, path, req.CreatedBy)
	if err != nil {
		if derr := s.ledgers.Discard(path); derr != nil {
			s.log.Error("ledger left behind after failed registration", "op", "create_order", "path", path, "err", derr)
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	s.log.Info("order created", "op", "create_order", "order", req.OrderNumber, "order_id", id, "path", path)
	return s.meta.GetOrder(ctx, id)
}

// OpenOrder loads an order's ledger for scanning.
func (s *Service) OpenOrder(ctx context.Context, orderNumber string) (sess *Session, err error) {
	defer s.logFailure("open_order", &err, "order", orderNumber)

	o, err := s.meta.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	rows, err := ledger.Load(o.LedgerPath)
	if err != nil {
		return nil, err
	}
	return &Session{
		Order:   *o,
		Rows:    rows,
		Index:   ledger.BuildIndex(rows),
		Summary: status.FromLedgerRows(rows),
	}, nil
}

// RecordResult applies an operator's result to one serial and returns the
// order's new summary. Archived orders are read-only.
func (s *Service) RecordResult(ctx context.Context, orderNumber string, u types.RowUpdate) (sum status.Summary, err error) {
	defer s.logFailure("record_result", &err, "order", orderNumber, "serial", u.Serial)

	o, err := s.meta.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return status.Summary{}, err
	}
	if o.IsArchived() {
		return status.Summary{}, fmt.Errorf("%w: %s", types.ErrOrderArchived, orderNumber)
	}
	if err := s.ledgers.UpdateRow(o.LedgerPath, u); err != nil {
		return status.Summary{}, err
	}
	return status.Compute(o.LedgerPath), nil
}

// OrderStatus returns an order with its derived status.
func (s *Service) OrderStatus(ctx context.Context, orderID int64) (out OrderSummary, err error) {
	defer s.logFailure("order_status", &err, "order_id", orderID)

	o, err := s.meta.GetOrder(ctx, orderID)
	if err != nil {
		return OrderSummary{}, err
	}
	return OrderSummary{Order: *o, Summary: status.Compute(o.LedgerPath)}, nil
}

// ListOrderSummaries returns the orders matching f with their derived
// status.
func (s *Service) ListOrderSummaries(ctx context.Context, f types.OrderFilter) (out []OrderSummary, err error) {
	defer s.logFailure("list_order_summaries", &err)

	orders, err := s.meta.ListOrders(ctx, f)
	if err != nil {
		return nil, err
	}
	return lo.Map(orders, func(o types.Order, _ int) OrderSummary {
		return OrderSummary{Order: o, Summary: status.Compute(o.LedgerPath)}
	}), nil
}

// ArchiveOrder archives an order whatever its progress. Archiving an
// order that is not Complete is logged as a warning.
func (s *Service) ArchiveOrder(ctx context.Context, orderID int64) (err error) {
	defer s.logFailure("archive_order", &err, "order_id", orderID)

	o, err := s.meta.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	sum := status.Compute(o.LedgerPath)
	if err := s.meta.ArchiveOrder(ctx, orderID); err != nil {
		return err
	}
	if sum.Status != status.Complete {
		s.log.Warn("archived order that is not complete", "op", "archive_order",
			"order", o.OrderNumber, "status", sum.Status, "pending", sum.Pending, "fail", sum.Fail)
	}
	return nil
}

// DeletePermanently removes the entity's metadata. Ledger files stay on
// disk; each orphaned path is logged and returned.
func (s *Service) DeletePermanently(ctx context.Context, kind types.EntityKind, id int64) (orphans []string, err error) {
	defer s.logFailure("delete_permanently", &err, "kind", string(kind), "id", id)

	orphans, err = s.meta.DeletePermanently(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	for _, p := range orphans {
		s.log.Warn("ledger file orphaned", "op", "delete_permanently", "kind", string(kind), "id", id, "path", p)
	}
	return orphans, nil
}

func (s *Service) logFailure(op string, err *error, attrs ...any) {
	if *err == nil {
		return
	}
	level := lo.Ternary(errors.Is(*err, types.ErrValidation) || errors.Is(*err, types.ErrNotFound),
		slog.LevelWarn, slog.LevelError)
	s.log.Log(context.Background(), level, "tracker operation failed",
		append([]any{"op", op, "err", *err}, attrs...)...)
}
