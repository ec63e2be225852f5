package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/mo"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

const orderColumns = `order_id, order_number, company_id, board_id, status, file_path, created_at, created_by`

func scanOrder(row rowScanner) (types.Order, error) {
	var (
		o         types.Order
		boardID   sql.NullInt64
		createdAt any
	)
	err := row.Scan(&o.OrderID, &o.OrderNumber, &o.CompanyID, &boardID,
		&o.Status, &o.LedgerPath, &createdAt, &o.CreatedBy)
	if err != nil {
		return types.Order{}, err
	}
	if boardID.Valid {
		o.BoardID = mo.Some(boardID.Int64)
	}
	o.CreatedAt = parseTime(createdAt)
	return o, nil
}

// CreateOrder registers an order whose ledger already exists at
// ledgerPath. Order numbers are unique across active and archived orders.
func (s *Store) CreateOrder(ctx context.Context, orderNumber string, companyID int64, boardID mo.Option[int64], ledgerPath string, createdBy int64) (id int64, err error) {
	defer s.logFailure("create_order", &err, "order", orderNumber, "company_id", companyID)

	if err := types.ValidateOrderNumber(orderNumber); err != nil {
		return 0, err
	}
	if strings.TrimSpace(ledgerPath) == "" {
		return 0, fmt.Errorf("%w: ledger path is empty", types.ErrInvalidPath)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireCompany(ctx, tx, companyID); err != nil {
			return err
		}
		if bid, ok := boardID.Get(); ok {
			var owner int64
			err := tx.QueryRowContext(ctx,
				s.q(`SELECT company_id FROM boards WHERE board_id = ?`), bid).Scan(&owner)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %d", types.ErrUnknownBoard, bid)
			}
			if err != nil {
				return fmt.Errorf("check board: %w", err)
			}
			if owner != companyID {
				return fmt.Errorf("%w: board %d belongs to company %d", types.ErrUnknownBoard, bid, owner)
			}
		}
		if err := s.requireUser(ctx, tx, createdBy); err != nil {
			return err
		}
		dup, err := s.exists(ctx, tx, `SELECT 1 FROM orders WHERE order_number = ?`, orderNumber)
		if err != nil {
			return fmt.Errorf("check order number: %w", err)
		}
		if dup {
			return fmt.Errorf("%w: %q", types.ErrDuplicateOrderNumber, orderNumber)
		}
		err = tx.QueryRowContext(ctx,
			s.q(`INSERT INTO orders (order_number, company_id, board_id, status, file_path, created_at, created_by)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING order_id`),
			orderNumber, companyID, nullableInt(boardID), types.OrderStatusPending,
			ledgerPath, s.timestamp(), createdBy,
		).Scan(&id)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", types.ErrDuplicateOrderNumber, orderNumber)
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetOrder returns the order with the given id.
func (s *Store) GetOrder(ctx context.Context, orderID int64) (o *types.Order, err error) {
	defer s.logFailure("get_order", &err, "order_id", orderID)
	return s.getOrder(ctx, `order_id = ?`, orderID)
}

// GetOrderByNumber returns the order with the given order number.
func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (o *types.Order, err error) {
	defer s.logFailure("get_order_by_number", &err, "order", orderNumber)
	return s.getOrder(ctx, `order_number = ?`, orderNumber)
}

func (s *Store) getOrder(ctx context.Context, where string, arg any) (o *types.Order, err error) {
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		got, err := scanOrder(conn.QueryRowContext(ctx,
			s.q(`SELECT `+orderColumns+` FROM orders WHERE `+where), arg))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %v", types.ErrUnknownOrder, arg)
		}
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		o = &got
		return nil
	})
	return o, err
}

// OrderNumberExists reports whether any order, archived or not, uses
// orderNumber.
func (s *Store) OrderNumberExists(ctx context.Context, orderNumber string) (found bool, err error) {
	defer s.logFailure("order_number_exists", &err, "order", orderNumber)

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		found, err = s.exists(ctx, conn, `SELECT 1 FROM orders WHERE order_number = ?`, orderNumber)
		return err
	})
	return found, err
}

// ListOrders returns orders matching f, newest first. Search matches any
// part of the order number.
func (s *Store) ListOrders(ctx context.Context, f types.OrderFilter) (out []types.Order, err error) {
	defer s.logFailure("list_orders", &err)

	var (
		clauses []string
		args    []any
	)
	if id, ok := f.CompanyID.Get(); ok {
		clauses = append(clauses, `company_id = ?`)
		args = append(args, id)
	}
	if f.Status != "" {
		clauses = append(clauses, `status = ?`)
		args = append(args, f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		clauses = append(clauses, `order_number LIKE ?`)
		args = append(args, "%"+search+"%")
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY order_id DESC`

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.q(query), args...)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return fmt.Errorf("scan order: %w", err)
			}
			out = append(out, o)
		}
		return rows.Err()
	})
	return out, err
}

// ArchiveOrder sets the persisted status to Archived. It does not look at
// the ledger.
func (s *Store) ArchiveOrder(ctx context.Context, orderID int64) (err error) {
	defer s.logFailure("archive_order", &err, "order_id", orderID)
	return s.setOrderStatus(ctx, orderID, types.OrderStatusArchived)
}

// UnarchiveOrder resets the persisted status to Pending.
func (s *Store) UnarchiveOrder(ctx context.Context, orderID int64) (err error) {
	defer s.logFailure("unarchive_order", &err, "order_id", orderID)
	return s.setOrderStatus(ctx, orderID, types.OrderStatusPending)
}

func (s *Store) setOrderStatus(ctx context.Context, orderID int64, status string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := s.exists(ctx, tx, `SELECT 1 FROM orders WHERE order_id = ?`, orderID)
		if err != nil {
			return fmt.Errorf("check order: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %d", types.ErrUnknownOrder, orderID)
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE orders SET status = ? WHERE order_id = ?`), status, orderID); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		return nil
	})
}

func nullableInt(o mo.Option[int64]) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}
