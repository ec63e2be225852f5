package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

// DeletePermanently removes an entity and everything that depends on it.
// Deleting a company removes its orders and boards in the same
// transaction. Deleting a board detaches its orders. Ledger files are
// left on disk; their paths are returned so the caller can report them.
func (s *Store) DeletePermanently(ctx context.Context, kind types.EntityKind, id int64) (orphans []string, err error) {
	defer s.logFailure("delete_permanently", &err, "kind", string(kind), "id", id)

	switch kind {
	case types.KindCompany:
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if err := s.requireCompany(ctx, tx, id); err != nil {
				return err
			}
			paths, err := s.ledgerPaths(ctx, tx, `company_id = ?`, id)
			if err != nil {
				return err
			}
			for _, stmt := range []string{
				`DELETE FROM orders WHERE company_id = ?`,
				`DELETE FROM boards WHERE company_id = ?`,
				`DELETE FROM companies WHERE company_id = ?`,
			} {
				if _, err := tx.ExecContext(ctx, s.q(stmt), id); err != nil {
					return fmt.Errorf("delete company %d: %w", id, err)
				}
			}
			orphans = paths
			return nil
		})
	case types.KindBoard:
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if err := s.requireBoard(ctx, tx, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				s.q(`UPDATE orders SET board_id = NULL WHERE board_id = ?`), id); err != nil {
				return fmt.Errorf("detach orders from board %d: %w", id, err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM boards WHERE board_id = ?`), id); err != nil {
				return fmt.Errorf("delete board %d: %w", id, err)
			}
			return nil
		})
	case types.KindOrder:
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			var path string
			err := tx.QueryRowContext(ctx,
				s.q(`SELECT file_path FROM orders WHERE order_id = ?`), id).Scan(&path)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: %d", types.ErrUnknownOrder, id)
			}
			if err != nil {
				return fmt.Errorf("get order: %w", err)
			}
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM orders WHERE order_id = ?`), id); err != nil {
				return fmt.Errorf("delete order %d: %w", id, err)
			}
			orphans = []string{path}
			return nil
		})
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

func (s *Store) ledgerPaths(ctx context.Context, q querier, where string, arg any) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.q(`SELECT file_path FROM orders WHERE `+where+` ORDER BY order_id`), arg)
	if err != nil {
		return nil, fmt.Errorf("list ledger paths: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan ledger path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
