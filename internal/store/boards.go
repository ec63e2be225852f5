package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

const boardColumns = `board_id, company_id, board_name, board_path, archived`

func scanBoard(row rowScanner) (types.Board, error) {
	var (
		b        types.Board
		path     sql.NullString
		archived int64
	)
	if err := row.Scan(&b.BoardID, &b.CompanyID, &b.Name, &path, &archived); err != nil {
		return types.Board{}, err
	}
	b.StoragePath = path.String
	b.Archived = archived != 0
	return b, nil
}

// CreateBoard registers a board under an existing company. An empty path
// means ledgers are stored in the company's directory.
func (s *Store) CreateBoard(ctx context.Context, companyID int64, name, storagePath string) (id int64, err error) {
	defer s.logFailure("create_board", &err, "company_id", companyID, "board", name)

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: board name is empty", types.ErrInvalidName)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireCompany(ctx, tx, companyID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx,
			s.q(`INSERT INTO boards (company_id, board_name, board_path, archived) VALUES (?, ?, ?, 0) RETURNING board_id`),
			companyID, name, strings.TrimSpace(storagePath),
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert board: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetBoard returns the board with the given id.
func (s *Store) GetBoard(ctx context.Context, boardID int64) (b *types.Board, err error) {
	defer s.logFailure("get_board", &err, "board_id", boardID)

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		got, err := scanBoard(conn.QueryRowContext(ctx,
			s.q(`SELECT `+boardColumns+` FROM boards WHERE board_id = ?`), boardID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", types.ErrUnknownBoard, boardID)
		}
		if err != nil {
			return fmt.Errorf("get board: %w", err)
		}
		b = &got
		return nil
	})
	return b, err
}

// ListBoardsByCompany returns a company's boards ordered by name.
func (s *Store) ListBoardsByCompany(ctx context.Context, companyID int64, includeArchived bool) (out []types.Board, err error) {
	defer s.logFailure("list_boards", &err, "company_id", companyID)

	query := `SELECT ` + boardColumns + ` FROM boards WHERE company_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY board_name, board_id`

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.q(query), companyID)
		if err != nil {
			return fmt.Errorf("list boards: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			b, err := scanBoard(rows)
			if err != nil {
				return fmt.Errorf("scan board: %w", err)
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

// RenameBoard changes a board's display name.
func (s *Store) RenameBoard(ctx context.Context, boardID int64, name string) (err error) {
	defer s.logFailure("rename_board", &err, "board_id", boardID, "name", name)

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: board name is empty", types.ErrInvalidName)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireBoard(ctx, tx, boardID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE boards SET board_name = ? WHERE board_id = ?`), name, boardID); err != nil {
			return fmt.Errorf("rename board: %w", err)
		}
		return nil
	})
}

// ArchiveBoard hides a single board.
func (s *Store) ArchiveBoard(ctx context.Context, boardID int64) (err error) {
	defer s.logFailure("archive_board", &err, "board_id", boardID)
	return s.setBoardArchived(ctx, boardID, true)
}

// UnarchiveBoard restores a single board.
func (s *Store) UnarchiveBoard(ctx context.Context, boardID int64) (err error) {
	defer s.logFailure("unarchive_board", &err, "board_id", boardID)
	return s.setBoardArchived(ctx, boardID, false)
}

func (s *Store) setBoardArchived(ctx context.Context, boardID int64, archived bool) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireBoard(ctx, tx, boardID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE boards SET archived = ? WHERE board_id = ?`), boolInt(archived), boardID); err != nil {
			return fmt.Errorf("update board: %w", err)
		}
		return nil
	})
}

func (s *Store) requireBoard(ctx context.Context, q querier, boardID int64) error {
	ok, err := s.exists(ctx, q, `SELECT 1 FROM boards WHERE board_id = ?`, boardID)
	if err != nil {
		return fmt.Errorf("check board: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrUnknownBoard, boardID)
	}
	return nil
}
