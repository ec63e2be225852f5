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

const companyColumns = `company_id, company_name, client_path, cust_id, archived`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (types.Company, error) {
	var (
		c        types.Company
		custID   sql.NullString
		archived int64
	)
	if err := row.Scan(&c.CompanyID, &c.Name, &c.StoragePath, &custID, &archived); err != nil {
		return types.Company{}, err
	}
	c.CustomerCode = optionalString(custID)
	c.Archived = archived != 0
	return c, nil
}

// CreateCompany registers a company. Names are unique across companies.
func (s *Store) CreateCompany(ctx context.Context, name, storagePath string, customerCode mo.Option[string]) (id int64, err error) {
	defer s.logFailure("create_company", &err, "company", name)

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: company name is empty", types.ErrInvalidName)
	}
	if strings.TrimSpace(storagePath) == "" {
		return 0, fmt.Errorf("%w: company storage path is empty", types.ErrInvalidPath)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		dup, err := s.exists(ctx, tx, `SELECT 1 FROM companies WHERE company_name = ?`, name)
		if err != nil {
			return fmt.Errorf("check company name: %w", err)
		}
		if dup {
			return fmt.Errorf("%w: company %q", types.ErrDuplicateName, name)
		}
		err = tx.QueryRowContext(ctx,
			s.q(`INSERT INTO companies (company_name, client_path, cust_id, archived) VALUES (?, ?, ?, 0) RETURNING company_id`),
			name, storagePath, nullableString(customerCode),
		).Scan(&id)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: company %q", types.ErrDuplicateName, name)
		}
		if err != nil {
			return fmt.Errorf("insert company: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetCompany returns the company with the given id.
func (s *Store) GetCompany(ctx context.Context, companyID int64) (c *types.Company, err error) {
	defer s.logFailure("get_company", &err, "company_id", companyID)

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		got, err := scanCompany(conn.QueryRowContext(ctx,
			s.q(`SELECT `+companyColumns+` FROM companies WHERE company_id = ?`), companyID))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", types.ErrUnknownCompany, companyID)
		}
		if err != nil {
			return fmt.Errorf("get company: %w", err)
		}
		c = &got
		return nil
	})
	return c, err
}

// ListCompanies returns companies ordered by name. Archived companies are
// included only when includeArchived is set.
func (s *Store) ListCompanies(ctx context.Context, includeArchived bool) (out []types.Company, err error) {
	defer s.logFailure("list_companies", &err)

	query := `SELECT ` + companyColumns + ` FROM companies`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY company_name`

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, s.q(query))
		if err != nil {
			return fmt.Errorf("list companies: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			c, err := scanCompany(rows)
			if err != nil {
				return fmt.Errorf("scan company: %w", err)
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	return out, err
}

// RenameCompany changes a company's display name.
func (s *Store) RenameCompany(ctx context.Context, companyID int64, name string) (err error) {
	defer s.logFailure("rename_company", &err, "company_id", companyID, "name", name)

	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: company name is empty", types.ErrInvalidName)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireCompany(ctx, tx, companyID); err != nil {
			return err
		}
		dup, err := s.exists(ctx, tx,
			`SELECT 1 FROM companies WHERE company_name = ? AND company_id <> ?`, name, companyID)
		if err != nil {
			return fmt.Errorf("check company name: %w", err)
		}
		if dup {
			return fmt.Errorf("%w: company %q", types.ErrDuplicateName, name)
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE companies SET company_name = ? WHERE company_id = ?`), name, companyID); err != nil {
			return fmt.Errorf("rename company: %w", err)
		}
		return nil
	})
}

// ArchiveCompany hides a company and all of its boards.
func (s *Store) ArchiveCompany(ctx context.Context, companyID int64) (err error) {
	defer s.logFailure("archive_company", &err, "company_id", companyID)
	return s.setCompanyArchived(ctx, companyID, true)
}

// UnarchiveCompany restores a company and all of its boards.
func (s *Store) UnarchiveCompany(ctx context.Context, companyID int64) (err error) {
	defer s.logFailure("unarchive_company", &err, "company_id", companyID)
	return s.setCompanyArchived(ctx, companyID, false)
}

func (s *Store) setCompanyArchived(ctx context.Context, companyID int64, archived bool) error {
	flag := boolInt(archived)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireCompany(ctx, tx, companyID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE companies SET archived = ? WHERE company_id = ?`), flag, companyID); err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			s.q(`UPDATE boards SET archived = ? WHERE company_id = ?`), flag, companyID); err != nil {
			return fmt.Errorf("update boards: %w", err)
		}
		return nil
	})
}

func (s *Store) requireCompany(ctx context.Context, q querier, companyID int64) error {
	ok, err := s.exists(ctx, q, `SELECT 1 FROM companies WHERE company_id = ?`, companyID)
	if err != nil {
		return fmt.Errorf("check company: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrUnknownCompany, companyID)
	}
	return nil
}

func optionalString(v sql.NullString) mo.Option[string] {
	if !v.Valid || v.String == "" {
		return mo.None[string]()
	}
	return mo.Some(v.String)
}

func nullableString(o mo.Option[string]) any {
	if v, ok := o.Get(); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
