package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/boardtrack/pkg/types"
)

const userColumns = `user_id, username, password_hash, role, created_at`

func scanUser(row rowScanner) (types.User, error) {
	var (
		u         types.User
		role      string
		createdAt any
	)
	if err := row.Scan(&u.UserID, &u.Username, &u.PasswordHash, &role, &createdAt); err != nil {
		return types.User{}, err
	}
	u.Role = types.Role(role)
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// CreateUser adds an account with a freshly hashed password.
func (s *Store) CreateUser(ctx context.Context, username, password string, role types.Role) (id int64, err error) {
	defer s.logFailure("create_user", &err, "username", username)

	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username is empty", types.ErrInvalidName)
	}
	if password == "" {
		return 0, types.ErrInvalidPassword
	}
	if !role.Valid() {
		return 0, fmt.Errorf("%w: %q", types.ErrInvalidRole, role)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		dup, err := s.exists(ctx, tx, `SELECT 1 FROM users WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if dup {
			return fmt.Errorf("%w: %q", types.ErrDuplicateUsername, username)
		}
		err = tx.QueryRowContext(ctx,
			s.q(`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING user_id`),
			username, hash, string(role), s.timestamp(),
		).Scan(&id)
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", types.ErrDuplicateUsername, username)
		}
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, userID int64) (u *types.User, err error) {
	defer s.logFailure("get_user", &err, "user_id", userID)
	return s.getUser(ctx, `user_id = ?`, userID)
}

// GetUserByUsername returns the user with the given username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (u *types.User, err error) {
	defer s.logFailure("get_user_by_username", &err, "username", username)
	return s.getUser(ctx, `username = ?`, strings.TrimSpace(username))
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (u *types.User, err error) {
	err = s.withConn(ctx, func(conn *sql.Conn) error {
		got, err := scanUser(conn.QueryRowContext(ctx,
			s.q(`SELECT `+userColumns+` FROM users WHERE `+where), arg))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %v", types.ErrUnknownUser, arg)
		}
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}
		u = &got
		return nil
	})
	return u, err
}

// ListUsers returns every account ordered by username.
func (s *Store) ListUsers(ctx context.Context) (out []types.User, err error) {
	defer s.logFailure("list_users", &err)

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			u, err := scanUser(rows)
			if err != nil {
				return fmt.Errorf("scan user: %w", err)
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	return out, err
}

// AdminExists reports whether at least one admin account exists.
func (s *Store) AdminExists(ctx context.Context) (found bool, err error) {
	defer s.logFailure("admin_exists", &err)

	err = s.withConn(ctx, func(conn *sql.Conn) error {
		found, err = s.exists(ctx, conn, `SELECT 1 FROM users WHERE role = ?`, string(types.RoleAdmin))
		return err
	})
	return found, err
}

// DeleteUser removes userID on behalf of actorID. Users cannot delete
// themselves, and users referenced by orders cannot be deleted.
func (s *Store) DeleteUser(ctx context.Context, actorID, userID int64) (err error) {
	defer s.logFailure("delete_user", &err, "actor_id", actorID, "user_id", userID)

	if actorID == userID {
		return types.ErrSelfDelete
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		inUse, err := s.exists(ctx, tx, `SELECT 1 FROM orders WHERE created_by = ?`, userID)
		if err != nil {
			return fmt.Errorf("check user orders: %w", err)
		}
		if inUse {
			return fmt.Errorf("%w: %d", types.ErrUserInUse, userID)
		}
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM users WHERE user_id = ?`), userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
}

// ChangePassword replaces a user's password hash.
func (s *Store) ChangePassword(ctx context.Context, userID int64, password string) (err error) {
	defer s.logFailure("change_password", &err, "user_id", userID)

	if password == "" {
		return types.ErrInvalidPassword
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireUser(ctx, tx, userID); err != nil {
			return err
		}
		return s.setPasswordHash(ctx, tx, userID, hash)
	})
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both return ErrAuthFailure. A hash in an outdated format is
// replaced after a successful check.
func (s *Store) Authenticate(ctx context.Context, username, password string) (u *types.User, err error) {
	defer s.logFailure("authenticate", &err, "username", username)

	u, err = s.getUser(ctx, `username = ?`, strings.TrimSpace(username))
	if errors.Is(err, types.ErrUnknownUser) {
		return nil, types.ErrAuthFailure
	}
	if err != nil {
		return nil, err
	}
	ok, rehash := s.hasher.Verify(u.PasswordHash, password)
	if !ok {
		return nil, types.ErrAuthFailure
	}
	if rehash {
		s.upgradeHash(ctx, u, password)
	}
	return u, nil
}

// upgradeHash rewrites u's stored hash. Failure is logged and otherwise
// ignored; the old hash keeps working.
func (s *Store) upgradeHash(ctx context.Context, u *types.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err == nil {
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			return s.setPasswordHash(ctx, tx, u.UserID, hash)
		})
	}
	if err != nil {
		s.log.Warn("password hash upgrade failed", "op", "authenticate", "user_id", u.UserID, "err", err)
		return
	}
	u.PasswordHash = hash
	s.log.Info("password hash upgraded", "user_id", u.UserID)
}

func (s *Store) setPasswordHash(ctx context.Context, tx *sql.Tx, userID int64, hash string) error {
	if _, err := tx.ExecContext(ctx,
		s.q(`UPDATE users SET password_hash = ? WHERE user_id = ?`), hash, userID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *Store) requireUser(ctx context.Context, q querier, userID int64) error {
	ok, err := s.exists(ctx, q, `SELECT 1 FROM users WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", types.ErrUnknownUser, userID)
	}
	return nil
}
