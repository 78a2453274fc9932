package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"brewtrack.dev/internal/account"
)

var _ account.Store = (*Store)(nil)

const accountColumns = `id, username, email, password_hash, role, active, created_at, updated_at, last_login_at`

func (s *Store) Insert(ctx context.Context, acc *account.Account) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		insert into accounts (username, email, password_hash, role, active)
		values ($1, $2, $3, $4, $5)
		returning id, created_at, updated_at
	`, acc.Username, acc.Email, acc.PasswordHash, acc.Role.String(), acc.Active)
	if err := row.Scan(&acc.ID, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return account.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from accounts
		where id = $1
	`, id)
	return scanAccount(row)
}

func (s *Store) FindByLogin(ctx context.Context, login string) (*account.Account, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from accounts
		where username = $1 or email = $1
	`, login)
	return scanAccount(row)
}

func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (select 1 from accounts where username = $1 or email = $2)
	`, username, email).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) Update(ctx context.Context, id int64, upd account.AccountUpdate) (*account.Account, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	if upd.Username != nil {
		sets = append(sets, fmt.Sprintf("username = $%d", idx))
		args = append(args, *upd.Username)
		idx++
	}
	if upd.Email != nil {
		sets = append(sets, fmt.Sprintf("email = $%d", idx))
		args = append(args, *upd.Email)
		idx++
	}
	if upd.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", idx))
		args = append(args, upd.Role.String())
		idx++
	}
	if upd.PasswordHash != nil {
		sets = append(sets, fmt.Sprintf("password_hash = $%d", idx))
		args = append(args, *upd.PasswordHash)
		idx++
	}
	if upd.Active != nil {
		sets = append(sets, fmt.Sprintf("active = $%d", idx))
		args = append(args, *upd.Active)
		idx++
	}
	if upd.LastLoginAt != nil {
		sets = append(sets, fmt.Sprintf("last_login_at = $%d", idx))
		args = append(args, *upd.LastLoginAt)
		idx++
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update accounts set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return nil, account.ErrConflict
			}
			return nil, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if aff == 0 {
			return nil, account.ErrNotFound
		}
	}
	return s.FindByID(ctx, id)
}

func (s *Store) List(ctx context.Context) ([]*account.Account, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+`
		from accounts
		order by created_at desc, id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		acc, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*account.Account, error) {
	acc, err := scanAccountRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func scanAccountRow(row rowScanner) (*account.Account, error) {
	var (
		acc       account.Account
		role      string
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &role,
		&acc.Active, &acc.CreatedAt, &acc.UpdatedAt, &lastLogin,
	); err != nil {
		return nil, err
	}
	acc.Role = account.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		acc.LastLoginAt = &t
	}
	return &acc, nil
}
