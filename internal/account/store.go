package account

import (
	"context"
	"time"
)

// AccountUpdate is a partial update: nil fields are left untouched.
// Any applied update bumps the account's updated_at timestamp.
type AccountUpdate struct {
	Username     *string
	Email        *string
	Role         *Role
	PasswordHash *string
	Active       *bool
	LastLoginAt  *time.Time
}

// IsZero reports whether the update carries no fields.
func (u AccountUpdate) IsZero() bool {
	return u.Username == nil && u.Email == nil && u.Role == nil &&
		u.PasswordHash == nil && u.Active == nil && u.LastLoginAt == nil
}

// Store describes the persistence operations required by the account
// service. The store owns uniqueness: a racing insert or update that
// collides on username or email must surface ErrConflict, never corrupt
// data.
type Store interface {
	// Insert persists a new account and fills ID, CreatedAt and
	// UpdatedAt on success.
	Insert(ctx context.Context, acc *Account) error

	// FindByID returns the account with the given id or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByLogin matches login against username OR email (exact,
	// case-sensitive as stored) and returns the account or ErrNotFound.
	FindByLogin(ctx context.Context, login string) (*Account, error)

	// ExistsByUsernameOrEmail reports whether any account holds the
	// username or the email.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// Update applies a partial update and returns the updated account.
	// Returns ErrNotFound when no row matches, ErrConflict on a
	// uniqueness collision.
	Update(ctx context.Context, id int64, upd AccountUpdate) (*Account, error)

	// List returns every account ordered by creation time, most recent
	// first.
	List(ctx context.Context) ([]*Account, error)
}
