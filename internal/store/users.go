package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/natvps/panel/pkg/auth"
	"github.com/natvps/panel/pkg/pg"
	"github.com/natvps/panel/pkg/twofactor"
)

// User is a panel account.
type User = auth.User

// Users reads and writes the users table. It implements
// auth.UserStorage, twofactor.UserStore and audit.NameResolver.
type Users struct {
	db DB
}

// NewUsers creates a user store.
func NewUsers(db DB) *Users {
	return &Users{db: db}
}

const userColumns = `id, name, email, password_hash, is_admin, created_at`

// Create inserts a user and fills in ID and CreatedAt.
func (s *Users) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRow(ctx,
		`INSERT INTO users (name, email, password_hash, is_admin)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.PasswordHash, u.IsAdmin,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up by case-insensitive email.
func (s *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`,
		strings.TrimSpace(email))
}

// FindByID looks a user up by id.
func (s *Users) FindByID(ctx context.Context, id int64) (*User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Users) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := s.db.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// UserNames resolves display names for the given ids. Unknown ids are
// absent from the result.
func (s *Users) UserNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := s.db.Query(ctx, `SELECT id, name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan user name: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resolve user names: %w", err)
	}
	return names, nil
}

// LoadState returns the two-factor columns of a user.
func (s *Users) LoadState(ctx context.Context, userID int64) (twofactor.State, error) {
	var (
		st     twofactor.State
		secret *string
		codes  *string
	)
	err := s.db.QueryRow(ctx,
		`SELECT two_factor_secret, two_factor_recovery_codes, two_factor_confirmed_at, two_factor_version
		 FROM users WHERE id = $1`, userID,
	).Scan(&secret, &codes, &st.ConfirmedAt, &st.Version)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return twofactor.State{}, twofactor.ErrUserNotFound
		}
		return twofactor.State{}, fmt.Errorf("load two-factor state: %w", err)
	}
	if secret != nil {
		st.Secret = *secret
	}
	if codes != nil {
		st.RecoveryCodes = *codes
	}
	return st, nil
}

// SaveState writes next when the stored version still equals next.Version.
func (s *Users) SaveState(ctx context.Context, userID int64, next twofactor.State) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE users
		 SET two_factor_secret = $3,
		     two_factor_recovery_codes = $4,
		     two_factor_confirmed_at = $5,
		     two_factor_version = two_factor_version + 1,
		     updated_at = NOW()
		 WHERE id = $1 AND two_factor_version = $2`,
		userID, next.Version, nullable(next.Secret), nullable(next.RecoveryCodes), next.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("save two-factor state: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: tell a missing user from a lost race.
	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("save two-factor state: %w", err)
	}
	if !exists {
		return twofactor.ErrUserNotFound
	}
	return twofactor.ErrVersionConflict
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var (
	_ twofactor.UserStore = (*Users)(nil)
	_ auth.UserStorage    = (*Users)(nil)
)

// IsUserNotFound matches the missing-user error of both lookups and
// two-factor state access.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, twofactor.ErrUserNotFound)
}
