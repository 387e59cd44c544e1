package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/ayush/blog/internal/models"
)

const userColumns = `id, handle, name, email, password_hash, active, must_reset_password, COALESCE(avatar, ''), created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Handle, &u.Name, &u.Email, &u.PasswordHash,
		&u.Active, &u.MustResetPassword, &u.Avatar, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByHandle looks a user up by handle, case-insensitively.
func (s *PostgresStore) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(handle) = LOWER($1)`, handle))
	if err != nil {
		return nil, oops.Code("USER_GET_BY_HANDLE_FAILED").With("handle", handle).Wrap(classify(err))
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, oops.Code("USER_GET_BY_ID_FAILED").With("id", id).Wrap(classify(err))
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, handle, email, password_hash, active, must_reset_password)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		u.Name, u.Handle, u.Email, u.PasswordHash, u.Active, u.MustResetPassword,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").With("handle", u.Handle).Wrap(classify(err))
	}
	return u, nil
}

// UpdatePassword stores a new hash together with the forced-reset flag.
func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, hash string, mustReset bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, must_reset_password = $2 WHERE id = $3`,
		hash, mustReset, id)
	if err != nil {
		return oops.Code("USER_PASSWORD_UPDATE_FAILED").With("id", id).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(models.ErrNotFound)
	}
	return nil
}

// ToggleActive flips the standing flag in one statement and returns the new value.
func (s *PostgresStore) ToggleActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := s.pool.QueryRow(ctx,
		`UPDATE users SET active = NOT active WHERE id = $1 RETURNING active`, id,
	).Scan(&active)
	if err != nil {
		return false, oops.Code("USER_TOGGLE_FAILED").With("id", id).Wrap(classify(err))
	}
	return active, nil
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, name, handle, avatar string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $1, handle = $2, avatar = NULLIF($3, '') WHERE id = $4`,
		name, handle, avatar, id)
	if err != nil {
		return oops.Code("USER_PROFILE_UPDATE_FAILED").With("id", id).With("handle", handle).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(models.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) UpdateEmail(ctx context.Context, id int64, email string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET email = $1 WHERE id = $2`, email, id)
	if err != nil {
		return oops.Code("USER_EMAIL_UPDATE_FAILED").With("id", id).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(models.ErrNotFound)
	}
	return nil
}

// DeleteUser removes the account; its posts go with it (ON DELETE CASCADE).
func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return oops.Code("USER_DELETE_FAILED").With("id", id).Wrap(classify(err))
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").With("id", id).Wrap(models.ErrNotFound)
	}
	return nil
}

// ListUsers returns every account, password hashes blanked.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, handle, name, email, active, must_reset_password, COALESCE(avatar, ''), created_at
		 FROM users ORDER BY id`)
	if err != nil {
		return nil, oops.Code("USER_LIST_FAILED").Wrap(classify(err))
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Handle, &u.Name, &u.Email, &u.Active,
			&u.MustResetPassword, &u.Avatar, &u.CreatedAt); err != nil {
			return nil, oops.Code("USER_LIST_FAILED").With("operation", "scan").Wrap(classify(err))
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("USER_LIST_FAILED").With("operation", "iterate").Wrap(classify(err))
	}
	return users, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, oops.Code("USER_COUNT_FAILED").Wrap(classify(err))
	}
	return n, nil
}
