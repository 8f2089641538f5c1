package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/models"
	"natours/internal/query"
)

// UserSchema is the public user document. Deactivated accounts are hidden.
var UserSchema = &query.Schema{
	From: "users u",
	Fields: []query.Field{
		{Name: "id", Expr: "u.id", Kind: query.KindInteger},
		{Name: "name", Expr: "u.name", Kind: query.KindText},
		{Name: "email", Expr: "u.email", Kind: query.KindText},
		{Name: "photo", Expr: "u.photo", Kind: query.KindText},
		{Name: "role", Expr: "u.role", Kind: query.KindText},
		{Name: "createdAt", Expr: "u.created_at", Kind: query.KindTime},
		{Name: "version", Expr: "u.version", Kind: query.KindInteger},
	},
	Where: "u.active = TRUE",
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id int64, tokenHash *string, expires *time.Time) error
	SetPassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error

	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
}

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, name, email, photo, role, password_hash, password_changed_at,
	password_reset_token, password_reset_expires, active, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		role       string
		changedAt  sql.NullTime
		resetToken sql.NullString
		resetExp   sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &role, &u.PasswordHash, &changedAt,
		&resetToken, &resetExp, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	u.Role = authz.Role(role)
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	if resetToken.Valid {
		s := resetToken.String
		u.PasswordResetToken = &s
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.PasswordResetExpires = &t
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const q = `
		INSERT INTO users (name, email, photo, role, password_hash, password_changed_at)
		VALUES ($1, lower($2), COALESCE(NULLIF($3, ''), 'default.jpg'), COALESCE(NULLIF($4, ''), 'user'), $5, $6)
		RETURNING id, email, photo, role, active, created_at
	`
	var role string
	err := r.DB.QueryRowContext(ctx, q,
		strings.TrimSpace(user.Name),
		strings.TrimSpace(user.Email),
		user.Photo,
		string(user.Role),
		user.PasswordHash,
		user.PasswordChangedAt,
	).Scan(&user.ID, &user.Email, &user.Photo, &role, &user.Active, &user.CreatedAt)
	if err != nil {
		return apperror.FromDB(err)
	}
	user.Role = authz.Role(role)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND active = TRUE`
	return scanUser(r.DB.QueryRowContext(ctx, q, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = lower($1) AND active = TRUE`
	return scanUser(r.DB.QueryRowContext(ctx, q, strings.TrimSpace(email)))
}

func (r *userRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > $2 AND active = TRUE`
	return scanUser(r.DB.QueryRowContext(ctx, q, tokenHash, now))
}

// SetResetToken stores (or, with nils, clears) the pending reset token.
func (r *userRepository) SetResetToken(ctx context.Context, id int64, tokenHash *string, expires *time.Time) error {
	const q = `UPDATE users SET password_reset_token = $2, password_reset_expires = $3 WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, q, id, tokenHash, expires)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return expectOneRow(res, "user")
}

// SetPassword replaces the hash and consumes any pending reset token.
func (r *userRepository) SetPassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error {
	const q = `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3,
		    password_reset_token = NULL, password_reset_expires = NULL,
		    version = version + 1
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, q, id, passwordHash, changedAt)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return expectOneRow(res, "user")
}

func (r *userRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	q := `
		UPDATE users
		SET name   = COALESCE($2, name),
		    email  = COALESCE(lower($3), email),
		    photo  = COALESCE($4, photo),
		    role   = COALESCE($5, role),
		    active = COALESCE($6, active),
		    version = version + 1
		WHERE id = $1 AND active = TRUE
		RETURNING ` + userColumns
	var role *string
	if upd.Role != nil {
		s := string(*upd.Role)
		role = &s
	}
	u, err := scanUser(r.DB.QueryRowContext(ctx, q, id, upd.Name, upd.Email, upd.Photo, role, upd.Active))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("user")
	}
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	return u, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE users SET active = FALSE WHERE id = $1 AND active = TRUE`, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return expectOneRow(res, "user")
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperror.FromDB(err)
	}
	return expectOneRow(res, "user")
}

func (r *userRepository) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return findDocuments(ctx, r.DB, UserSchema, q)
}

func (r *userRepository) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return findDocument(ctx, r.DB, UserSchema, id, "user")
}
