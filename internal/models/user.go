package models

import (
	"time"

	"natours/internal/authz"
)

type User struct {
	ID    int64      `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
	Photo string     `json:"photo"`
	Role  authz.Role `json:"role"`

	PasswordHash      string     `json:"-"` // never serialized
	PasswordChangedAt *time.Time `json:"-"`

	// reset flow: only the SHA-256 of the emailed token is stored
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`

	Active    bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at iat. Compared at second precision, like JWT iat.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name   *string     `json:"name"`
	Email  *string     `json:"email"`
	Photo  *string     `json:"photo"`
	Role   *authz.Role `json:"role"`
	Active *bool       `json:"active"`
}
