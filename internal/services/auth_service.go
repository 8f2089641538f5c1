package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/models"
	"natours/internal/utils"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLength = 8
	ResetTokenTTL     = 10 * time.Minute
)

// UserStore is the slice of the user repository the credential flows need.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, id int64, tokenHash *string, expires *time.Time) error
	SetPassword(ctx context.Context, id int64, passwordHash string, changedAt time.Time) error
}

type AuthConfig struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Claims is the session token payload.
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

type AuthService interface {
	HashPassword(password string) (string, error)
	IssueToken(userID int64) (string, error)
	VerifyCredentials(ctx context.Context, email, password string) (*models.User, error)
	AuthenticateRequest(ctx context.Context, token string) (*models.User, error)
	OptionalAuthenticate(ctx context.Context, token string) *models.User

	Signup(ctx context.Context, in models.SignupRequest, welcomeURL string) (*models.User, string, error)
	RequestPasswordReset(ctx context.Context, email string, buildURL func(raw string) string) error
	ResetPassword(ctx context.Context, rawToken, password, confirm string) (*models.User, string, error)
	ChangePassword(ctx context.Context, user *models.User, current, password, confirm string) (*models.User, string, error)
}

type authService struct {
	users  UserStore
	emails EmailService
	cfg    AuthConfig
}

func NewAuthService(users UserStore, emails EmailService, cfg AuthConfig) AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &authService{users: users, emails: emails, cfg: cfg}
}

func (s *authService) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *authService) IssueToken(userID int64) (string, error) {
	now := s.cfg.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyCredentials answers ErrInvalidCredentials for an unknown email and a
// wrong password alike.
func (s *authService) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperror.New(http.StatusBadRequest, "Please provide email and password!")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) AuthenticateRequest(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperror.ErrUnauthenticated
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return []byte(s.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.cfg.Now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apperror.ErrTokenExpired
	case err != nil, claims.IssuedAt == nil:
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.ChangedPasswordAfter(claims.IssuedAt.Time) {
		return nil, apperror.ErrStalePassword
	}
	return user, nil
}

func (s *authService) OptionalAuthenticate(ctx context.Context, token string) *models.User {
	if token == "" {
		return nil
	}
	user, err := s.AuthenticateRequest(ctx, token)
	if err != nil {
		return nil
	}
	return user
}

func (s *authService) Signup(ctx context.Context, in models.SignupRequest, welcomeURL string) (*models.User, string, error) {
	var msgs []string
	if strings.TrimSpace(in.Name) == "" {
		msgs = append(msgs, "Please tell us your name!")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(in.Email)); err != nil {
		msgs = append(msgs, "Please provide a valid email")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		msgs = append(msgs, err.Messages...)
	}
	if len(msgs) > 0 {
		return nil, "", apperror.Validation(msgs...)
	}

	hash, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, "", err
	}
	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		Role:         authz.RoleUser,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.emails.SendWelcomeEmail(ctx, user, welcomeURL); err != nil {
		log.Printf("[auth][signup] welcome email to %s failed: %v", user.Email, err)
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// RequestPasswordReset stores a fresh reset token and emails the link built
// from the raw token. The token is revoked again if the email cannot be sent.
func (s *authService) RequestPasswordReset(ctx context.Context, email string, buildURL func(raw string) string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.ErrNoSuchUser
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}

	raw, hash, err := utils.NewResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	expires := s.cfg.Now().Add(ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, &hash, &expires); err != nil {
		return err
	}

	if err := s.emails.SendPasswordResetEmail(ctx, user, buildURL(raw)); err != nil {
		if clearErr := s.users.SetResetToken(ctx, user.ID, nil, nil); clearErr != nil {
			log.Printf("[auth][forgot] rollback reset token for user=%d failed: %v", user.ID, clearErr)
		}
		log.Printf("[auth][forgot] reset email for user=%d failed: %v", user.ID, err)
		return apperror.ErrDeliveryFailed
	}
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, rawToken, password, confirm string) (*models.User, string, error) {
	user, err := s.users.GetByResetToken(ctx, utils.HashToken(rawToken), s.cfg.Now())
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, "", apperror.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	return s.setPassword(ctx, user, password, confirm)
}

func (s *authService) ChangePassword(ctx context.Context, user *models.User, current, password, confirm string) (*models.User, string, error) {
	fresh, err := s.users.GetByID(ctx, user.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, "", apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(fresh.PasswordHash), []byte(current)) != nil {
		return nil, "", apperror.ErrWrongPassword
	}
	return s.setPassword(ctx, fresh, password, confirm)
}

// setPassword stores the new hash and logs the user in. password_changed_at
// is backdated one second so the token issued here is not already stale.
func (s *authService) setPassword(ctx context.Context, user *models.User, password, confirm string) (*models.User, string, error) {
	if err := validatePassword(password, confirm); err != nil {
		return nil, "", err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	changedAt := s.cfg.Now().Add(-time.Second)
	if err := s.users.SetPassword(ctx, user.ID, hash, changedAt); err != nil {
		return nil, "", err
	}
	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetToken = nil
	user.PasswordResetExpires = nil

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func validatePassword(password, confirm string) *apperror.ValidationError {
	var msgs []string
	if len(password) < MinPasswordLength {
		msgs = append(msgs, fmt.Sprintf("A password must have at least %d characters", MinPasswordLength))
	}
	if password != confirm {
		msgs = append(msgs, "Passwords are not the same!")
	}
	if len(msgs) > 0 {
		return apperror.Validation(msgs...)
	}
	return nil
}
