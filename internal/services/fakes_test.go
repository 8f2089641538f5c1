package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/models"
)

type memUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*models.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[int64]*models.User{}}
}

func (m *memUserStore) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == strings.ToLower(u.Email) {
			return apperror.New(400, "Duplicate field value: "+u.Email+". Please use another value!")
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.Email = strings.ToLower(u.Email)
	u.Active = true
	if u.Role == "" {
		u.Role = authz.RoleUser
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUserStore) get(pred func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active && pred(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (m *memUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	return m.get(func(u *models.User) bool { return u.ID == id })
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return m.get(func(u *models.User) bool { return u.Email == strings.ToLower(email) })
}

func (m *memUserStore) GetByResetToken(_ context.Context, hash string, now time.Time) (*models.User, error) {
	return m.get(func(u *models.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == hash &&
			u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
}

func (m *memUserStore) SetResetToken(_ context.Context, id int64, hash *string, expires *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user")
	}
	u.PasswordResetToken, u.PasswordResetExpires = hash, expires
	return nil
}

func (m *memUserStore) SetPassword(_ context.Context, id int64, hash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user")
	}
	u.PasswordHash = hash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken, u.PasswordResetExpires = nil, nil
	return nil
}

func (m *memUserStore) raw(id int64) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

type sentEmail struct {
	kind string
	to   string
	url  string
}

type stubEmails struct {
	sent []sentEmail
	fail bool
}

func (s *stubEmails) SendWelcomeEmail(_ context.Context, u *models.User, url string) error {
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, sentEmail{"welcome", u.Email, url})
	return nil
}

func (s *stubEmails) SendPasswordResetEmail(_ context.Context, u *models.User, url string) error {
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, sentEmail{"reset", u.Email, url})
	return nil
}

type stubMailer struct {
	to, subject, html string
	err               error
}

func (m *stubMailer) Send(_ context.Context, to, subject, html string) error {
	m.to, m.subject, m.html = to, subject, html
	return m.err
}
