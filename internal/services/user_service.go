package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/repositories"
	"natours/internal/storage"
)

type UserService interface {
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	// Update is the administrator's edit; it may change roles and reactivate
	// accounts but never passwords.
	Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error

	UpdateMe(ctx context.Context, user *models.User, name, email *string, photo *storage.Upload) (*models.User, error)
	DeactivateMe(ctx context.Context, user *models.User) error
}

type userService struct {
	repo   repositories.UserRepository
	images storage.ImageStore
	newID  func() string
}

func NewUserService(repo repositories.UserRepository, images storage.ImageStore) UserService {
	return &userService{repo: repo, images: images, newID: uuid.NewString}
}

func (s *userService) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return s.repo.Find(ctx, q)
}

func (s *userService) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *userService) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	upd, err := normalizeUserUpdate(upd)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, upd)
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// UpdateMe lets a user edit their own name, email and photo.
func (s *userService) UpdateMe(ctx context.Context, user *models.User, name, email *string, photo *storage.Upload) (*models.User, error) {
	upd, err := normalizeUserUpdate(models.UserUpdate{Name: name, Email: email})
	if err != nil {
		return nil, err
	}
	if photo != nil {
		if err := photo.Validate(); err != nil {
			return nil, err
		}
		file := fmt.Sprintf("user-%d-%s.%s", user.ID, s.newID(), photo.Ext())
		if err := s.images.Put(ctx, storage.DirUsers, file, *photo); err != nil {
			return nil, err
		}
		upd.Photo = &file
	}
	if upd.Name == nil && upd.Email == nil && upd.Photo == nil {
		return user, nil
	}

	updated, err := s.repo.Update(ctx, user.ID, upd)
	if err != nil {
		return nil, err
	}
	log.Printf("[user][update-me] user=%d updated", user.ID)
	return updated, nil
}

func (s *userService) DeactivateMe(ctx context.Context, user *models.User) error {
	if err := s.repo.Deactivate(ctx, user.ID); err != nil {
		return err
	}
	log.Printf("[user][delete-me] user=%d deactivated", user.ID)
	return nil
}

// normalizeUserUpdate trims and lower-cases the email and validates the rest.
func normalizeUserUpdate(upd models.UserUpdate) (models.UserUpdate, error) {
	var msgs []string
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		msgs = append(msgs, "Please tell us your name!")
	}
	if upd.Email != nil {
		trimmed := strings.ToLower(strings.TrimSpace(*upd.Email))
		upd.Email = &trimmed
		if _, err := mail.ParseAddress(trimmed); err != nil {
			msgs = append(msgs, "Please provide a valid email")
		}
	}
	if upd.Role != nil && !upd.Role.Valid() {
		msgs = append(msgs, "Role is either: user, guide, lead-guide, admin")
	}
	if len(msgs) > 0 {
		return upd, apperror.Validation(msgs...)
	}
	return upd, nil
}
