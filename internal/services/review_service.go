package services

import (
	"context"
	"encoding/json"
	"strings"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/repositories"
)

type ReviewService interface {
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	Create(ctx context.Context, in models.ReviewInput) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in models.ReviewInput) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error
}

type reviewService struct {
	repo repositories.ReviewRepository
}

func NewReviewService(repo repositories.ReviewRepository) ReviewService {
	return &reviewService{repo: repo}
}

func (s *reviewService) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return s.repo.Find(ctx, q)
}

func (s *reviewService) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *reviewService) Create(ctx context.Context, in models.ReviewInput) (json.RawMessage, error) {
	var msgs []string
	if in.Review == nil || strings.TrimSpace(*in.Review) == "" {
		msgs = append(msgs, "Review can not be empty!")
	}
	if in.Rating == nil {
		msgs = append(msgs, "A review must have a rating")
	}
	if in.Tour == nil {
		msgs = append(msgs, "Review must belong to a tour.")
	}
	if in.User == nil {
		msgs = append(msgs, "Review must belong to a user")
	}
	msgs = append(msgs, ratingMessages(in.Rating)...)
	if len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}
	return s.repo.Create(ctx, in)
}

// Update changes the text and rating only; a review never moves to another
// tour or author.
func (s *reviewService) Update(ctx context.Context, id int64, in models.ReviewInput) (json.RawMessage, error) {
	msgs := ratingMessages(in.Rating)
	if in.Review != nil && strings.TrimSpace(*in.Review) == "" {
		msgs = append(msgs, "Review can not be empty!")
	}
	if len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}
	return s.repo.Update(ctx, id, models.ReviewInput{Review: in.Review, Rating: in.Rating})
}

func (s *reviewService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func ratingMessages(r *float64) []string {
	if r == nil {
		return nil
	}
	if *r < 1 || *r > 5 {
		return []string{"Rating must be between 1 and 5"}
	}
	return nil
}
