package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/apperror"
	"natours/internal/models"
)

func TestReviewCreate_Validation(t *testing.T) {
	svc := NewReviewService(&fakeReviewRepo{})

	_, err := svc.Create(context.Background(), models.ReviewInput{Review: ptr("  "), Rating: ptr(6.0)})
	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.ElementsMatch(t, []string{
		"Review can not be empty!",
		"Review must belong to a tour.",
		"Review must belong to a user",
		"Rating must be between 1 and 5",
	}, valErr.Messages)
}

func TestReviewCreate(t *testing.T) {
	repo := &fakeReviewRepo{}
	svc := NewReviewService(repo)

	_, err := svc.Create(context.Background(), models.ReviewInput{
		Review: ptr("Amazing!"), Rating: ptr(5.0), Tour: ptr(int64(3)), User: ptr(int64(9)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), *repo.created.Tour)
}

func TestReviewUpdate_IgnoresOwnership(t *testing.T) {
	repo := &fakeReviewRepo{}
	svc := NewReviewService(repo)

	_, err := svc.Update(context.Background(), 1, models.ReviewInput{
		Rating: ptr(4.0), Tour: ptr(int64(99)), User: ptr(int64(99)),
	})
	require.NoError(t, err)
	assert.Nil(t, repo.updated.Tour)
	assert.Nil(t, repo.updated.User)
	assert.Equal(t, 4.0, *repo.updated.Rating)
}
