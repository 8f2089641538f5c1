package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
)

// ReviewSchema is the review document with its author populated.
var ReviewSchema = &query.Schema{
	From: "reviews r JOIN users ru ON ru.id = r.user_id",
	Fields: []query.Field{
		{Name: "id", Expr: "r.id", Kind: query.KindInteger},
		{Name: "review", Expr: "r.review", Kind: query.KindText},
		{Name: "rating", Expr: "r.rating", Kind: query.KindNumber},
		{Name: "createdAt", Expr: "r.created_at", Kind: query.KindTime},
		{Name: "tour", Expr: "r.tour_id", Kind: query.KindInteger},
		{Name: "user", Expr: "json_build_object('id', ru.id, 'name', ru.name, 'photo', ru.photo)", Kind: query.KindJSON, Computed: true},
		{Name: "version", Expr: "r.version", Kind: query.KindInteger},
	},
}

// recalcRatings refreshes the tour's rating aggregates from its reviews.
const recalcRatings = `
	UPDATE tours t
	SET ratings_quantity = s.n,
	    ratings_average  = s.avg
	FROM (
		SELECT COUNT(r.id) AS n, COALESCE(ROUND(AVG(r.rating), 1), 4.5) AS avg
		FROM reviews r
		WHERE r.tour_id = $1
	) s
	WHERE t.id = $1
`

type ReviewRepository interface {
	Create(ctx context.Context, in models.ReviewInput) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in models.ReviewInput) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
}

type reviewRepository struct {
	DB *sql.DB
}

func NewReviewRepository(db *sql.DB) ReviewRepository {
	return &reviewRepository{DB: db}
}

func (r *reviewRepository) Create(ctx context.Context, in models.ReviewInput) (json.RawMessage, error) {
	const q = `
		INSERT INTO reviews (review, rating, tour_id, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, tour_id
	`
	var id int64
	err := r.inTx(ctx, func(tx *sql.Tx) (int64, error) {
		var tourID int64
		if err := tx.QueryRowContext(ctx, q, in.Review, in.Rating, in.Tour, in.User).Scan(&id, &tourID); err != nil {
			return 0, apperror.FromDB(err)
		}
		return tourID, nil
	})
	if err != nil {
		return nil, err
	}
	return findDocument(ctx, r.DB, ReviewSchema, id, "review")
}

func (r *reviewRepository) Update(ctx context.Context, id int64, in models.ReviewInput) (json.RawMessage, error) {
	const q = `
		UPDATE reviews
		SET review = COALESCE($2, review),
		    rating = COALESCE($3, rating),
		    version = version + 1
		WHERE id = $1
		RETURNING tour_id
	`
	err := r.inTx(ctx, func(tx *sql.Tx) (int64, error) {
		var tourID int64
		err := tx.QueryRowContext(ctx, q, id, in.Review, in.Rating).Scan(&tourID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("review")
		}
		if err != nil {
			return 0, apperror.FromDB(err)
		}
		return tourID, nil
	})
	if err != nil {
		return nil, err
	}
	return findDocument(ctx, r.DB, ReviewSchema, id, "review")
}

func (r *reviewRepository) Delete(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) (int64, error) {
		var tourID int64
		err := tx.QueryRowContext(ctx, `DELETE FROM reviews WHERE id = $1 RETURNING tour_id`, id).Scan(&tourID)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("review")
		}
		if err != nil {
			return 0, apperror.FromDB(err)
		}
		return tourID, nil
	})
}

// inTx runs fn and then recomputes ratings for the tour id it returns, both in
// one transaction.
func (r *reviewRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) (int64, error)) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	tourID, err := fn(tx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, recalcRatings, tourID); err != nil {
		return fmt.Errorf("recalc ratings: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	return nil
}

func (r *reviewRepository) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return findDocuments(ctx, r.DB, ReviewSchema, q)
}

func (r *reviewRepository) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return findDocument(ctx, r.DB, ReviewSchema, id, "review")
}
