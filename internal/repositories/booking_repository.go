package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
)

// BookingSchema is the booking document with tour and user populated.
var BookingSchema = &query.Schema{
	From: "bookings b JOIN tours bt ON bt.id = b.tour_id JOIN users bu ON bu.id = b.user_id",
	Fields: []query.Field{
		{Name: "id", Expr: "b.id", Kind: query.KindInteger},
		{Name: "tour", Expr: "json_build_object('id', bt.id, 'name', bt.name, 'slug', bt.slug)", Kind: query.KindJSON, Computed: true},
		{Name: "user", Expr: "json_build_object('id', bu.id, 'name', bu.name, 'email', bu.email)", Kind: query.KindJSON, Computed: true},
		{Name: "price", Expr: "b.price", Kind: query.KindNumber},
		{Name: "createdAt", Expr: "b.created_at", Kind: query.KindTime},
		{Name: "paid", Expr: "b.paid", Kind: query.KindBool},
		{Name: "version", Expr: "b.version", Kind: query.KindInteger},
	},
}

type BookingRepository interface {
	Create(ctx context.Context, in models.BookingInput) (json.RawMessage, error)
	// CreateFromCheckout records a paid checkout once per session id. It
	// reports false when the session was already recorded.
	CreateFromCheckout(ctx context.Context, tourID, userID int64, price float64, sessionID string) (bool, error)
	Update(ctx context.Context, id int64, in models.BookingInput) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
}

type bookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{DB: db}
}

func (r *bookingRepository) Create(ctx context.Context, in models.BookingInput) (json.RawMessage, error) {
	const q = `
		INSERT INTO bookings (tour_id, user_id, price, paid)
		VALUES ($1, $2, $3, COALESCE($4, TRUE))
		RETURNING id
	`
	var id int64
	if err := r.DB.QueryRowContext(ctx, q, in.Tour, in.User, in.Price, in.Paid).Scan(&id); err != nil {
		return nil, apperror.FromDB(err)
	}
	return findDocument(ctx, r.DB, BookingSchema, id, "booking")
}

func (r *bookingRepository) CreateFromCheckout(ctx context.Context, tourID, userID int64, price float64, sessionID string) (bool, error) {
	const q = `
		INSERT INTO bookings (tour_id, user_id, price, paid, stripe_session_id)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (stripe_session_id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, q, tourID, userID, price, sessionID)
	if err != nil {
		return false, apperror.FromDB(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *bookingRepository) Update(ctx context.Context, id int64, in models.BookingInput) (json.RawMessage, error) {
	const q = `
		UPDATE bookings
		SET tour_id = COALESCE($2, tour_id),
		    user_id = COALESCE($3, user_id),
		    price   = COALESCE($4, price),
		    paid    = COALESCE($5, paid),
		    version = version + 1
		WHERE id = $1
	`
	res, err := r.DB.ExecContext(ctx, q, id, in.Tour, in.User, in.Price, in.Paid)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := expectOneRow(res, "booking"); err != nil {
		return nil, err
	}
	return findDocument(ctx, r.DB, BookingSchema, id, "booking")
}

func (r *bookingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return apperror.FromDB(err)
	}
	return expectOneRow(res, "booking")
}

func (r *bookingRepository) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return findDocuments(ctx, r.DB, BookingSchema, q)
}

func (r *bookingRepository) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return findDocument(ctx, r.DB, BookingSchema, id, "booking")
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return findOne[models.Booking](ctx, r.DB, BookingSchema, map[string]any{"id": id}, "booking")
}
