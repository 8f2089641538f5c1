package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/query"
)

const guidesExpr = `COALESCE((
	SELECT json_agg(json_build_object('id', g.id, 'name', g.name, 'email', g.email, 'photo', g.photo, 'role', g.role) ORDER BY tg.position)
	FROM tour_guides tg JOIN users g ON g.id = tg.user_id
	WHERE tg.tour_id = t.id AND g.active = TRUE), '[]'::json)`

const reviewsExpr = `COALESCE((
	SELECT json_agg(json_build_object('id', r.id, 'review', r.review, 'rating', r.rating, 'createdAt', r.created_at,
		'tour', r.tour_id, 'user', json_build_object('id', ru.id, 'name', ru.name, 'photo', ru.photo)) ORDER BY r.created_at)
	FROM reviews r JOIN users ru ON ru.id = r.user_id
	WHERE r.tour_id = t.id), '[]'::json)`

// TourSchema is the tour document with guides populated. Secret tours never
// match.
var TourSchema = &query.Schema{
	From: "tours t",
	Fields: []query.Field{
		{Name: "id", Expr: "t.id", Kind: query.KindInteger},
		{Name: "name", Expr: "t.name", Kind: query.KindText},
		{Name: "slug", Expr: "t.slug", Kind: query.KindText},
		{Name: "duration", Expr: "t.duration", Kind: query.KindInteger},
		{Name: "maxGroupSize", Expr: "t.max_group_size", Kind: query.KindInteger},
		{Name: "difficulty", Expr: "t.difficulty", Kind: query.KindText},
		{Name: "ratingsAverage", Expr: "t.ratings_average", Kind: query.KindNumber},
		{Name: "ratingsQuantity", Expr: "t.ratings_quantity", Kind: query.KindInteger},
		{Name: "price", Expr: "t.price", Kind: query.KindNumber},
		{Name: "priceDiscount", Expr: "t.price_discount", Kind: query.KindNumber},
		{Name: "summary", Expr: "t.summary", Kind: query.KindText},
		{Name: "description", Expr: "t.description", Kind: query.KindText},
		{Name: "imageCover", Expr: "t.image_cover", Kind: query.KindText},
		{Name: "images", Expr: "to_json(t.images)", Kind: query.KindJSON},
		{Name: "startDates", Expr: "to_json(t.start_dates)", Kind: query.KindJSON},
		{Name: "startLocation", Expr: "t.start_location", Kind: query.KindJSON},
		{Name: "locations", Expr: "t.locations", Kind: query.KindJSON},
		{Name: "guides", Expr: guidesExpr, Kind: query.KindJSON, Computed: true},
		{Name: "createdAt", Expr: "t.created_at", Kind: query.KindTime},
		{Name: "durationWeeks", Expr: "t.duration / 7.0", Kind: query.KindNumber, Computed: true},
		{Name: "version", Expr: "t.version", Kind: query.KindInteger},
	},
	Where: "t.secret_tour = FALSE",
}

// tourDetailSchema adds the tour's reviews.
var tourDetailSchema = TourSchema.Extend(
	query.Field{Name: "reviews", Expr: reviewsExpr, Kind: query.KindJSON, Computed: true},
)

// earthRadiusMeters matches the spherical model used for radius searches.
const earthRadiusMeters = 6378100.0

// angularDistance is the great-circle angle in radians between a tour's start
// and the point ($lat, $lng).
func angularDistance(lat, lng string) string {
	return fmt.Sprintf(`(2 * asin(sqrt(
		power(sin(radians(((t.start_location->'coordinates'->>1)::float8 - %[1]s) / 2)), 2) +
		cos(radians(%[1]s)) * cos(radians((t.start_location->'coordinates'->>1)::float8)) *
		power(sin(radians(((t.start_location->'coordinates'->>0)::float8 - %[2]s) / 2)), 2))))`, lat, lng)
}

type TourRepository interface {
	Create(ctx context.Context, in models.TourInput, slug string) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in models.TourInput, slug *string) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	GetByID(ctx context.Context, id int64) (*models.Tour, error)
	GetBySlug(ctx context.Context, slug string) (*models.Tour, error)
	FindBookedBy(ctx context.Context, userID int64) ([]models.Tour, error)

	Stats(ctx context.Context) ([]models.TourStats, error)
	MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error)
	Within(ctx context.Context, lat, lng, radians float64) ([]json.RawMessage, error)
	Distances(ctx context.Context, lat, lng, multiplier float64) ([]models.TourDistance, error)
}

type tourRepository struct {
	DB *sql.DB
}

func NewTourRepository(db *sql.DB) TourRepository {
	return &tourRepository{DB: db}
}

func startDatesArg(dates []time.Time) any {
	if dates == nil {
		return nil
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.UTC().Format(time.RFC3339)
	}
	return pq.Array(out)
}

func stringsArg(s []string) any {
	if s == nil {
		return nil
	}
	return pq.Array(s)
}

func (r *tourRepository) Create(ctx context.Context, in models.TourInput, slug string) (json.RawMessage, error) {
	const q = `
		INSERT INTO tours (
			name, slug, duration, max_group_size, difficulty, ratings_average, price, price_discount,
			summary, description, image_cover, images, start_dates, secret_tour, start_location, locations
		)
		VALUES (
			$1, $2, $3, $4, $5, COALESCE(ROUND($6::numeric, 1), 4.5), $7, $8,
			$9, COALESCE($10, ''), $11, COALESCE($12::text[], '{}'), COALESCE($13::timestamptz[], '{}'),
			COALESCE($14, FALSE), $15::jsonb, COALESCE($16::jsonb, '[]')
		)
		RETURNING id
	`
	startLoc, err := jsonOrNil(in.StartLocation)
	if err != nil {
		return nil, err
	}
	locs, err := jsonOrNil(in.Locations)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, q,
		in.Name, slug, in.Duration, in.MaxGroupSize, in.Difficulty, in.RatingsAverage, in.Price, in.PriceDiscount,
		in.Summary, in.Description, in.ImageCover, stringsArg(in.Images), startDatesArg(in.StartDates),
		in.SecretTour, startLoc, locs,
	).Scan(&id)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := replaceGuides(ctx, tx, id, in.Guides); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tour: %w", err)
	}
	return findDocument(ctx, r.DB, TourSchema, id, "tour")
}

func (r *tourRepository) Update(ctx context.Context, id int64, in models.TourInput, slug *string) (json.RawMessage, error) {
	const q = `
		UPDATE tours SET
			name            = COALESCE($2, name),
			slug            = COALESCE($3, slug),
			duration        = COALESCE($4, duration),
			max_group_size  = COALESCE($5, max_group_size),
			difficulty      = COALESCE($6, difficulty),
			ratings_average = COALESCE(ROUND($7::numeric, 1), ratings_average),
			price           = COALESCE($8, price),
			price_discount  = COALESCE($9, price_discount),
			summary         = COALESCE($10, summary),
			description     = COALESCE($11, description),
			image_cover     = COALESCE($12, image_cover),
			images          = COALESCE($13::text[], images),
			start_dates     = COALESCE($14::timestamptz[], start_dates),
			secret_tour     = COALESCE($15, secret_tour),
			start_location  = COALESCE($16::jsonb, start_location),
			locations       = COALESCE($17::jsonb, locations),
			version         = version + 1
		WHERE id = $1 AND secret_tour = FALSE
	`
	startLoc, err := jsonOrNil(in.StartLocation)
	if err != nil {
		return nil, err
	}
	locs, err := jsonOrNil(in.Locations)
	if err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, q, id,
		in.Name, slug, in.Duration, in.MaxGroupSize, in.Difficulty, in.RatingsAverage, in.Price, in.PriceDiscount,
		in.Summary, in.Description, in.ImageCover, stringsArg(in.Images), startDatesArg(in.StartDates),
		in.SecretTour, startLoc, locs,
	)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	if err := expectOneRow(res, "tour"); err != nil {
		return nil, err
	}
	if in.Guides != nil {
		if err := replaceGuides(ctx, tx, id, in.Guides); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tour: %w", err)
	}
	return findDocument(ctx, r.DB, TourSchema, id, "tour")
}

func replaceGuides(ctx context.Context, tx *sql.Tx, tourID int64, guides []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tour_guides WHERE tour_id = $1`, tourID); err != nil {
		return fmt.Errorf("clear guides: %w", err)
	}
	if len(guides) == 0 {
		return nil
	}
	const q = `
		INSERT INTO tour_guides (tour_id, user_id, position)
		SELECT $1, g.id, g.pos - 1
		FROM unnest($2::bigint[]) WITH ORDINALITY AS g(id, pos)
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, q, tourID, pq.Array(guides)); err != nil {
		return apperror.FromDB(err)
	}
	return nil
}

func (r *tourRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tours WHERE id = $1 AND secret_tour = FALSE`, id)
	if err != nil {
		return apperror.FromDB(err)
	}
	return expectOneRow(res, "tour")
}

func (r *tourRepository) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return findDocuments(ctx, r.DB, TourSchema, q)
}

func (r *tourRepository) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return findDocument(ctx, r.DB, tourDetailSchema, id, "tour")
}

func (r *tourRepository) GetByID(ctx context.Context, id int64) (*models.Tour, error) {
	return findOne[models.Tour](ctx, r.DB, TourSchema, map[string]any{"id": id}, "tour")
}

func (r *tourRepository) GetBySlug(ctx context.Context, slug string) (*models.Tour, error) {
	return findOne[models.Tour](ctx, r.DB, tourDetailSchema, map[string]any{"slug": slug}, "tour")
}

func (r *tourRepository) FindBookedBy(ctx context.Context, userID int64) ([]models.Tour, error) {
	s := TourSchema.Restrict("t.id IN (SELECT b.tour_id FROM bookings b WHERE b.user_id = $1)", userID)
	docs, err := findDocuments(ctx, r.DB, s, &query.Query{Sort: []query.SortKey{{Field: "name"}}})
	if err != nil {
		return nil, err
	}
	tours := make([]models.Tour, 0, len(docs))
	for _, d := range docs {
		var t models.Tour
		if err := json.Unmarshal(d, &t); err != nil {
			return nil, fmt.Errorf("decode tour: %w", err)
		}
		tours = append(tours, t)
	}
	return tours, nil
}

// Stats groups tours rated 4.5 or better by difficulty, cheapest first.
func (r *tourRepository) Stats(ctx context.Context) ([]models.TourStats, error) {
	const q = `
		SELECT upper(difficulty), COUNT(*), COALESCE(SUM(ratings_quantity), 0),
		       AVG(ratings_average)::float8, AVG(price)::float8, MIN(price)::float8, MAX(price)::float8
		FROM tours
		WHERE ratings_average >= 4.5
		GROUP BY upper(difficulty)
		ORDER BY AVG(price) ASC
	`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("tour stats: %w", err)
	}
	defer rows.Close()

	stats := []models.TourStats{}
	for rows.Next() {
		var s models.TourStats
		if err := rows.Scan(&s.Difficulty, &s.NumTours, &s.NumRatings, &s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, fmt.Errorf("scan tour stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// MonthlyPlan counts tour starts per month of year, busiest first.
func (r *tourRepository) MonthlyPlan(ctx context.Context, year int) ([]models.MonthlyPlan, error) {
	const q = `
		SELECT EXTRACT(MONTH FROM sd.start_date AT TIME ZONE 'UTC')::int AS month,
		       COUNT(*) AS num_tour_starts,
		       array_agg(t.name ORDER BY t.name) AS tours
		FROM tours t, unnest(t.start_dates) AS sd(start_date)
		WHERE sd.start_date >= $1 AND sd.start_date < $2
		GROUP BY month
		ORDER BY num_tour_starts DESC, month ASC
		LIMIT 12
	`
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	rows, err := r.DB.QueryContext(ctx, q, from, from.AddDate(1, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("monthly plan: %w", err)
	}
	defer rows.Close()

	plan := []models.MonthlyPlan{}
	for rows.Next() {
		var p models.MonthlyPlan
		if err := rows.Scan(&p.Month, &p.NumTourStarts, pq.Array(&p.Tours)); err != nil {
			return nil, fmt.Errorf("scan monthly plan: %w", err)
		}
		plan = append(plan, p)
	}
	return plan, rows.Err()
}

// Within returns tours whose start lies within radians of (lat, lng).
func (r *tourRepository) Within(ctx context.Context, lat, lng, radians float64) ([]json.RawMessage, error) {
	s := TourSchema.Restrict(
		"t.start_location IS NOT NULL AND "+angularDistance("$2", "$3")+" <= $1",
		radians, lat, lng,
	)
	q := &query.Query{Projection: query.Projection{Fields: []string{query.VersionField}, Exclude: true}}
	return findDocuments(ctx, r.DB, s, q)
}

// Distances lists every tour with a start location, nearest first. Distances
// are metres scaled by multiplier.
func (r *tourRepository) Distances(ctx context.Context, lat, lng, multiplier float64) ([]models.TourDistance, error) {
	q := `
		SELECT t.id, t.name, ` + angularDistance("$1", "$2") + ` * $3 * $4 AS distance
		FROM tours t
		WHERE t.start_location IS NOT NULL
		ORDER BY distance ASC
	`
	rows, err := r.DB.QueryContext(ctx, q, lat, lng, earthRadiusMeters, multiplier)
	if err != nil {
		return nil, fmt.Errorf("tour distances: %w", err)
	}
	defer rows.Close()

	out := []models.TourDistance{}
	for rows.Next() {
		var d models.TourDistance
		if err := rows.Scan(&d.ID, &d.Name, &d.Distance); err != nil {
			return nil, fmt.Errorf("scan tour distance: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
