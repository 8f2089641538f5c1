package services

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/pdf"
	"natours/internal/repositories"
	"natours/internal/storage"
)

// fakeTourRepo records writes; unlisted methods panic through the nil
// embedded interface.
type fakeTourRepo struct {
	repositories.TourRepository

	tours       map[int64]*models.Tour
	created     *models.TourInput
	createdSlug string
	updated     *models.TourInput
	updatedSlug *string
	radians     float64
	multiplier  float64
}

func (f *fakeTourRepo) Create(_ context.Context, in models.TourInput, slug string) (json.RawMessage, error) {
	f.created, f.createdSlug = &in, slug
	return json.RawMessage(`{"id":1}`), nil
}

func (f *fakeTourRepo) Update(_ context.Context, id int64, in models.TourInput, slug *string) (json.RawMessage, error) {
	f.updated, f.updatedSlug = &in, slug
	return json.RawMessage(`{"id":1}`), nil
}

func (f *fakeTourRepo) GetByID(_ context.Context, id int64) (*models.Tour, error) {
	if t, ok := f.tours[id]; ok {
		return t, nil
	}
	return nil, apperror.NotFound("tour")
}

func (f *fakeTourRepo) GetBySlug(_ context.Context, slug string) (*models.Tour, error) {
	for _, t := range f.tours {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (f *fakeTourRepo) Within(_ context.Context, lat, lng, radians float64) ([]json.RawMessage, error) {
	f.radians = radians
	return nil, nil
}

func (f *fakeTourRepo) Distances(_ context.Context, lat, lng, multiplier float64) ([]models.TourDistance, error) {
	f.multiplier = multiplier
	return nil, nil
}

type fakeReviewRepo struct {
	repositories.ReviewRepository

	created *models.ReviewInput
	updated *models.ReviewInput
}

func (f *fakeReviewRepo) Create(_ context.Context, in models.ReviewInput) (json.RawMessage, error) {
	f.created = &in
	return json.RawMessage(`{"id":1}`), nil
}

func (f *fakeReviewRepo) Update(_ context.Context, id int64, in models.ReviewInput) (json.RawMessage, error) {
	f.updated = &in
	return json.RawMessage(`{"id":1}`), nil
}

type fakeBookingRepo struct {
	repositories.BookingRepository

	mu       sync.Mutex
	sessions map[string]bool
	bookings map[int64]*models.Booking
}

func (f *fakeBookingRepo) CreateFromCheckout(_ context.Context, tourID, userID int64, price float64, sessionID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]bool{}
	}
	if f.sessions[sessionID] {
		return false, nil
	}
	f.sessions[sessionID] = true
	return true, nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	if b, ok := f.bookings[id]; ok {
		return b, nil
	}
	return nil, apperror.NotFound("booking")
}

// memUserRepo extends memUserStore with the admin operations.
type memUserRepo struct {
	*memUserStore
	repositories.UserRepository

	lastUpdate *models.UserUpdate
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{memUserStore: newMemUserStore()}
}

func (m *memUserRepo) Create(ctx context.Context, u *models.User) error {
	return m.memUserStore.Create(ctx, u)
}

func (m *memUserRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return m.memUserStore.GetByID(ctx, id)
}

func (m *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.memUserStore.GetByEmail(ctx, email)
}

func (m *memUserRepo) GetByResetToken(ctx context.Context, hash string, now time.Time) (*models.User, error) {
	return m.memUserStore.GetByResetToken(ctx, hash, now)
}

func (m *memUserRepo) SetResetToken(ctx context.Context, id int64, hash *string, expires *time.Time) error {
	return m.memUserStore.SetResetToken(ctx, id, hash, expires)
}

func (m *memUserRepo) SetPassword(ctx context.Context, id int64, hash string, changedAt time.Time) error {
	return m.memUserStore.SetPassword(ctx, id, hash, changedAt)
}

func (m *memUserRepo) Update(_ context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	m.lastUpdate = &upd
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user")
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	if upd.Photo != nil {
		u.Photo = *upd.Photo
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NotFound("user")
	}
	u.Active = false
	return nil
}

type storedImage struct {
	dir, name string
}

type memImages struct {
	stored []storedImage
}

func (m *memImages) Put(_ context.Context, dir, name string, up storage.Upload) error {
	m.stored = append(m.stored, storedImage{dir, name})
	return nil
}

func (m *memImages) URL(dir, name string) string {
	return "/img/" + dir + "/" + name
}

type fakePayments struct {
	req       *CheckoutRequest
	completed *CompletedCheckout
	err       error
}

func (f *fakePayments) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	f.req = &req
	return &CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}, nil
}

func (f *fakePayments) ParseWebhook([]byte, string) (*CompletedCheckout, error) {
	return f.completed, f.err
}

type fakeNotifier struct {
	notices []BookingNotice
}

func (f *fakeNotifier) NotifyBooking(_ context.Context, n BookingNotice) error {
	f.notices = append(f.notices, n)
	return nil
}

type fakeReceipts struct {
	data *pdf.ReceiptData
}

func (f *fakeReceipts) Render(w io.Writer, d pdf.ReceiptData) error {
	f.data = &d
	_, err := io.WriteString(w, "%PDF-fake")
	return err
}
