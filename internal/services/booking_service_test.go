package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/models"
)

type bookingFixture struct {
	svc      BookingService
	users    *memUserStore
	bookings *fakeBookingRepo
	payments *fakePayments
	notifier *fakeNotifier
	receipts *fakeReceipts
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		users:    newMemUserStore(),
		bookings: &fakeBookingRepo{},
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
		receipts: &fakeReceipts{},
	}
	tours := &fakeTourRepo{tours: map[int64]*models.Tour{
		3: {ID: 3, Name: "The Forest Hiker", Slug: "the-forest-hiker", Summary: "Hike", Price: 397, ImageCover: "tour-3-cover.jpg"},
	}}
	f.svc = NewBookingService(BookingDeps{
		Bookings: f.bookings,
		Tours:    tours,
		Users:    f.users,
		Payments: f.payments,
		Notifier: f.notifier,
		Receipts: f.receipts,
		Images:   &memImages{},
		Currency: "usd",
	})
	return f
}

func TestCheckoutSession_BuildsRequest(t *testing.T) {
	f := newBookingFixture()
	user := &models.User{ID: 1, Email: "jonas@example.io"}

	sess, err := f.svc.CheckoutSession(context.Background(), user, 3, "http://localhost:3000/")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)

	req := f.payments.req
	assert.Equal(t, int64(3), req.TourID)
	assert.Equal(t, 397.0, req.Price)
	assert.Equal(t, "jonas@example.io", req.CustomerEmail)
	assert.Equal(t, "http://localhost:3000/img/tours/tour-3-cover.jpg", req.ImageURL)
	assert.Equal(t, "http://localhost:3000/my-tours?alert=booking", req.SuccessURL)
	assert.Equal(t, "http://localhost:3000/tour/the-forest-hiker", req.CancelURL)
}

func TestCheckoutSession_UnknownTour(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.CheckoutSession(context.Background(), &models.User{ID: 1}, 404, "http://x")
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
	assert.Nil(t, f.payments.req)
}

func TestCompleteCheckout_CreatesOnceAndNotifies(t *testing.T) {
	f := newBookingFixture()
	require.NoError(t, f.users.Create(context.Background(), &models.User{Name: "Jonas", Email: "jonas@example.io"}))
	f.payments.completed = &CompletedCheckout{SessionID: "cs_1", TourID: 3, CustomerEmail: "jonas@example.io", Amount: 397}

	require.NoError(t, f.svc.CompleteCheckout(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, f.svc.CompleteCheckout(context.Background(), []byte("{}"), "sig"))

	assert.Len(t, f.bookings.sessions, 1)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, "The Forest Hiker", f.notifier.notices[0].BookingTour)
	assert.Equal(t, "USD", f.notifier.notices[0].Currency)
}

func TestCompleteCheckout_IgnoredEvent(t *testing.T) {
	f := newBookingFixture()

	require.NoError(t, f.svc.CompleteCheckout(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, f.bookings.sessions)
}

func TestCompleteCheckout_Errors(t *testing.T) {
	f := newBookingFixture()
	f.payments.err = apperror.New(http.StatusBadRequest, "Webhook error: bad signature")
	err := f.svc.CompleteCheckout(context.Background(), nil, "bad")
	assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))

	f.payments.err = nil
	f.payments.completed = &CompletedCheckout{SessionID: "cs_2", TourID: 3, CustomerEmail: "ghost@example.io"}
	err = f.svc.CompleteCheckout(context.Background(), nil, "sig")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Empty(t, f.bookings.sessions)
}

func TestReceipt_OwnerOrStaff(t *testing.T) {
	f := newBookingFixture()
	booked := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	f.bookings.bookings = map[int64]*models.Booking{
		10: {
			ID:        10,
			Tour:      &models.BookingTour{ID: 3, Name: "The Forest Hiker"},
			User:      &models.BookingUser{ID: 1, Name: "Jonas", Email: "jonas@example.io"},
			Price:     397,
			Paid:      true,
			CreatedAt: booked,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, f.svc.Receipt(context.Background(), &buf, 10, &models.User{ID: 1, Role: authz.RoleUser}))
	assert.Equal(t, "%PDF-fake", buf.String())
	assert.Equal(t, "The Forest Hiker", f.receipts.data.TourName)
	assert.Equal(t, booked, f.receipts.data.BookedAt)

	err := f.svc.Receipt(context.Background(), &bytes.Buffer{}, 10, &models.User{ID: 2, Role: authz.RoleUser})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, f.svc.Receipt(context.Background(), &bytes.Buffer{}, 10, &models.User{ID: 2, Role: authz.RoleAdmin}))
}

func TestBookingCreate_Validation(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Create(context.Background(), models.BookingInput{})
	var valErr *apperror.ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Messages, 3)
}
