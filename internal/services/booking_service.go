package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/models"
	"natours/internal/pdf"
	"natours/internal/query"
	"natours/internal/repositories"
	"natours/internal/storage"
)

type BookingService interface {
	Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error)
	FindByID(ctx context.Context, id int64) (json.RawMessage, error)
	Create(ctx context.Context, in models.BookingInput) (json.RawMessage, error)
	Update(ctx context.Context, id int64, in models.BookingInput) (json.RawMessage, error)
	Delete(ctx context.Context, id int64) error

	// CheckoutSession opens a payment session for tourID; baseURL is the
	// site root used for the return links.
	CheckoutSession(ctx context.Context, user *models.User, tourID int64, baseURL string) (*CheckoutSession, error)
	// CompleteCheckout records the booking for a signed checkout webhook.
	CompleteCheckout(ctx context.Context, payload []byte, signature string) error
	Receipt(ctx context.Context, w io.Writer, bookingID int64, user *models.User) error
}

type BookingDeps struct {
	Bookings repositories.BookingRepository
	Tours    repositories.TourRepository
	Users    UserStore
	Payments PaymentProvider
	Notifier Notifier
	Receipts pdf.ReceiptRenderer
	Images   storage.ImageStore
	Currency string
}

type bookingService struct {
	BookingDeps
}

func NewBookingService(deps BookingDeps) BookingService {
	return &bookingService{BookingDeps: deps}
}

func (s *bookingService) Find(ctx context.Context, q *query.Query) ([]json.RawMessage, error) {
	return s.Bookings.Find(ctx, q)
}

func (s *bookingService) FindByID(ctx context.Context, id int64) (json.RawMessage, error) {
	return s.Bookings.FindByID(ctx, id)
}

func (s *bookingService) Create(ctx context.Context, in models.BookingInput) (json.RawMessage, error) {
	var msgs []string
	if in.Tour == nil {
		msgs = append(msgs, "Booking must belong to a Tour!")
	}
	if in.User == nil {
		msgs = append(msgs, "Booking must belong to a User!")
	}
	if in.Price == nil {
		msgs = append(msgs, "Booking must have a price.")
	}
	if len(msgs) > 0 {
		return nil, apperror.Validation(msgs...)
	}
	return s.Bookings.Create(ctx, in)
}

func (s *bookingService) Update(ctx context.Context, id int64, in models.BookingInput) (json.RawMessage, error) {
	return s.Bookings.Update(ctx, id, in)
}

func (s *bookingService) Delete(ctx context.Context, id int64) error {
	return s.Bookings.Delete(ctx, id)
}

func (s *bookingService) CheckoutSession(ctx context.Context, user *models.User, tourID int64, baseURL string) (*CheckoutSession, error) {
	tour, err := s.Tours.GetByID(ctx, tourID)
	if err != nil {
		return nil, err
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	image := ""
	if tour.ImageCover != "" {
		image = s.Images.URL(storage.DirTours, tour.ImageCover)
		if strings.HasPrefix(image, "/") {
			image = baseURL + image
		}
	}
	return s.Payments.CreateCheckoutSession(ctx, CheckoutRequest{
		TourID:        tour.ID,
		TourName:      tour.Name,
		Summary:       tour.Summary,
		ImageURL:      image,
		Price:         tour.Price,
		CustomerEmail: user.Email,
		SuccessURL:    baseURL + "/my-tours?alert=booking",
		CancelURL:     baseURL + "/tour/" + tour.Slug,
	})
}

func (s *bookingService) CompleteCheckout(ctx context.Context, payload []byte, signature string) error {
	done, err := s.Payments.ParseWebhook(payload, signature)
	if err != nil || done == nil {
		return err
	}

	user, err := s.Users.GetByEmail(ctx, done.CustomerEmail)
	if err != nil {
		return fmt.Errorf("checkout %s: customer %q: %w", done.SessionID, done.CustomerEmail, err)
	}
	created, err := s.Bookings.CreateFromCheckout(ctx, done.TourID, user.ID, done.Amount, done.SessionID)
	if err != nil {
		return fmt.Errorf("checkout %s: create booking: %w", done.SessionID, err)
	}
	if !created {
		log.Printf("[booking][webhook] session=%s already recorded", done.SessionID)
		return nil
	}
	log.Printf("[booking][webhook] session=%s tour=%d user=%d booked", done.SessionID, done.TourID, user.ID)

	notice := BookingNotice{CustomerEmail: user.Email, Price: done.Amount, Currency: strings.ToUpper(s.Currency)}
	if tour, err := s.Tours.GetByID(ctx, done.TourID); err == nil {
		notice.BookingTour = tour.Name
	} else {
		notice.BookingTour = fmt.Sprintf("#%d", done.TourID)
	}
	if err := s.Notifier.NotifyBooking(ctx, notice); err != nil {
		log.Printf("[booking][webhook] notify failed: %v", err)
	}
	return nil
}

// Receipt renders a PDF receipt. Customers may only fetch their own.
func (s *bookingService) Receipt(ctx context.Context, w io.Writer, bookingID int64, user *models.User) error {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.User == nil || b.Tour == nil {
		return errors.New("booking document is missing its tour or user")
	}
	if b.User.ID != user.ID && !authz.IsStaff(user.Role) {
		return apperror.ErrForbidden
	}
	return s.Receipts.Render(w, pdf.ReceiptData{
		BookingID:     b.ID,
		TourName:      b.Tour.Name,
		CustomerName:  b.User.Name,
		CustomerEmail: b.User.Email,
		Price:         b.Price,
		Currency:      strings.ToUpper(s.Currency),
		Paid:          b.Paid,
		BookedAt:      b.CreatedAt,
	})
}
