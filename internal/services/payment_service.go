package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"natours/internal/apperror"
)

const eventCheckoutCompleted = "checkout.session.completed"

type CheckoutRequest struct {
	TourID        int64
	TourName      string
	Summary       string
	ImageURL      string
	Price         float64
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedCheckout is the part of a paid checkout that becomes a booking.
type CompletedCheckout struct {
	SessionID     string
	TourID        int64
	CustomerEmail string
	// Amount is in major currency units.
	Amount float64
}

type PaymentProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies the signature and returns the completed checkout,
	// or nil for any other event type.
	ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error)
}

type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeProvider struct {
	sessions      checkoutSessions
	webhookSecret string
	currency      string
}

func NewStripeProvider(secretKey, webhookSecret, currency string) PaymentProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &stripeProvider{sessions: sc.CheckoutSessions, webhookSecret: webhookSecret, currency: currency}
}

func (p *stripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(req.TourName + " Tour"),
		Description: stripe.String(req.Summary),
	}
	if req.ImageURL != "" {
		product.Images = stripe.StringSlice([]string{req.ImageURL})
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(strconv.FormatInt(req.TourID, 10)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				UnitAmount:  stripe.Int64(int64(math.Round(req.Price * 100))),
				ProductData: product,
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx

	s, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (p *stripeProvider) ParseWebhook(payload []byte, signature string) (*CompletedCheckout, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, apperror.Wrap(http.StatusBadRequest, fmt.Sprintf("Webhook error: %v", err), err)
	}
	if string(event.Type) != eventCheckoutCompleted {
		return nil, nil
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, apperror.Wrap(http.StatusBadRequest, "Webhook error: malformed checkout session", err)
	}
	tourID, err := strconv.ParseInt(strings.TrimSpace(s.ClientReferenceID), 10, 64)
	if err != nil {
		return nil, apperror.Wrap(http.StatusBadRequest, "Webhook error: missing tour reference", err)
	}
	email := s.CustomerEmail
	if email == "" && s.CustomerDetails != nil {
		email = s.CustomerDetails.Email
	}
	return &CompletedCheckout{
		SessionID:     s.ID,
		TourID:        tourID,
		CustomerEmail: email,
		Amount:        float64(s.AmountTotal) / 100,
	}, nil
}
