package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/apperror"
)

func bookingRouter(bookings *fakeBookings) http.Handler {
	h := NewBookingHandler(bookings, QueryOptions{}, Site{})
	r := newEngine(regularUser)
	r.POST("/webhook-checkout", h.Webhook)
	r.GET("/api/v1/bookings/checkout-session/:tourId", h.CheckoutSession)
	r.GET("/api/v1/bookings/:id/receipt", h.Receipt)
	return r
}

func TestCheckoutSession(t *testing.T) {
	bookings := &fakeBookings{}
	w, body := doJSON(t, bookingRouter(bookings), http.MethodGet, "/api/v1/bookings/checkout-session/7", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test", body["session"].(map[string]any)["url"])
	assert.EqualValues(t, 7, bookings.checkoutTour)
	assert.Equal(t, "http://example.com", bookings.checkoutBase)
}

func webhookRequest(payload, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhook-checkout", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signature)
	return req
}

func TestWebhook_Received(t *testing.T) {
	bookings := &fakeBookings{}
	w, body := serve(bookingRouter(bookings), webhookRequest(`{"type":"checkout.session.completed"}`, "t=1,v1=abc"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["received"])
	assert.Equal(t, `{"type":"checkout.session.completed"}`, bookings.payload)
	assert.Equal(t, "t=1,v1=abc", bookings.signature)
}

func TestWebhook_BadSignatureIsPlainText(t *testing.T) {
	bookings := &fakeBookings{completeErr: apperror.New(http.StatusBadRequest, "Webhook error: signature mismatch")}
	w, _ := serve(bookingRouter(bookings), webhookRequest(`{}`, "bad"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Webhook error: signature mismatch", w.Body.String())
}

func TestWebhook_InternalFailure(t *testing.T) {
	bookings := &fakeBookings{completeErr: errors.New("db down")}
	w, _ := serve(bookingRouter(bookings), webhookRequest(`{}`, "t=1,v1=abc"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Webhook handling failed", w.Body.String())
}

func TestWebhook_NotFoundIsPlainText(t *testing.T) {
	bookings := &fakeBookings{completeErr: apperror.NotFound("user")}
	w, _ := serve(bookingRouter(bookings), webhookRequest(`{}`, "t=1,v1=abc"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Webhook handling failed", w.Body.String())
	assert.NotContains(t, w.Body.String(), "<html")
}

func TestReceipt(t *testing.T) {
	w, _ := doJSON(t, bookingRouter(&fakeBookings{}), http.MethodGet, "/api/v1/bookings/4/receipt", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="booking-4.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3 receipt", w.Body.String())
}

func TestReceipt_Forbidden(t *testing.T) {
	w, body := doJSON(t, bookingRouter(&fakeBookings{receiptErr: apperror.ErrForbidden}), http.MethodGet, "/api/v1/bookings/4/receipt", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Content-Disposition"))
	assert.Equal(t, apperror.ErrForbidden.Error(), body["message"])
}
