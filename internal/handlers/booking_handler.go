package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/services"
)

const (
	maxWebhookBody = 64 << 10
	webhookFailed  = "Webhook handling failed"
)

type BookingHandler struct {
	bookings services.BookingService
	opts     QueryOptions
	site     Site
}

func NewBookingHandler(bookings services.BookingService, opts QueryOptions, site Site) *BookingHandler {
	return &BookingHandler{bookings: bookings, opts: opts, site: site}
}

// @Summary      Open a checkout session for a tour
// @Tags         Bookings
// @Produce      json
// @Param        tourId  path      int  true  "Tour ID"
// @Success      200     {object}  map[string]interface{}
// @Failure      404     {object}  map[string]string
// @Security     BearerAuth
// @Router       /bookings/checkout-session/{tourId} [get]
func (h *BookingHandler) CheckoutSession(c *gin.Context) {
	tourID, err := paramID(c, "tourId")
	if err != nil {
		fail(c, err)
		return
	}
	session, err := h.bookings.CheckoutSession(c.Request.Context(), middleware.CurrentUser(c), tourID, h.site.URL(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "session": session})
}

// Webhook receives signed checkout events from the payment provider.
func (h *BookingHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Printf("[booking][webhook] read body: %v", err)
		c.String(http.StatusBadRequest, "Webhook error: unreadable body")
		return
	}
	// failures are answered in plain text, never with the error page
	if err := h.bookings.CompleteCheckout(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		log.Printf("[booking][webhook] %v", err)
		status := apperror.StatusOf(err)
		if status == http.StatusBadRequest {
			c.String(status, err.Error())
			return
		}
		c.String(status, webhookFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// @Summary      Download a booking receipt
// @Tags         Bookings
// @Produce      application/pdf
// @Param        id   path  int  true  "Booking ID"
// @Success      200  {file}  file
// @Failure      403  {object}  map[string]string
// @Security     BearerAuth
// @Router       /bookings/{id}/receipt [get]
func (h *BookingHandler) Receipt(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := h.bookings.Receipt(c.Request.Context(), &buf, id, middleware.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="booking-%d.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *BookingHandler) GetAll(c *gin.Context) {
	getAll(h.bookings, h.opts, nil)(c)
}

func (h *BookingHandler) Get(c *gin.Context) {
	getOne(h.bookings)(c)
}

func (h *BookingHandler) Create(c *gin.Context) {
	createOne[models.BookingInput](h.bookings, nil)(c)
}

func (h *BookingHandler) Update(c *gin.Context) {
	updateOne[models.BookingInput](h.bookings)(c)
}

func (h *BookingHandler) Delete(c *gin.Context) {
	deleteOne(h.bookings)(c)
}
