package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/services"
)

const bookingAlert = "Your booking was successful! Please check your email for a confirmation. " +
	"If your booking doesn't show up here immediately, please come back later."

// ViewHandler renders the server-side pages.
type ViewHandler struct {
	tours services.TourService
	users services.UserService
}

func NewViewHandler(tours services.TourService, users services.UserService) *ViewHandler {
	return &ViewHandler{tours: tours, users: users}
}

// Alerts turns ?alert=booking into a banner message.
func (h *ViewHandler) Alerts(c *gin.Context) {
	if c.Query("alert") == "booking" {
		c.Set("alert", bookingAlert)
	}
	c.Next()
}

func (h *ViewHandler) render(c *gin.Context, name string, data gin.H) {
	data["user"] = middleware.CurrentUser(c)
	if alert, ok := c.Get("alert"); ok {
		data["alert"] = alert
	}
	c.HTML(http.StatusOK, name, data)
}

func (h *ViewHandler) Overview(c *gin.Context) {
	docs, err := h.tours.Find(c.Request.Context(), query.New(nil, nil).Apply())
	if err != nil {
		fail(c, err)
		return
	}
	tours, err := decodeTours(docs)
	if err != nil {
		fail(c, err)
		return
	}
	h.render(c, "overview.html", gin.H{"title": "All Tours", "tours": tours})
}

func (h *ViewHandler) Tour(c *gin.Context) {
	tour, err := h.tours.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	h.render(c, "tour.html", gin.H{"title": tour.Name + " Tour", "tour": tour})
}

func (h *ViewHandler) Login(c *gin.Context) {
	h.render(c, "login.html", gin.H{"title": "Log into your account"})
}

func (h *ViewHandler) Signup(c *gin.Context) {
	h.render(c, "signup.html", gin.H{"title": "Create your account"})
}

func (h *ViewHandler) Account(c *gin.Context) {
	h.render(c, "account.html", gin.H{"title": "Your account"})
}

func (h *ViewHandler) MyTours(c *gin.Context) {
	tours, err := h.tours.BookedBy(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.render(c, "overview.html", gin.H{"title": "My Tours", "tours": tours})
}

// SubmitUserData handles the plain form post on the account page.
func (h *ViewHandler) SubmitUserData(c *gin.Context) {
	name, email := c.PostForm("name"), c.PostForm("email")
	user, err := h.users.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), &name, &email, nil)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.SetCurrentUser(c, user)
	h.render(c, "account.html", gin.H{"title": "Your account"})
}

func decodeTours(docs []json.RawMessage) ([]models.Tour, error) {
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
