package handlers

import (
	"github.com/gin-gonic/gin"

	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/query"
	"natours/internal/services"
)

const tourIDKey = "tourID"

type ReviewHandler struct {
	reviews services.ReviewService
	opts    QueryOptions
}

func NewReviewHandler(reviews services.ReviewService, opts QueryOptions) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, opts: opts}
}

// FromTour scopes the nested /tours/:id/reviews routes to that tour.
func (h *ReviewHandler) FromTour(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	c.Set(tourIDKey, id)
	c.Next()
}

func nestedTourID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(tourIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// @Summary      List reviews, optionally of one tour
// @Tags         Reviews
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /reviews [get]
func (h *ReviewHandler) GetAll(c *gin.Context) {
	getAll(h.reviews, h.opts, func(c *gin.Context) (*query.Query, error) {
		if id, ok := nestedTourID(c); ok {
			return &query.Query{Filter: map[string]any{"tour": id}}, nil
		}
		return nil, nil
	})(c)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	getOne(h.reviews)(c)
}

// @Summary      Review a tour
// @Tags         Reviews
// @Accept       json
// @Produce      json
// @Param        review  body      models.ReviewInput  true  "Review"
// @Success      201     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Security     BearerAuth
// @Router       /reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	createOne[models.ReviewInput](h.reviews, func(c *gin.Context, in *models.ReviewInput) error {
		if in.Tour == nil {
			if id, ok := nestedTourID(c); ok {
				in.Tour = &id
			}
		}
		if in.User == nil {
			if u := middleware.CurrentUser(c); u != nil {
				id := u.ID
				in.User = &id
			}
		}
		return nil
	})(c)
}

func (h *ReviewHandler) Update(c *gin.Context) {
	updateOne[models.ReviewInput](h.reviews)(c)
}

func (h *ReviewHandler) Delete(c *gin.Context) {
	deleteOne(h.reviews)(c)
}
