package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/models"
	"natours/internal/services"
	"natours/internal/storage"
)

type TourHandler struct {
	tours services.TourService
	opts  QueryOptions
}

func NewTourHandler(tours services.TourService, opts QueryOptions) *TourHandler {
	return &TourHandler{tours: tours, opts: opts}
}

// AliasTopTours presets the query for the five best cheap tours.
func (h *TourHandler) AliasTopTours(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	c.Request.URL.RawQuery = q.Encode()
	c.Next()
}

// @Summary      List tours
// @Description  Filter with field=value or field[gte|gt|lte|lt]=value; sort, fields, page and limit shape the result.
// @Tags         Tours
// @Produce      json
// @Param        sort    query     string  false  "e.g. price,-ratingsAverage"
// @Param        fields  query     string  false  "e.g. name,price"
// @Param        page    query     int     false  "page number"
// @Param        limit   query     int     false  "page size"
// @Success      200     {object}  map[string]interface{}
// @Failure      400     {object}  map[string]string
// @Router       /tours [get]
func (h *TourHandler) GetAll(c *gin.Context) {
	getAll(h.tours, h.opts, nil)(c)
}

// @Summary      Get a tour with its guides and reviews
// @Tags         Tours
// @Produce      json
// @Param        id   path      int  true  "Tour ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /tours/{id} [get]
func (h *TourHandler) Get(c *gin.Context) {
	getOne(h.tours)(c)
}

// @Summary      Create a tour
// @Tags         Tours
// @Accept       json
// @Produce      json
// @Param        tour  body      models.TourInput  true  "Tour"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Security     BearerAuth
// @Router       /tours [post]
func (h *TourHandler) Create(c *gin.Context) {
	createOne[models.TourInput](h.tours, nil)(c)
}

func (h *TourHandler) Update(c *gin.Context) {
	updateOne[models.TourInput](h.tours)(c)
}

func (h *TourHandler) Delete(c *gin.Context) {
	deleteOne(h.tours)(c)
}

// @Summary      Tour statistics by difficulty
// @Tags         Tours
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /tours/tour-stats [get]
func (h *TourHandler) Stats(c *gin.Context) {
	stats, err := h.tours.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"stats": stats}})
}

// @Summary      Tour starts per month
// @Tags         Tours
// @Produce      json
// @Param        year  path      int  true  "Year"
// @Success      200   {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /tours/monthly-plan/{year} [get]
func (h *TourHandler) MonthlyPlan(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 || year > 9999 {
		fail(c, apperror.New(http.StatusBadRequest, "Invalid year: "+c.Param("year")+"."))
		return
	}
	plan, err := h.tours.MonthlyPlan(c.Request.Context(), year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"plan": plan}})
}

// @Summary      Tours starting within a radius
// @Tags         Tours
// @Produce      json
// @Param        distance  path      number  true  "Radius"
// @Param        latlng    path      string  true  "lat,lng"
// @Param        unit      path      string  true  "mi or km"
// @Success      200       {object}  map[string]interface{}
// @Router       /tours/tours-within/{distance}/center/{latlng}/unit/{unit} [get]
func (h *TourHandler) Within(c *gin.Context) {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		fail(c, err)
		return
	}
	distance, err := strconv.ParseFloat(c.Param("distance"), 64)
	if err != nil || distance < 0 {
		fail(c, apperror.New(http.StatusBadRequest, "Please provide a valid distance."))
		return
	}
	tours, err := h.tours.Within(c.Request.Context(), distance, lat, lng, c.Param("unit"))
	if err != nil {
		fail(c, err)
		return
	}
	sendList(c, tours)
}

// @Summary      Distance from a point to every tour
// @Tags         Tours
// @Produce      json
// @Param        latlng  path      string  true  "lat,lng"
// @Param        unit    path      string  true  "mi or km"
// @Success      200     {object}  map[string]interface{}
// @Router       /tours/distances/{latlng}/unit/{unit} [get]
func (h *TourHandler) Distances(c *gin.Context) {
	lat, lng, err := parseLatLng(c.Param("latlng"))
	if err != nil {
		fail(c, err)
		return
	}
	distances, err := h.tours.Distances(c.Request.Context(), lat, lng, c.Param("unit"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"data": distances}})
}

// UploadImages takes a multipart imageCover and up to three images.
func (h *TourHandler) UploadImages(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		fail(c, apperror.Wrap(http.StatusBadRequest, "Expected a multipart form.", err))
		return
	}

	covers, closeCovers, err := openUploads(form.File["imageCover"])
	if err != nil {
		fail(c, err)
		return
	}
	defer closeCovers()
	images, closeImages, err := openUploads(form.File["images"])
	if err != nil {
		fail(c, err)
		return
	}
	defer closeImages()

	var cover *storage.Upload
	if len(covers) > 0 {
		cover = &covers[0]
	}
	doc, err := h.tours.UploadImages(c.Request.Context(), id, cover, images)
	if err != nil {
		fail(c, err)
		return
	}
	sendDoc(c, http.StatusOK, doc)
}

func parseLatLng(raw string) (lat, lng float64, err error) {
	bad := apperror.New(http.StatusBadRequest, "Please provide latitude and longitude in the format lat,lng.")
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, bad
	}
	return lat, lng, nil
}
