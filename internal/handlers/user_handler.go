package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/services"
	"natours/internal/storage"
)

var errPasswordRoute = apperror.New(http.StatusBadRequest,
	"This route is not for password updates. Please use /updateMyPassword.")

type UserHandler struct {
	users services.UserService
	opts  QueryOptions
}

func NewUserHandler(users services.UserService, opts QueryOptions) *UserHandler {
	return &UserHandler{users: users, opts: opts}
}

// @Summary      Current user
// @Tags         Users
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	doc, err := h.users.FindByID(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	sendDoc(c, http.StatusOK, doc)
}

type updateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

// UpdateMe accepts JSON, or a multipart form when a photo is attached.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var (
		req   updateMeRequest
		photo *storage.Upload
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		form, err := c.MultipartForm()
		if err != nil {
			fail(c, apperror.Wrap(http.StatusBadRequest, "Expected a multipart form.", err))
			return
		}
		req.Name = formValue(form.Value, "name")
		req.Email = formValue(form.Value, "email")
		req.Password = formValue(form.Value, "password")
		req.PasswordConfirm = formValue(form.Value, "passwordConfirm")

		ups, closeUps, err := openUploads(form.File["photo"])
		if err != nil {
			fail(c, err)
			return
		}
		defer closeUps()
		if len(ups) > 0 {
			photo = &ups[0]
		}
	} else if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}

	if req.Password != nil || req.PasswordConfirm != nil {
		fail(c, errPasswordRoute)
		return
	}
	user, err := h.users.UpdateMe(c.Request.Context(), middleware.CurrentUser(c), req.Name, req.Email, photo)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": user}})
}

func formValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	s := v[len(v)-1]
	return &s
}

func (h *UserHandler) DeleteMe(c *gin.Context) {
	if err := h.users.DeactivateMe(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) GetAll(c *gin.Context) {
	getAll(h.users, h.opts, nil)(c)
}

func (h *UserHandler) Get(c *gin.Context) {
	getOne(h.users)(c)
}

// Create exists only to point clients at signup.
func (h *UserHandler) Create(c *gin.Context) {
	fail(c, apperror.New(http.StatusInternalServerError, "This route is not defined! Please use /signup instead"))
}

// Update is the admin edit. Passwords cannot be changed here.
func (h *UserHandler) Update(c *gin.Context) {
	id, err := paramID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}
	var upd models.UserUpdate
	if err := bindJSON(c, &upd); err != nil {
		fail(c, err)
		return
	}
	user, err := h.users.Update(c.Request.Context(), id, upd)
	if err != nil {
		fail(c, err)
		return
	}
	sendDoc(c, http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	deleteOne(h.users)(c)
}
