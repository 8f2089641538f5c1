package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"natours/internal/middleware"
	"natours/internal/models"
	"natours/internal/services"
)

type AuthHandler struct {
	auth   services.AuthService
	cookie AuthCookie
	site   Site
}

func NewAuthHandler(auth services.AuthService, cookie AuthCookie, site Site) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie, site: site}
}

// Site builds absolute links for emails and payment redirects.
type Site struct {
	// PublicURL overrides the scheme and host taken from the request.
	PublicURL string
}

func (s Site) URL(c *gin.Context) string {
	if s.PublicURL != "" {
		return strings.TrimSuffix(s.PublicURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// @Summary      Sign up
// @Description  Creates a user account and logs it in
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        user  body      models.SignupRequest  true  "Account"
// @Success      201   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /users/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.auth.Signup(c.Request.Context(), req, h.site.URL(c)+"/me")
	if err != nil {
		fail(c, err)
		return
	}
	log.Printf("[auth][signup] user=%d", user.ID)
	h.cookie.sendAuthenticated(c, http.StatusCreated, user, token)
}

// @Summary      Log in
// @Description  Verifies credentials and returns a session token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Router       /users/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	start := time.Now()
	var req models.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, err := h.auth.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Printf("[auth][login] rejected email=%q: %v", strings.TrimSpace(req.Email), err)
		fail(c, err)
		return
	}
	token, err := h.auth.IssueToken(user.ID)
	if err != nil {
		fail(c, err)
		return
	}
	log.Printf("[auth][login] user=%d ok in %s", user.ID, time.Since(start))
	h.cookie.sendAuthenticated(c, http.StatusOK, user, token)
}

// Logout replaces the session cookie with a short-lived placeholder.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookie.set(c, "loggedout", 10*time.Second)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// @Summary      Request a password reset email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      map[string]string  true  "{\"email\": \"...\"}"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /users/forgotPassword [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	base := h.site.URL(c)
	err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email, func(raw string) string {
		return base + "/api/v1/users/resetPassword/" + raw
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.auth.ResetPassword(c.Request.Context(), c.Param("token"), req.Password, req.PasswordConfirm)
	if err != nil {
		fail(c, err)
		return
	}
	h.cookie.sendAuthenticated(c, http.StatusOK, user, token)
}

func (h *AuthHandler) UpdateMyPassword(c *gin.Context) {
	var req models.UpdatePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		fail(c, err)
		return
	}
	user, token, err := h.auth.ChangePassword(c.Request.Context(), middleware.CurrentUser(c),
		req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		fail(c, err)
		return
	}
	h.cookie.sendAuthenticated(c, http.StatusOK, user, token)
}
