package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/internal/apperror"
	"natours/internal/authz"
	"natours/internal/config"
	"natours/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	users map[string]*models.User
}

func (f *fakeAuth) AuthenticateRequest(_ context.Context, token string) (*models.User, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return nil, apperror.ErrInvalidToken
}

func (f *fakeAuth) OptionalAuthenticate(ctx context.Context, token string) *models.User {
	u, _ := f.AuthenticateRequest(ctx, token)
	return u
}

func newAuth() *fakeAuth {
	return &fakeAuth{users: map[string]*models.User{
		"user-token":  {ID: 1, Name: "Jonas", Role: authz.RoleUser},
		"admin-token": {ID: 2, Name: "Admin", Role: authz.RoleAdmin},
	}}
}

func newRouter(env string, mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("error.html").Parse(`{{.title}}|{{.msg}}`)))
	r.Use(ErrorHandler(env))
	r.NoRoute(NotFound)
	handlers := append(mw, func(c *gin.Context) {
		name := ""
		if u := CurrentUser(c); u != nil {
			name = u.Name
		}
		c.String(http.StatusOK, "ok:"+name)
	})
	r.GET("/api/v1/x", handlers...)
	r.GET("/view", handlers...)
	return r
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestProtect_BearerAndCookie(t *testing.T) {
	r := newRouter(config.EnvProduction, Protect(newAuth()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w, _ := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok:Jonas", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "admin-token"})
	w, _ = do(r, req)
	assert.Equal(t, "ok:Admin", w.Body.String())
}

func TestProtect_Rejects(t *testing.T) {
	r := newRouter(config.EnvProduction, Protect(newAuth()))

	w, body := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, apperror.ErrUnauthenticated.Message, body["message"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w, body = do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperror.ErrInvalidToken.Message, body["message"])
}

func TestOptionalAuth_NeverFails(t *testing.T) {
	r := newRouter(config.EnvProduction, OptionalAuth(newAuth()))

	req := httptest.NewRequest(http.MethodGet, "/view", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "loggedout"})
	w, _ := do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok:", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/view", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "user-token"})
	w, _ = do(r, req)
	assert.Equal(t, "ok:Jonas", w.Body.String())
}

func TestRestrictTo(t *testing.T) {
	r := newRouter(config.EnvProduction, Protect(newAuth()), RestrictTo(authz.RoleAdmin, authz.RoleLeadGuide))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w, body := do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have permission to perform this action", body["message"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w, _ = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorHandler_ProductionHidesProgrammingErrors(t *testing.T) {
	fail := func(c *gin.Context) { Abort(c, errors.New("nil pointer somewhere")) }

	w, body := do(newRouter(config.EnvProduction, fail), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"status": "error", "message": "Something went very wrong!"}, body)

	w, body = do(newRouter(config.EnvDevelopment, fail), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "nil pointer somewhere", body["message"])
	assert.Contains(t, body, "stack")

	w, _ = do(newRouter(config.EnvProduction, fail), httptest.NewRequest(http.MethodGet, "/view", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Something went wrong!|Please try again later.", w.Body.String())
}

func TestErrorHandler_Validation(t *testing.T) {
	fail := func(c *gin.Context) { Abort(c, apperror.Validation("A tour must have a name")) }

	w, body := do(newRouter(config.EnvProduction, fail), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", body["status"])
	assert.Equal(t, "Invalid input data. A tour must have a name", body["message"])
}

func TestNotFound(t *testing.T) {
	w, body := do(newRouter(config.EnvProduction), httptest.NewRequest(http.MethodGet, "/api/v1/nope?x=1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Can't find /api/v1/nope?x=1 on this server!", body["message"])
}

func TestRateLimit_BlocksAfterMax(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := newRouter(config.EnvProduction, RateLimit(rdb, 3, time.Hour))
	for i := 0; i < 3; i++ {
		w, _ := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w, body := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many request from this IP, please try again in an hour!", body["message"])
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	mr.FastForward(time.Hour + time.Second)
	w, _ = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	w, _ := do(newRouter(config.EnvProduction, RateLimit(rdb, 1, time.Hour)), httptest.NewRequest(http.MethodGet, "/api/v1/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSecurityHeadersAndBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(), BodyLimit(16))
	r.POST("/api/v1/x", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/x", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ := do(r, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/x", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json")
	w, _ = do(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
