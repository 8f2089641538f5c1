package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/middleware"
	"natours/internal/models"
)

// AuthCookie describes the session cookie written on login.
type AuthCookie struct {
	Days   int
	Secure bool
}

func (a AuthCookie) set(c *gin.Context, token string, maxAge time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(maxAge),
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   a.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sendAuthenticated writes the session cookie and the token envelope.
func (a AuthCookie) sendAuthenticated(c *gin.Context, status int, user *models.User, token string) {
	a.set(c, token, time.Duration(a.Days)*24*time.Hour)
	c.JSON(status, gin.H{
		"status": "success",
		"token":  token,
		"data":   gin.H{"user": user},
	})
}

func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

func sendList[T any](c *gin.Context, docs []T) {
	if docs == nil {
		docs = []T{}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": len(docs),
		"data":    gin.H{"data": docs},
	})
}

func sendDoc(c *gin.Context, status int, doc any) {
	c.JSON(status, gin.H{"status": "success", "data": gin.H{"data": doc}})
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.New(http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s.", name, c.Param(name)))
	}
	return id, nil
}

// bindJSON decodes the body into dst, rejecting fields dst does not declare.
func bindJSON(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.New(http.StatusBadRequest, "Request body is empty.")
		case errors.As(err, &maxErr):
			return apperror.New(http.StatusRequestEntityTooLarge, "Request body is too large.")
		default:
			return apperror.Wrap(http.StatusBadRequest, "Invalid request body: "+err.Error(), err)
		}
	}
	return nil
}
