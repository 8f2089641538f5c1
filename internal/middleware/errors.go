package middleware

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/internal/apperror"
	"natours/internal/config"
)

const genericServerMessage = "Something went very wrong!"

// ErrorHandler renders the last error recorded on the context. API requests
// get a JSON envelope; everything else gets the error page.
func ErrorHandler(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}
		err := last.Err
		status := apperror.StatusOf(err)
		operational := apperror.IsOperational(err)
		if !operational || status >= http.StatusInternalServerError {
			log.Printf("[error][%s %s] status=%d err=%v", c.Request.Method, c.Request.URL.Path, status, err)
		}

		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(status, errorBody(env, err, status, operational))
			return
		}

		msg := err.Error()
		if env == config.EnvProduction && !operational {
			msg = "Please try again later."
		}
		c.HTML(status, "error.html", gin.H{
			"title": "Something went wrong!",
			"msg":   msg,
			"user":  CurrentUser(c),
		})
	}
}

func errorBody(env string, err error, status int, operational bool) gin.H {
	state := "error"
	if status < http.StatusInternalServerError {
		state = "fail"
	}
	if env != config.EnvProduction {
		return gin.H{
			"status":  state,
			"message": err.Error(),
			"error":   unwrapAll(err).Error(),
			"stack":   errorChain(err),
		}
	}
	if !operational {
		return gin.H{"status": "error", "message": genericServerMessage}
	}
	return gin.H{"status": state, "message": err.Error()}
}

// errorChain lists every message in err's wrap chain, outermost first.
func errorChain(err error) []string {
	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, e.Error())
	}
	return chain
}

func unwrapAll(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}

// NotFound answers routes nothing else matched.
func NotFound(c *gin.Context) {
	Abort(c, apperror.New(http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", c.Request.URL.String())))
}
