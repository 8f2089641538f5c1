package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxJSONBody is the largest request body accepted for JSON payloads.
const MaxJSONBody = 10 << 10

// SecurityHeaders sets the response headers a browser needs to sandbox the
// site.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-DNS-Prefetch-Control", "off")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("Content-Security-Policy",
			"default-src 'self' https://*.stripe.com; script-src 'self' https://js.stripe.com; "+
				"style-src 'self' https: 'unsafe-inline'; img-src 'self' data: https:; "+
				"frame-src https://js.stripe.com; object-src 'none'")
		c.Next()
	}
}

// BodyLimit caps JSON bodies. Multipart uploads are bounded by the router's
// MaxMultipartMemory instead.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.ContentType() == gin.MIMEJSON && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
