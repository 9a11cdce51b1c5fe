package secure

import "github.com/gin-gonic/gin"

// Headers applies the browser hardening headers the portal ships with.
func Headers(contentSecurityPolicy string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		if contentSecurityPolicy != "" {
			h.Set("Content-Security-Policy", contentSecurityPolicy)
		}
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}
