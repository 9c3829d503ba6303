package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireReady answers 503 while ready reports false.
func RequireReady(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"message": "Service unavailable: database not connected",
			})
			return
		}
		c.Next()
	}
}
