package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorMiddleware renders the last error attached with c.Error. Classified
// errors keep their status code; anything else is answered with a 500.
func ErrorMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Render(c, log, c.Errors.Last().Err)
	}
}

// Recovery turns a panic inside the handler chain into the same 500 response
// used for unclassified errors.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}
				log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", c.GetString("request_id")),
					zap.Stack("stack"),
				)
				c.Abort()
				if !c.Writer.Written() {
					c.JSON(http.StatusInternalServerError, gin.H{
						"message": ErrInternalServer.Message,
						"error":   err.Error(),
					})
				}
			}
		}()
		c.Next()
	}
}

// NotFoundHandler answers requests for unmounted paths.
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found"})
	}
}

// Render writes err as a JSON response and aborts the chain.
func Render(c *gin.Context, log *zap.Logger, err error) {
	var appErr *Error
	if !stderrors.As(err, &appErr) {
		appErr = Internal(err)
	}

	if appErr.Code >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.Int("status", appErr.Code),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
	}

	if appErr.Code == http.StatusInternalServerError {
		detail := appErr.Message
		if appErr.Err != nil {
			detail = appErr.Err.Error()
		}
		c.AbortWithStatusJSON(appErr.Code, gin.H{
			"message": ErrInternalServer.Message,
			"error":   detail,
		})
		return
	}
	c.AbortWithStatusJSON(appErr.Code, appErr)
}
