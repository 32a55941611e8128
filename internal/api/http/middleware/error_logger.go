package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorLogger recovers from panics and logs every 5xx response with its cause.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				logRequestError(c, start, "panic", fmt.Sprintf("%v", recovered))
				log.Printf("[panic] request_id=%s stack=%s", c.GetString("request_id"), debug.Stack())

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"ok":    false,
					"code":  "INTERNAL_ERROR",
					"error": "internal server error",
				})
				return
			}

			if c.Writer.Status() < http.StatusInternalServerError {
				return
			}
			if len(c.Errors) == 0 {
				logRequestError(c, start, "http_error", fmt.Sprintf("status=%d", c.Writer.Status()))
				return
			}
			for _, err := range c.Errors {
				logRequestError(c, start, "handler_error", err.Error())
			}
		}()

		c.Next()
	}
}

func logRequestError(c *gin.Context, start time.Time, errType string, message string) {
	log.Printf(
		"[error] request_id=%s type=%s status=%d method=%s path=%s query=%s client_ip=%s latency=%s error=%q",
		c.GetString("request_id"),
		errType,
		c.Writer.Status(),
		c.Request.Method,
		c.Request.URL.Path,
		c.Request.URL.RawQuery,
		c.ClientIP(),
		time.Since(start),
		message,
	)
}
