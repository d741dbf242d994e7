package middleware

import (
	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/result"
	"stockledger/pkg/logger"
)

// ErrorHandler turns the last handler error into a result envelope.
// Messages of errors outside the apperror taxonomy are hidden from clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		writeError(c)
	}
}

func writeError(c *gin.Context) {
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	err := c.Errors.Last().Err

	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
	} else {
		logger.Error(c.Request.Context(), "unhandled error", "error", err)
	}

	c.JSON(apperror.GetHTTPStatus(err), result.Fail[any](err))
}
