// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	"stockledger/pkg/logger"
)

// Recovery turns a panic into an INTERNAL_ERROR envelope.
// Ledger invariant violations surface here; the stack is logged, never returned.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			cause, ok := rec.(error)
			if !ok {
				cause = fmt.Errorf("%v", rec)
			}
			logger.Error(c.Request.Context(), "panic recovered",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"error", cause,
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(errors.Join(errPanic, cause)).
				WithDetail("request_id", c.GetString("request_id")))
			c.Abort()
			writeError(c)
		}()
		c.Next()
	}
}

var errPanic = errors.New("panic")
