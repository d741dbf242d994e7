package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"stockledger/internal/core/apperror"
	appctx "stockledger/internal/core/context"
	"stockledger/internal/core/security"
	"stockledger/internal/domain/auth"
)

// TokenValidator validates bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Session, error)
}

// Auth validates the bearer token and puts the principal snapshot and the
// actor in the request context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		sess, err := validator.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if _, ok := apperror.AsAppError(err); !ok {
				err = apperror.NewUnauthorized("invalid token").WithCause(err)
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		p := sess.Principal
		ctx := security.WithPrincipal(c.Request.Context(), p)
		ctx = appctx.WithUser(ctx, &appctx.UserContext{
			UserID:    p.UserID,
			Role:      string(p.Role),
			SessionID: sess.SessionID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", p.UserID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
