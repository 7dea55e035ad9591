package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authsvc "github.com/jwalitptl/crm-api/internal/service/auth"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/httputil"
)

const ContextUserID = "user_id"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

type AuthMiddleware struct {
	auth Authenticator
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// Authenticate verifies the bearer token and sets the employee id in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized("missing authorization header", nil))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid authorization format", nil))
			return
		}

		userID, err := m.auth.Authenticate(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			if authsvc.IsAuthError(err) {
				log.Debug().Err(err).Str("request_id", c.GetString(ContextRequestID)).Msg("authentication failed")
				httputil.RespondWithError(c, apperrors.Unauthorized("invalid or expired token", err))
				return
			}
			httputil.RespondWithError(c, apperrors.Internal(err))
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated employee id set by Authenticate.
func UserID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
