package stream

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	authsvc "github.com/jwalitptl/crm-api/internal/service/auth"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/httputil"
	"github.com/jwalitptl/crm-api/pkg/metrics"
)

const DefaultPingInterval = 30 * time.Second

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

type Handler struct {
	hub          *Hub
	auth         Authenticator
	pingInterval time.Duration
	metrics      *metrics.Metrics
}

func NewHandler(hub *Hub, auth Authenticator, pingInterval time.Duration, m *metrics.Metrics) *Handler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Handler{
		hub:          hub,
		auth:         auth,
		pingInterval: pingInterval,
		metrics:      m,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/notifications/stream/", h.Stream)
}

// tokenFromRequest prefers the Authorization header. The query parameter exists
// for EventSource clients, which cannot set headers.
func tokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		if token := strings.TrimSpace(parts[1]); token != "" {
			return token
		}
	}
	return c.Query("token")
}

// Stream serves GET /api/notifications/stream/.
func (h *Handler) Stream(c *gin.Context) {
	token := tokenFromRequest(c)
	if token == "" {
		httputil.RespondWithError(c, apperrors.Unauthorized("authentication credentials were not provided", nil))
		return
	}

	userID, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		if authsvc.IsAuthError(err) {
			log.Debug().Err(err).Msg("stream authentication failed")
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid or expired token", err))
			return
		}
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	header := c.Writer.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache, no-transform")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	s := newSession(c.Writer, userID, h.metrics)
	if err := s.run(c.Request.Context(), sub, h.pingInterval); err != nil {
		log.Debug().Err(err).
			Int64("user_id", userID).
			Uint64("events", s.nextID).
			Time("last_activity", s.lastActivity).
			Msg("notification stream closed")
	}
}
