package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/crm-api/internal/handler"
	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/service/auth"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/httputil"
)

type Handler struct {
	svc *auth.Service
}

func NewHandler(svc *auth.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/login/", h.Login)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if auth.IsAuthError(err) {
			httputil.RespondWithError(c, apperrors.Unauthorized("invalid credentials", err))
			return
		}
		httputil.RespondWithError(c, apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, tokens)
}
