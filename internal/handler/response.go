package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/crm-api/internal/middleware"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/httputil"
)

type MessageResponse struct {
	Message string `json:"message"`
	Count   int64  `json:"count"`
}

type CountResponse struct {
	Count int `json:"count"`
}

// RespondWithBindError answers a failed ShouldBind call: per-field messages for
// validation failures, a generic 400 otherwise.
func RespondWithBindError(c *gin.Context, err error) {
	if fields := middleware.ValidationErrors(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": httputil.Error{
				Code:    http.StatusBadRequest,
				Message: "validation failed",
			},
			"errors": fields,
		})
		return
	}
	httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
}

// CurrentUser returns the authenticated employee id, answering 401 when absent.
func CurrentUser(c *gin.Context) (int64, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("", nil))
		return 0, false
	}
	return id, true
}
