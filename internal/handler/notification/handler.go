package notification

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/crm-api/internal/handler"
	"github.com/jwalitptl/crm-api/internal/model"
	notificationService "github.com/jwalitptl/crm-api/internal/service/notification"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/httputil"
)

type Handler struct {
	service notificationService.Service
}

func NewHandler(service notificationService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the read/mark endpoints. r must already be authenticated.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("/", h.ListNotifications)
		notifications.GET("/leads/", h.listByType(model.NotificationTypeLeadAssignment))
		notifications.GET("/tasks/", h.listByType(model.NotificationTypeTaskAssignment))
		notifications.GET("/reminders/", h.listByType(model.NotificationTypeTaskReminder))
		notifications.GET("/unread_count/", h.UnreadCount)
		notifications.POST("/mark_all_as_read/", h.MarkAllAsRead)
		notifications.GET("/:id/", h.GetNotification)
		notifications.POST("/:id/mark_as_read/", h.MarkAsRead)
	}
}

// RegisterInternalRoutes mounts the producer endpoint used by other CRM services.
func (h *Handler) RegisterInternalRoutes(r *gin.RouterGroup) {
	r.POST("/internal/notifications/", h.CreateNotification)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := handler.CurrentUser(c)
	if !ok {
		return
	}

	filter := model.NotificationFilter{UserID: userID}
	if v, exists := c.GetQuery("is_read"); exists {
		isRead := strings.EqualFold(v, "true")
		filter.IsRead = &isRead
	}
	if v := c.Query("type"); v != "" {
		filter.Type = model.NotificationType(v)
	}

	list, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) listByType(t model.NotificationType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := handler.CurrentUser(c)
		if !ok {
			return
		}

		var page model.Pagination
		if err := c.ShouldBindQuery(&page); err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid pagination parameters", err))
			return
		}
		page.Normalize()

		items, total, err := h.service.ListByType(c.Request.Context(), userID, t, page)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithPagination(c, items, page.Page, page.PageSize, total)
	}
}

func (h *Handler) GetNotification(c *gin.Context) {
	userID, ok := handler.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	n, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	userID, ok := handler.CurrentUser(c)
	if !ok {
		return
	}
	id, ok := notificationID(c)
	if !ok {
		return
	}

	n, err := h.service.MarkAsRead(c.Request.Context(), userID, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	userID, ok := handler.CurrentUser(c)
	if !ok {
		return
	}

	count, err := h.service.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.MessageResponse{
		Message: fmt.Sprintf("%d notification(s) marked as read", count),
		Count:   count,
	})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID, ok := handler.CurrentUser(c)
	if !ok {
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.CountResponse{Count: count})
}

func (h *Handler) CreateNotification(c *gin.Context) {
	var req model.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithBindError(c, err)
		return
	}

	n := req.ToNotification()
	if err := h.service.Enqueue(c.Request.Context(), req.UserID, n); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

// notificationID parses :id; anything that is not a positive integer is a 404
// since no such notification can exist.
func notificationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, apperrors.NotFound("notification", err))
		return 0, false
	}
	return id, true
}
