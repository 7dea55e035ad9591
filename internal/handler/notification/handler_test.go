package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/crm-api/internal/config"
	"github.com/jwalitptl/crm-api/internal/middleware"
	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository/postgres"
	notificationService "github.com/jwalitptl/crm-api/internal/service/notification"
)

type handlerFixture struct {
	router *gin.Engine
	svc    notificationService.Service
	alice  int64
	bob    int64
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.RegisterValidators()

	db, err := postgres.NewDB(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, postgres.Migrate(context.Background(), db))

	base := postgres.NewBaseRepository(db)
	employees := postgres.NewEmployeeRepository(base)
	alice := &model.Employee{Email: "alice@example.com", PasswordHash: "x", IsActive: true}
	bob := &model.Employee{Email: "bob@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, employees.Create(context.Background(), alice))
	require.NoError(t, employees.Create(context.Background(), bob))

	svc := notificationService.NewService(notificationService.Repositories{
		Notifications: postgres.NewNotificationRepository(base),
		Employees:     employees,
		Leads:         postgres.NewLeadRepository(base),
		Tasks:         postgres.NewTaskRepository(base),
		Reminders:     postgres.NewReminderRepository(base),
	}, nil, nil, nil)

	r := gin.New()
	api := r.Group("/api")
	// X-User stands in for the JWT middleware
	api.Use(func(c *gin.Context) {
		switch c.GetHeader("X-User") {
		case "alice":
			c.Set(middleware.ContextUserID, alice.ID)
		case "bob":
			c.Set(middleware.ContextUserID, bob.ID)
		}
		c.Next()
	})
	h := NewHandler(svc)
	h.RegisterRoutes(api)
	h.RegisterInternalRoutes(api)

	return &handlerFixture{router: r, svc: svc, alice: alice.ID, bob: bob.ID}
}

func (f *handlerFixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *handlerFixture) enqueue(t *testing.T, userID int64, typ model.NotificationType, title string) *model.Notification {
	t.Helper()
	n := &model.Notification{NotificationType: typ, Title: title, Message: "msg"}
	require.NoError(t, f.svc.Enqueue(context.Background(), userID, n))
	return n
}

func TestListNotifications(t *testing.T) {
	f := newHandlerFixture(t)
	f.enqueue(t, f.alice, model.NotificationTypeLeadAssignment, "first")
	second := f.enqueue(t, f.alice, model.NotificationTypeTaskAssignment, "second")
	f.enqueue(t, f.bob, model.NotificationTypeTaskAssignment, "not yours")

	w := f.do(t, http.MethodPost, "/api/notifications/"+itoa(second.ID)+"/mark_as_read/", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/notifications/", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list model.NotificationList
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 2, list.TotalNotificationCount)
	assert.Equal(t, 1, list.UnreadCount)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "second", list.Notifications[0].Title)

	w = f.do(t, http.MethodGet, "/api/notifications/?is_read=false", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "first", list.Notifications[0].Title)

	w = f.do(t, http.MethodGet, "/api/notifications/?type=task_assignment", "alice", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "second", list.Notifications[0].Title)
}

func TestListByTypePaginates(t *testing.T) {
	f := newHandlerFixture(t)
	for i := 0; i < 3; i++ {
		f.enqueue(t, f.alice, model.NotificationTypeTaskAssignment, "task "+itoa(int64(i)))
	}
	f.enqueue(t, f.alice, model.NotificationTypeLeadAssignment, "lead")

	w := f.do(t, http.MethodGet, "/api/notifications/tasks/?page=2&page_size=2", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count      int                   `json:"count"`
		Results    []*model.Notification `json:"results"`
		Pagination struct {
			Page       int `json:"page"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Equal(t, 2, resp.Pagination.TotalPages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "task 0", resp.Results[0].Title)

	w = f.do(t, http.MethodGet, "/api/notifications/leads/", "alice", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	w = f.do(t, http.MethodGet, "/api/notifications/reminders/?page=abc", "alice", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNotificationIsScopedToCaller(t *testing.T) {
	f := newHandlerFixture(t)
	n := f.enqueue(t, f.alice, model.NotificationTypeTaskAssignment, "mine")

	w := f.do(t, http.MethodGet, "/api/notifications/"+itoa(n.ID)+"/", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"mine"`)

	w = f.do(t, http.MethodGet, "/api/notifications/"+itoa(n.ID)+"/", "bob", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/notifications/abc/", "alice", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/notifications/"+itoa(n.ID)+"/", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMarkAllAsReadAndUnreadCount(t *testing.T) {
	f := newHandlerFixture(t)
	f.enqueue(t, f.alice, model.NotificationTypeTaskAssignment, "one")
	f.enqueue(t, f.alice, model.NotificationTypeTaskReminder, "two")
	f.enqueue(t, f.bob, model.NotificationTypeTaskReminder, "bob's")

	w := f.do(t, http.MethodGet, "/api/notifications/unread_count/", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":2}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/notifications/mark_all_as_read/", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"2 notification(s) marked as read","count":2}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/notifications/unread_count/", "alice", "")
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/notifications/unread_count/", "bob", "")
	assert.JSONEq(t, `{"count":1}`, w.Body.String())
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	f := newHandlerFixture(t)
	n := f.enqueue(t, f.alice, model.NotificationTypeTaskAssignment, "one")
	path := "/api/notifications/" + itoa(n.ID) + "/mark_as_read/"

	w := f.do(t, http.MethodPost, path, "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var first model.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.True(t, first.IsRead)
	require.NotNil(t, first.ReadAt)

	w = f.do(t, http.MethodPost, path, "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	var second model.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	require.NotNil(t, second.ReadAt)
	assert.True(t, first.ReadAt.Equal(*second.ReadAt))

	w = f.do(t, http.MethodPost, path, "bob", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNotification(t *testing.T) {
	f := newHandlerFixture(t)

	body := `{"user":` + itoa(f.bob) + `,"notification_type":"lead_assignment","title":"New lead","message":"Lead assigned","metadata":{"source":"import"}}`
	w := f.do(t, http.MethodPost, "/api/internal/notifications/", "alice", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Notification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, f.bob, created.UserID)
	assert.Equal(t, "import", created.Metadata["source"])

	count, err := f.svc.UnreadCount(context.Background(), f.bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateNotificationValidation(t *testing.T) {
	f := newHandlerFixture(t)

	tests := map[string]string{
		"unknown type":     `{"user":` + itoa(f.bob) + `,"notification_type":"birthday","title":"t","message":"m"}`,
		"missing title":    `{"user":` + itoa(f.bob) + `,"notification_type":"task_assignment","message":"m"}`,
		"missing user":     `{"notification_type":"task_assignment","title":"t","message":"m"}`,
		"long title":       `{"user":` + itoa(f.bob) + `,"notification_type":"task_assignment","title":"` + strings.Repeat("x", 256) + `","message":"m"}`,
		"unknown user":     `{"user":9999,"notification_type":"task_assignment","title":"t","message":"m"}`,
		"malformed":        `{"user":`,
		"unknown lead":     `{"user":` + itoa(f.bob) + `,"notification_type":"lead_assignment","title":"t","message":"m","lead_id":999}`,
		"unknown task":     `{"user":` + itoa(f.bob) + `,"notification_type":"task_assignment","title":"t","message":"m","task_id":999}`,
		"unknown reminder": `{"user":` + itoa(f.bob) + `,"notification_type":"task_reminder","title":"t","message":"m","reminder_id":999}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/internal/notifications/", "alice", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := f.do(t, http.MethodPost, "/api/internal/notifications/", "alice", tests["unknown type"])
	assert.Contains(t, w.Body.String(), `"field":"notification_type"`)

	w = f.do(t, http.MethodPost, "/api/internal/notifications/", "alice", tests["unknown lead"])
	assert.Contains(t, w.Body.String(), "invalid notification")
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
