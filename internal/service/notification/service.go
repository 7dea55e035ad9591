package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/crm-api/internal/email"
	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
	"github.com/jwalitptl/crm-api/pkg/metrics"
)

const maxTitleLength = 255

// Publisher hands a stored notification to whatever delivers it to open streams.
type Publisher interface {
	Publish(ctx context.Context, n *model.Notification) error
}

type Service interface {
	Enqueue(ctx context.Context, userID int64, n *model.Notification) error
	List(ctx context.Context, filter model.NotificationFilter) (*model.NotificationList, error)
	ListByType(ctx context.Context, userID int64, t model.NotificationType, page model.Pagination) ([]*model.Notification, int, error)
	Get(ctx context.Context, userID, id int64) (*model.Notification, error)
	MarkAsRead(ctx context.Context, userID, id int64) (*model.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)

	NotifyLeadAssignment(ctx context.Context, lead *model.Lead) (*model.Notification, error)
	NotifyTaskAssignment(ctx context.Context, task *model.Task, isNew bool) (*model.Notification, error)
	NotifyTaskReminder(ctx context.Context, reminder *model.TaskReminder, task *model.Task) (*model.Notification, error)
}

type Repositories struct {
	Notifications repository.NotificationRepository
	Employees     repository.EmployeeRepository
	Leads         repository.LeadRepository
	Tasks         repository.TaskRepository
	Reminders     repository.ReminderRepository
}

type service struct {
	repos     Repositories
	publisher Publisher
	emailSvc  email.Service
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires the notification service. emailSvc and m may be nil.
func NewService(repos Repositories, publisher Publisher, emailSvc email.Service, m *metrics.Metrics) Service {
	return &service{
		repos:     repos,
		publisher: publisher,
		emailSvc:  emailSvc,
		metrics:   m,
		now:       time.Now,
	}
}

// Enqueue stores n for userID and then offers it to any open stream of that user.
// The record is durable once Enqueue returns nil, whether or not a stream is open.
func (s *service) Enqueue(ctx context.Context, userID int64, n *model.Notification) error {
	n.UserID = userID
	if err := validateNotification(n); err != nil {
		return apperrors.BadRequest("invalid notification", err)
	}

	employee, err := s.repos.Employees.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.BadRequest("invalid notification", fmt.Errorf("unknown user %d", userID))
		}
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	cache := newSnapshotCache()
	if err := s.checkReferences(ctx, n, cache); err != nil {
		return err
	}

	n.IsRead = false
	n.ReadAt = nil
	err = s.repos.Notifications.Create(ctx, n)
	s.metrics.ObserveDB("create_notification", err)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	s.metrics.NotificationCreated(string(n.NotificationType))

	s.attachSnapshots(ctx, n, cache)

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			log.Error().Err(err).
				Int64("notification_id", n.ID).
				Int64("user_id", userID).
				Msg("failed to publish notification")
		}
	}

	if s.emailSvc != nil && employee.Email != "" {
		go s.sendEmail(context.WithoutCancel(ctx), employee.Email, n)
	}

	return nil
}

func (s *service) sendEmail(ctx context.Context, to string, n *model.Notification) {
	if err := s.emailSvc.SendCustom(ctx, to, n.Title, n.Message); err != nil {
		log.Warn().Err(err).Int64("notification_id", n.ID).Msg("failed to email notification")
	}
}

func validateNotification(n *model.Notification) error {
	if n.UserID <= 0 {
		return errors.New("user is required")
	}
	if !n.NotificationType.Valid() {
		return fmt.Errorf("unknown notification type %q", n.NotificationType)
	}
	if n.Title == "" {
		return errors.New("title is required")
	}
	if len([]rune(n.Title)) > maxTitleLength {
		return fmt.Errorf("title exceeds %d characters", maxTitleLength)
	}
	if n.Message == "" {
		return errors.New("message is required")
	}
	if n.Metadata == nil {
		n.Metadata = model.JSONMap{}
	}
	return nil
}

// List mirrors the list endpoint: counts are computed over the filtered set.
func (s *service) List(ctx context.Context, filter model.NotificationFilter) (*model.NotificationList, error) {
	notifications, err := s.repos.Notifications.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	unread := false
	unreadFilter := filter
	unreadFilter.IsRead = &unread
	unreadFilter.Limit, unreadFilter.Offset = 0, 0

	unreadCount := 0
	if filter.IsRead == nil || !*filter.IsRead {
		if unreadCount, err = s.repos.Notifications.Count(ctx, unreadFilter); err != nil {
			return nil, err
		}
	}

	s.attachAll(ctx, notifications)
	return &model.NotificationList{
		UnreadCount:            unreadCount,
		TotalNotificationCount: len(notifications),
		Notifications:          notifications,
	}, nil
}

func (s *service) ListByType(ctx context.Context, userID int64, t model.NotificationType, page model.Pagination) ([]*model.Notification, int, error) {
	page.Normalize()
	filter := model.NotificationFilter{UserID: userID, Type: t}

	total, err := s.repos.Notifications.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	filter.Limit = page.PageSize
	filter.Offset = page.Offset()
	notifications, err := s.repos.Notifications.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	s.attachAll(ctx, notifications)
	return notifications, total, nil
}

func (s *service) Get(ctx context.Context, userID, id int64) (*model.Notification, error) {
	n, err := s.repos.Notifications.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, err
	}
	s.attachSnapshots(ctx, n, newSnapshotCache())
	return n, nil
}

func (s *service) MarkAsRead(ctx context.Context, userID, id int64) (*model.Notification, error) {
	n, err := s.repos.Notifications.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, err
	}
	s.attachSnapshots(ctx, n, newSnapshotCache())
	return n, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	return s.repos.Notifications.MarkAllRead(ctx, userID, s.now())
}

func (s *service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	unread := false
	return s.repos.Notifications.Count(ctx, model.NotificationFilter{UserID: userID, IsRead: &unread})
}

func (s *service) attachAll(ctx context.Context, notifications []*model.Notification) {
	cache := newSnapshotCache()
	for _, n := range notifications {
		s.attachSnapshots(ctx, n, cache)
	}
}
