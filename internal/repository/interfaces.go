package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
)

var ErrNotFound = errors.New("record not found")

// All repository interfaces in one file
type (
	NotificationRepository interface {
		Create(ctx context.Context, n *model.Notification) error
		Get(ctx context.Context, userID, id int64) (*model.Notification, error)
		List(ctx context.Context, filter model.NotificationFilter) ([]*model.Notification, error)
		Count(ctx context.Context, filter model.NotificationFilter) (int, error)
		MarkRead(ctx context.Context, userID, id int64, at time.Time) (*model.Notification, error)
		MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error)
	}

	EmployeeRepository interface {
		Create(ctx context.Context, e *model.Employee) error
		Get(ctx context.Context, id int64) (*model.Employee, error)
		GetByEmail(ctx context.Context, email string) (*model.Employee, error)
	}

	LeadRepository interface {
		Create(ctx context.Context, l *model.Lead) error
		Get(ctx context.Context, id int64) (*model.Lead, error)
	}

	TaskRepository interface {
		Create(ctx context.Context, t *model.Task) error
		Get(ctx context.Context, id int64) (*model.Task, error)
	}

	ReminderRepository interface {
		Create(ctx context.Context, r *model.TaskReminder) error
		Get(ctx context.Context, id int64) (*model.TaskReminder, error)
		// ListDue returns unsent reminders with remind_at at or before now, oldest first.
		ListDue(ctx context.Context, now time.Time, limit int) ([]*model.TaskReminder, error)
		MarkSent(ctx context.Context, id int64) error
	}
)
