package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

const notificationColumns = `id, user_id, notification_type, title, message, lead_id, task_id,
	reminder_id, metadata, is_read, read_at, created_at, updated_at`

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			user_id, notification_type, title, message, lead_id, task_id,
			reminder_id, metadata, is_read, read_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Metadata == nil {
		n.Metadata = model.JSONMap{}
	}

	err := r.db.QueryRowxContext(ctx, r.q(query),
		n.UserID,
		n.NotificationType,
		n.Title,
		n.Message,
		n.LeadID,
		n.TaskID,
		n.ReminderID,
		n.Metadata,
		n.IsRead,
		n.ReadAt,
		n.CreatedAt,
		n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, userID, id int64) (*model.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ? AND user_id = ?`

	var n model.Notification
	if err := r.db.GetContext(ctx, &n, r.q(query), id, userID); err != nil {
		return nil, notFoundOr(err, "get notification")
	}
	return &n, nil
}

func (r *notificationRepository) where(filter model.NotificationFilter) (string, []interface{}) {
	conds := []string{"user_id = ?"}
	args := []interface{}{filter.UserID}

	if filter.IsRead != nil {
		conds = append(conds, "is_read = ?")
		args = append(args, *filter.IsRead)
	}
	if filter.Type != "" {
		conds = append(conds, "notification_type = ?")
		args = append(args, filter.Type)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns the newest notifications first.
func (r *notificationRepository) List(ctx context.Context, filter model.NotificationFilter) ([]*model.Notification, error) {
	where, args := r.where(filter)
	query := `SELECT ` + notificationColumns + ` FROM notifications` + where + ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	notifications := []*model.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, r.q(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) Count(ctx context.Context, filter model.NotificationFilter) (int, error) {
	where, args := r.where(filter)

	var count int
	if err := r.db.GetContext(ctx, &count, r.q(`SELECT COUNT(*) FROM notifications`+where), args...); err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead keeps the first read_at when the notification was already read.
func (r *notificationRepository) MarkRead(ctx context.Context, userID, id int64, at time.Time) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET is_read = ?, read_at = COALESCE(read_at, ?), updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	at = at.UTC()
	result, err := r.db.ExecContext(ctx, r.q(query), true, at, at, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification as read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return nil, repository.ErrNotFound
	}
	return r.Get(ctx, userID, id)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = ?, read_at = ?, updated_at = ?
		WHERE user_id = ? AND is_read = ?
	`
	at = at.UTC()
	result, err := r.db.ExecContext(ctx, r.q(query), true, at, at, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
