package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

func (r *reminderRepository) Create(ctx context.Context, rem *model.TaskReminder) error {
	query := `
		INSERT INTO task_reminders (task_id, remind_at, is_sent, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`
	rem.RemindAt = rem.RemindAt.UTC()
	rem.CreatedAt = time.Now().UTC()

	err := r.db.QueryRowxContext(ctx, r.q(query),
		rem.TaskID,
		rem.RemindAt,
		rem.IsSent,
		rem.CreatedAt,
	).Scan(&rem.ID)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Get(ctx context.Context, id int64) (*model.TaskReminder, error) {
	query := `SELECT id, task_id, remind_at, is_sent, created_at FROM task_reminders WHERE id = ?`

	var rem model.TaskReminder
	if err := r.db.GetContext(ctx, &rem, r.q(query), id); err != nil {
		return nil, notFoundOr(err, "get reminder")
	}
	return &rem, nil
}

func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.TaskReminder, error) {
	query := `
		SELECT id, task_id, remind_at, is_sent, created_at
		FROM task_reminders
		WHERE is_sent = ? AND remind_at <= ?
		ORDER BY remind_at ASC, id ASC
		LIMIT ?
	`
	reminders := []*model.TaskReminder{}
	if err := r.db.SelectContext(ctx, &reminders, r.q(query), false, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) MarkSent(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.q(`UPDATE task_reminders SET is_sent = ? WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
