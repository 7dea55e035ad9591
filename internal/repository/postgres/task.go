package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

type taskRepository struct {
	BaseRepository
}

func NewTaskRepository(base BaseRepository) repository.TaskRepository {
	return &taskRepository{base}
}

func (r *taskRepository) Create(ctx context.Context, t *model.Task) error {
	query := `
		INSERT INTO tasks (
			title, description, assigned_to_id, priority, status, due_date, due_time,
			is_deleted, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, r.q(query),
		t.Title,
		t.Description,
		t.AssignedToID,
		t.Priority,
		t.Status,
		t.DueDate,
		t.DueTime,
		t.IsDeleted,
		t.CreatedAt,
		t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, id int64) (*model.Task, error) {
	query := `
		SELECT id, title, description, assigned_to_id, priority, status,
			CAST(due_date AS TEXT) AS due_date, CAST(due_time AS TEXT) AS due_time,
			is_deleted, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`
	var t model.Task
	if err := r.db.GetContext(ctx, &t, r.q(query), id); err != nil {
		return nil, notFoundOr(err, "get task")
	}
	return &t, nil
}
