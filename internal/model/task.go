package model

import "time"

const (
	TaskStatusToDo       = "to_do"
	TaskStatusInProgress = "in_progress"
	TaskStatusOnHold     = "on_hold"
	TaskStatusCompleted  = "completed"
)

type Task struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  *string   `json:"description" db:"description"`
	AssignedToID *int64    `json:"assigned_to" db:"assigned_to_id"`
	Priority     string    `json:"priority" db:"priority"`
	Status       string    `json:"status" db:"status"`
	DueDate      string    `json:"due_date" db:"due_date"`
	DueTime      string    `json:"due_time" db:"due_time"`
	IsDeleted    bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Task) Snapshot() *TaskSnapshot {
	return &TaskSnapshot{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		DueTime:     t.DueTime,
	}
}

// TaskReminder is a scheduled nudge for the task's assignee.
type TaskReminder struct {
	ID        int64     `json:"id" db:"id"`
	TaskID    int64     `json:"task_id" db:"task_id"`
	RemindAt  time.Time `json:"remind_at" db:"remind_at"`
	IsSent    bool      `json:"is_sent" db:"is_sent"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
