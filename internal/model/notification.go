package model

import (
	"time"
)

type NotificationType string

const (
	NotificationTypeLeadAssignment NotificationType = "lead_assignment"
	NotificationTypeTaskAssignment NotificationType = "task_assignment"
	NotificationTypeTaskReminder   NotificationType = "task_reminder"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTypeLeadAssignment, NotificationTypeTaskAssignment, NotificationTypeTaskReminder:
		return true
	}
	return false
}

// IsTaskRelated reports whether notifications of this type carry a task snapshot.
func (t NotificationType) IsTaskRelated() bool {
	return t == NotificationTypeTaskAssignment || t == NotificationTypeTaskReminder
}

// Notification is a durable alert addressed to exactly one employee.
type Notification struct {
	ID               int64             `json:"id" db:"id"`
	UserID           int64             `json:"user" db:"user_id"`
	NotificationType NotificationType  `json:"notification_type" db:"notification_type"`
	Title            string            `json:"title" db:"title"`
	Message          string            `json:"message" db:"message"`
	LeadID           *int64            `json:"lead_id" db:"lead_id"`
	TaskID           *int64            `json:"task_id" db:"task_id"`
	ReminderID       *int64            `json:"reminder_id" db:"reminder_id"`
	Metadata         JSONMap           `json:"metadata" db:"metadata"`
	LeadData         *LeadSnapshot     `json:"lead_data" db:"-"`
	TaskData         *TaskSnapshot     `json:"task_data" db:"-"`
	ReminderData     *ReminderSnapshot `json:"reminder_data" db:"-"`
	IsRead           bool              `json:"is_read" db:"is_read"`
	ReadAt           *time.Time        `json:"read_at" db:"read_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// NotificationFilter narrows a user's notification list.
type NotificationFilter struct {
	UserID int64
	IsRead *bool
	Type   NotificationType
	Limit  int
	Offset int
}

// NotificationList is the list endpoint payload.
type NotificationList struct {
	UnreadCount            int             `json:"unread_count"`
	TotalNotificationCount int             `json:"total_notification_count"`
	Notifications          []*Notification `json:"notifications"`
}

// CreateNotificationRequest is the internal producer payload.
type CreateNotificationRequest struct {
	UserID           int64            `json:"user" binding:"required,gt=0"`
	NotificationType NotificationType `json:"notification_type" binding:"required,notification_type"`
	Title            string           `json:"title" binding:"required,max=255"`
	Message          string           `json:"message" binding:"required"`
	LeadID           *int64           `json:"lead_id"`
	TaskID           *int64           `json:"task_id"`
	ReminderID       *int64           `json:"reminder_id"`
	Metadata         JSONMap          `json:"metadata"`
}

func (r *CreateNotificationRequest) ToNotification() *Notification {
	return &Notification{
		UserID:           r.UserID,
		NotificationType: r.NotificationType,
		Title:            r.Title,
		Message:          r.Message,
		LeadID:           r.LeadID,
		TaskID:           r.TaskID,
		ReminderID:       r.ReminderID,
		Metadata:         r.Metadata,
	}
}
