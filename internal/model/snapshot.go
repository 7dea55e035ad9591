package model

import "time"

// LeadSnapshot is the lead summary embedded in lead_assignment notifications.
type LeadSnapshot struct {
	ID            int64   `json:"id" db:"id"`
	FullName      string  `json:"full_name" db:"full_name"`
	CompanyName   *string `json:"company_name" db:"company_name"`
	EmailAddress  *string `json:"email_address" db:"email_address"`
	ContactNumber *string `json:"contact_number" db:"contact_number"`
	Status        string  `json:"status" db:"status"`
	LeadType      string  `json:"lead_type" db:"lead_type"`
}

// TaskSnapshot is the task summary embedded in task-related notifications.
type TaskSnapshot struct {
	ID          int64   `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Description *string `json:"description" db:"description"`
	Priority    string  `json:"priority" db:"priority"`
	Status      string  `json:"status" db:"status"`
	DueDate     string  `json:"due_date" db:"due_date"`
	DueTime     string  `json:"due_time" db:"due_time"`
}

// ReminderSnapshot is embedded in task_reminder notifications.
type ReminderSnapshot struct {
	ID       int64     `json:"id" db:"id"`
	RemindAt time.Time `json:"remind_at" db:"remind_at"`
	IsSent   bool      `json:"is_sent" db:"is_sent"`
}
