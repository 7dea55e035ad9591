package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
)

// NotifyLeadAssignment alerts the lead's assigned sales staff. It returns nil, nil
// when the lead has nobody assigned.
func (s *service) NotifyLeadAssignment(ctx context.Context, lead *model.Lead) (*model.Notification, error) {
	if lead.AssignedSalesStaffID == nil {
		return nil, nil
	}

	message := fmt.Sprintf(`A new lead "%s" has been assigned to you.`, lead.FullName)
	if lead.CompanyName != nil && *lead.CompanyName != "" {
		message = fmt.Sprintf(`A new lead "%s" from %s has been assigned to you.`, lead.FullName, *lead.CompanyName)
	}

	leadID := lead.ID
	n := &model.Notification{
		NotificationType: model.NotificationTypeLeadAssignment,
		Title:            truncate("Lead Assigned: " + lead.FullName),
		Message:          message,
		LeadID:           &leadID,
		Metadata: model.JSONMap{
			"lead_name":    lead.FullName,
			"company_name": lead.CompanyName,
			"email":        lead.EmailAddress,
			"status":       lead.Status,
			"lead_type":    lead.LeadType,
		},
	}
	if err := s.Enqueue(ctx, *lead.AssignedSalesStaffID, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NotifyTaskAssignment alerts the task's assignee. isNew selects the wording used
// for freshly created tasks.
func (s *service) NotifyTaskAssignment(ctx context.Context, task *model.Task, isNew bool) (*model.Notification, error) {
	if task.AssignedToID == nil {
		return nil, nil
	}

	title := "Task Assigned: " + task.Title
	message := fmt.Sprintf(`Task "%s" has been assigned to you.`, task.Title)
	if isNew {
		title = "New Task Assigned: " + task.Title
		message = fmt.Sprintf(`A new task "%s" has been assigned to you.`, task.Title)
	}

	taskID := task.ID
	n := &model.Notification{
		NotificationType: model.NotificationTypeTaskAssignment,
		Title:            truncate(title),
		Message:          message,
		TaskID:           &taskID,
		Metadata: model.JSONMap{
			"priority": task.Priority,
			"due_date": task.DueDate,
			"due_time": task.DueTime,
			"status":   task.Status,
		},
	}
	if err := s.Enqueue(ctx, *task.AssignedToID, n); err != nil {
		return nil, err
	}
	return n, nil
}

// NotifyTaskReminder creates the reminder notification. Deleted, completed and
// unassigned tasks produce nothing.
func (s *service) NotifyTaskReminder(ctx context.Context, reminder *model.TaskReminder, task *model.Task) (*model.Notification, error) {
	if task.AssignedToID == nil || task.IsDeleted || task.Status == model.TaskStatusCompleted {
		return nil, nil
	}

	taskID, reminderID := task.ID, reminder.ID
	n := &model.Notification{
		NotificationType: model.NotificationTypeTaskReminder,
		Title:            truncate("Task Reminder: " + task.Title),
		Message:          fmt.Sprintf(`Task "%s" is due on %s at %s`, task.Title, task.DueDate, task.DueTime),
		TaskID:           &taskID,
		ReminderID:       &reminderID,
		Metadata: model.JSONMap{
			"priority":  task.Priority,
			"due_date":  task.DueDate,
			"due_time":  task.DueTime,
			"remind_at": reminder.RemindAt.Format(time.RFC3339),
		},
	}
	if err := s.Enqueue(ctx, *task.AssignedToID, n); err != nil {
		return nil, err
	}
	return n, nil
}

func truncate(title string) string {
	r := []rune(title)
	if len(r) <= maxTitleLength {
		return title
	}
	return string(r[:maxTitleLength])
}
