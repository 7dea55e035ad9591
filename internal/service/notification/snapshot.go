package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
	apperrors "github.com/jwalitptl/crm-api/pkg/errors"
)

// snapshotCache avoids reloading the same lead or task while serialising a list.
type snapshotCache struct {
	leads     map[int64]*model.LeadSnapshot
	tasks     map[int64]*model.TaskSnapshot
	reminders map[int64]*model.ReminderSnapshot
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{
		leads:     map[int64]*model.LeadSnapshot{},
		tasks:     map[int64]*model.TaskSnapshot{},
		reminders: map[int64]*model.ReminderSnapshot{},
	}
}

// attachSnapshots fills lead_data, task_data and reminder_data according to the
// notification type. A missing referenced row leaves the snapshot null.
func (s *service) attachSnapshots(ctx context.Context, n *model.Notification, cache *snapshotCache) {
	if n.NotificationType == model.NotificationTypeLeadAssignment && n.LeadID != nil && s.repos.Leads != nil {
		n.LeadData = s.leadSnapshot(ctx, *n.LeadID, cache)
	}
	if n.NotificationType.IsTaskRelated() && n.TaskID != nil && s.repos.Tasks != nil {
		n.TaskData = s.taskSnapshot(ctx, *n.TaskID, cache)
	}
	if n.NotificationType == model.NotificationTypeTaskReminder && n.ReminderID != nil && s.repos.Reminders != nil {
		n.ReminderData = s.reminderSnapshot(ctx, *n.ReminderID, cache)
	}
}

// checkReferences rejects a notification pointing at a lead, task or reminder
// that does not exist, and primes cache with the rows it loaded.
func (s *service) checkReferences(ctx context.Context, n *model.Notification, cache *snapshotCache) error {
	if n.LeadID != nil && s.repos.Leads != nil {
		lead, err := s.repos.Leads.Get(ctx, *n.LeadID)
		if err != nil {
			return referenceError(err, "lead", *n.LeadID)
		}
		cache.leads[*n.LeadID] = lead.Snapshot()
	}
	if n.TaskID != nil && s.repos.Tasks != nil {
		task, err := s.repos.Tasks.Get(ctx, *n.TaskID)
		if err != nil {
			return referenceError(err, "task", *n.TaskID)
		}
		cache.tasks[*n.TaskID] = task.Snapshot()
	}
	if n.ReminderID != nil && s.repos.Reminders != nil {
		rem, err := s.repos.Reminders.Get(ctx, *n.ReminderID)
		if err != nil {
			return referenceError(err, "reminder", *n.ReminderID)
		}
		cache.reminders[*n.ReminderID] = &model.ReminderSnapshot{ID: rem.ID, RemindAt: rem.RemindAt, IsSent: rem.IsSent}
	}
	return nil
}

func referenceError(err error, kind string, id int64) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.BadRequest("invalid notification", fmt.Errorf("unknown %s %d", kind, id))
	}
	return fmt.Errorf("failed to load %s %d: %w", kind, id, err)
}

func (s *service) leadSnapshot(ctx context.Context, id int64, cache *snapshotCache) *model.LeadSnapshot {
	if snap, ok := cache.leads[id]; ok {
		return snap
	}
	lead, err := s.repos.Leads.Get(ctx, id)
	if err != nil {
		logSnapshotError(err, "lead", id)
		cache.leads[id] = nil
		return nil
	}
	snap := lead.Snapshot()
	cache.leads[id] = snap
	return snap
}

func (s *service) taskSnapshot(ctx context.Context, id int64, cache *snapshotCache) *model.TaskSnapshot {
	if snap, ok := cache.tasks[id]; ok {
		return snap
	}
	task, err := s.repos.Tasks.Get(ctx, id)
	if err != nil {
		logSnapshotError(err, "task", id)
		cache.tasks[id] = nil
		return nil
	}
	snap := task.Snapshot()
	cache.tasks[id] = snap
	return snap
}

func (s *service) reminderSnapshot(ctx context.Context, id int64, cache *snapshotCache) *model.ReminderSnapshot {
	if snap, ok := cache.reminders[id]; ok {
		return snap
	}
	rem, err := s.repos.Reminders.Get(ctx, id)
	if err != nil {
		logSnapshotError(err, "reminder", id)
		cache.reminders[id] = nil
		return nil
	}
	snap := &model.ReminderSnapshot{ID: rem.ID, RemindAt: rem.RemindAt, IsSent: rem.IsSent}
	cache.reminders[id] = snap
	return snap
}

func logSnapshotError(err error, kind string, id int64) {
	if errors.Is(err, repository.ErrNotFound) {
		return
	}
	log.Warn().Err(err).Str("kind", kind).Int64("id", id).Msg("failed to load notification snapshot")
}
