package notification

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
)

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Notification
	clock  time.Time
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{
		rows:  map[int64]*model.Notification{},
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.clock = r.clock.Add(time.Second)
	n.ID = r.nextID
	n.CreatedAt = r.clock
	n.UpdatedAt = r.clock
	cp := *n
	r.rows[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) Get(_ context.Context, userID, id int64) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) matching(filter model.NotificationFilter) []*model.Notification {
	var out []*model.Notification
	for _, n := range r.rows {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.IsRead != nil && n.IsRead != *filter.IsRead {
			continue
		}
		if filter.Type != "" && n.NotificationType != filter.Type {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r *fakeNotificationRepo) List(_ context.Context, filter model.NotificationFilter) ([]*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.matching(filter)
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return []*model.Notification{}, nil
		}
		end := filter.Offset + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[filter.Offset:end]
	}
	return out, nil
}

func (r *fakeNotificationRepo) Count(_ context.Context, filter model.NotificationFilter) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(filter)), nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, userID, id int64, at time.Time) (*model.Notification, error) {
	r.mu.Lock()
	n, ok := r.rows[id]
	if !ok || n.UserID != userID {
		r.mu.Unlock()
		return nil, repository.ErrNotFound
	}
	n.IsRead = true
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	r.mu.Unlock()
	return r.Get(ctx, userID, id)
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.rows {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

type fakeEmployeeRepo struct {
	employees map[int64]*model.Employee
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *model.Employee) error {
	r.employees[e.ID] = e
	return nil
}

func (r *fakeEmployeeRepo) Get(_ context.Context, id int64) (*model.Employee, error) {
	if e, ok := r.employees[id]; ok {
		return e, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeEmployeeRepo) GetByEmail(_ context.Context, email string) (*model.Employee, error) {
	for _, e := range r.employees {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeLeadRepo struct {
	leads map[int64]*model.Lead
	gets  int
}

func (r *fakeLeadRepo) Create(_ context.Context, l *model.Lead) error {
	r.leads[l.ID] = l
	return nil
}

func (r *fakeLeadRepo) Get(_ context.Context, id int64) (*model.Lead, error) {
	r.gets++
	if l, ok := r.leads[id]; ok {
		return l, nil
	}
	return nil, repository.ErrNotFound
}

type fakeTaskRepo struct {
	tasks map[int64]*model.Task
}

func (r *fakeTaskRepo) Create(_ context.Context, t *model.Task) error {
	r.tasks[t.ID] = t
	return nil
}

func (r *fakeTaskRepo) Get(_ context.Context, id int64) (*model.Task, error) {
	if t, ok := r.tasks[id]; ok {
		return t, nil
	}
	return nil, repository.ErrNotFound
}

type fakeReminderRepo struct {
	reminders map[int64]*model.TaskReminder
}

func (r *fakeReminderRepo) Create(_ context.Context, rem *model.TaskReminder) error {
	r.reminders[rem.ID] = rem
	return nil
}

func (r *fakeReminderRepo) Get(_ context.Context, id int64) (*model.TaskReminder, error) {
	if rem, ok := r.reminders[id]; ok {
		return rem, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeReminderRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*model.TaskReminder, error) {
	var out []*model.TaskReminder
	for _, rem := range r.reminders {
		if !rem.IsSent && !rem.RemindAt.After(now) {
			out = append(out, rem)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeReminderRepo) MarkSent(_ context.Context, id int64) error {
	rem, ok := r.reminders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rem.IsSent = true
	return nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []*model.Notification
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, n *model.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, n)
	return p.err
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) SendCustom(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+"|"+subject)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
