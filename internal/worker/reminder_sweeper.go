package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/crm-api/internal/model"
	"github.com/jwalitptl/crm-api/internal/repository"
	"github.com/jwalitptl/crm-api/pkg/logger"
	"github.com/jwalitptl/crm-api/pkg/metrics"
)

const (
	OutcomeSent    = "sent"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// ReminderNotifier creates the task_reminder notification. A nil notification
// with a nil error means the task no longer needs one.
type ReminderNotifier interface {
	NotifyTaskReminder(ctx context.Context, reminder *model.TaskReminder, task *model.Task) (*model.Notification, error)
}

type ReminderSweeperConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

type ReminderSweeper struct {
	reminders repository.ReminderRepository
	tasks     repository.TaskRepository
	notifier  ReminderNotifier
	config    ReminderSweeperConfig
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewReminderSweeper(
	reminders repository.ReminderRepository,
	tasks repository.TaskRepository,
	notifier ReminderNotifier,
	config ReminderSweeperConfig,
	log *logger.Logger,
	m *metrics.Metrics,
) *ReminderSweeper {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	workerID := "sweeper-" + uuid.NewString()[:8]
	return &ReminderSweeper{
		reminders: reminders,
		tasks:     tasks,
		notifier:  notifier,
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"worker_id": workerID}),
		metrics:   m,
		now:       time.Now,
	}
}

// Start sweeps once immediately and then on every poll interval until ctx ends.
func (w *ReminderSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.logger.Info("Starting reminder sweeper", "interval", w.config.PollInterval.String())
	w.sweepAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Shutting down reminder sweeper")
			return
		case <-ticker.C:
			w.sweepAndLog(ctx)
		}
	}
}

func (w *ReminderSweeper) sweepAndLog(ctx context.Context) {
	processed, err := w.Sweep(ctx)
	if err != nil {
		w.logger.Error(err, "Failed to sweep reminders")
		return
	}
	if processed > 0 {
		w.logger.Info("Processed reminders", "count", processed)
	}
}

// Sweep handles one batch of due, unsent reminders and returns how many were
// marked sent. A failure on one reminder leaves it unsent for the next sweep.
func (w *ReminderSweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() { w.metrics.ObserveSweep(time.Since(start).Seconds()) }()

	due, err := w.reminders.ListDue(ctx, w.now(), w.config.BatchSize)
	w.metrics.ObserveDB("list_due_reminders", err)
	if err != nil {
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}

	processed := 0
	for _, reminder := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		outcome, err := w.process(ctx, reminder)
		w.metrics.ReminderProcessed(outcome)
		if err != nil {
			w.logger.Error(err, "Failed to process reminder",
				"reminder_id", reminder.ID,
				"task_id", reminder.TaskID)
			continue
		}
		processed++
	}
	return processed, nil
}

func (w *ReminderSweeper) process(ctx context.Context, reminder *model.TaskReminder) (string, error) {
	task, err := w.tasks.Get(ctx, reminder.TaskID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return OutcomeFailed, fmt.Errorf("failed to load task: %w", err)
	}

	outcome := OutcomeSkipped
	if task != nil {
		n, err := w.notifier.NotifyTaskReminder(ctx, reminder, task)
		if err != nil {
			return OutcomeFailed, fmt.Errorf("failed to create reminder notification: %w", err)
		}
		if n != nil {
			outcome = OutcomeSent
		}
	}

	err = retry(w.config.RetryAttempts, w.config.RetryDelay, func() error {
		return w.reminders.MarkSent(ctx, reminder.ID)
	})
	w.metrics.ObserveDB("mark_reminder_sent", err)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	w.logger.Debug("Reminder handled", "reminder_id", reminder.ID, "outcome", outcome)
	return outcome, nil
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
