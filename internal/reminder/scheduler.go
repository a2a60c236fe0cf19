package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sprouthq/sprout/internal/model"
)

// Notifier delivers a due-soon notification. Delivery failures are the
// notifier's problem; the scheduler fires and forgets.
type Notifier interface {
	TaskDueSoon(task model.Task, minutes int)
}

type entry struct {
	task   model.Task
	fireAt time.Time
}

// Scheduler owns the pending due-soon reminders. Instead of arming one
// long-delay timer per task, it keeps a fire-at index and scans it on a short
// ticker; a reminder fires on the first tick at or after its fire time. The
// index is in-memory only and re-derived via ScheduleAll on startup and after
// every wholesale task-list change.
type Scheduler struct {
	mu       sync.Mutex
	pending  map[int64]entry
	lead     time.Duration
	interval time.Duration
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a reminder scheduler that fires lead before each due
// date and scans pending entries every interval.
func NewScheduler(notifier Notifier, lead, interval time.Duration, logger *slog.Logger) *Scheduler {
	if lead <= 0 {
		lead = 5 * time.Minute
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{
		pending:  make(map[int64]entry),
		lead:     lead,
		interval: interval,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Schedule registers a reminder for the task, replacing any existing entry
// for the same id so there is never more than one pending reminder per task.
// Tasks without a due date, completed tasks, and tasks whose reminder time
// has already passed are skipped.
func (s *Scheduler) Schedule(task model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, task.ID)

	if task.DueDate == nil || task.Completed {
		return
	}

	fireAt := task.DueDate.Add(-s.lead)
	if !fireAt.After(s.now()) {
		return
	}

	s.pending[task.ID] = entry{task: task, fireAt: fireAt}
}

// Cancel removes any pending reminder for the task. No-op if none exists.
func (s *Scheduler) Cancel(taskID int64) {
	s.mu.Lock()
	delete(s.pending, taskID)
	s.mu.Unlock()
}

// Reschedule cancels and re-registers the reminder, used after any task edit.
func (s *Scheduler) Reschedule(task model.Task) {
	s.Schedule(task)
}

// ScheduleAll clears every pending reminder and registers fresh entries for
// the given tasks. This is the synchronization point after wholesale list
// changes; entries for deleted tasks cannot survive it.
func (s *Scheduler) ScheduleAll(tasks []model.Task) {
	s.mu.Lock()
	s.pending = make(map[int64]entry)
	s.mu.Unlock()

	for _, t := range tasks {
		s.Schedule(t)
	}
}

// ClearAll cancels every pending reminder.
func (s *Scheduler) ClearAll() {
	s.mu.Lock()
	s.pending = make(map[int64]entry)
	s.mu.Unlock()
}

// Pending reports whether a reminder is registered for the task, and its
// fire time.
func (s *Scheduler) Pending(taskID int64) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pending[taskID]
	return e.fireAt, ok
}

// PendingCount returns the number of registered reminders.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Start begins the scan loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scan loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick fires every entry whose fire time has been reached. An entry is
// removed before its notification is dispatched, so it fires at most once
// even if delivery is slow.
func (s *Scheduler) tick() {
	now := s.now()

	s.mu.Lock()
	var due []entry
	for id, e := range s.pending {
		if !e.fireAt.After(now) {
			due = append(due, e)
			delete(s.pending, id)
		}
	}
	s.mu.Unlock()

	for _, e := range due {
		minutes := int(e.task.DueDate.Sub(now).Round(time.Minute) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}
		s.logger.Debug("reminder fired", "task_id", e.task.ID, "due", e.task.DueDate)
		s.notifier.TaskDueSoon(e.task, minutes)
	}
}
