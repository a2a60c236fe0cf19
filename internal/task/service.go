package task

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sprouthq/sprout/internal/ledger"
	"github.com/sprouthq/sprout/internal/model"
	"github.com/sprouthq/sprout/internal/reminder"
	"github.com/sprouthq/sprout/internal/store"
	ws "github.com/sprouthq/sprout/internal/websocket"
)

// Service orchestrates task mutations with their side effects: reminder
// scheduling and gamification awards. Handlers go through the service, never
// the task store directly, so the reminder index and the ledger can never
// drift from the task table.
type Service struct {
	tasks     *store.TaskStore
	ledger    *ledger.Ledger
	scheduler *reminder.Scheduler
	hub       *ws.Hub
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(tasks *store.TaskStore, l *ledger.Ledger, scheduler *reminder.Scheduler, hub *ws.Hub, logger *slog.Logger) *Service {
	return &Service{
		tasks:     tasks,
		ledger:    l,
		scheduler: scheduler,
		hub:       hub,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Get(id int64) (*model.Task, error) {
	return s.tasks.GetByID(id)
}

func (s *Service) List() ([]model.Task, error) {
	return s.tasks.List()
}

func (s *Service) Create(title, description string, priority model.Priority, dueDate *time.Time) (*model.Task, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	task, err := s.tasks.Create(title, description, priority, dueDate)
	if err != nil {
		return nil, err
	}

	s.scheduler.Schedule(*task)
	s.broadcast("task", "created", task.ID)
	return task, nil
}

// Update edits a task's fields and reschedules its reminder. Returns nil for
// an unknown id.
func (s *Service) Update(id int64, title, description string, priority model.Priority, dueDate *time.Time) (*model.Task, error) {
	existing, err := s.tasks.GetByID(id)
	if err != nil || existing == nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("invalid priority %q", priority)
	}

	task, err := s.tasks.Update(id, title, description, priority, dueDate)
	if err != nil {
		return nil, err
	}

	s.scheduler.Reschedule(*task)
	s.broadcast("task", "updated", task.ID)
	return task, nil
}

// SetCompleted toggles completion. Completing awards points and marks streak
// activity; the award is idempotent, so flapping the toggle cannot farm
// points. Uncompleting reverses the award and re-arms the reminder.
func (s *Service) SetCompleted(id int64, completed bool) (*model.Task, error) {
	existing, err := s.tasks.GetByID(id)
	if err != nil || existing == nil {
		return nil, err
	}

	task, err := s.tasks.SetCompleted(id, completed)
	if err != nil {
		return nil, err
	}

	if completed {
		s.scheduler.Cancel(id)
		if _, err := s.ledger.AwardTaskCompletion(id, task.Priority); err != nil {
			return nil, fmt.Errorf("award completion: %w", err)
		}
		if err := s.ledger.MarkActiveDay(s.now()); err != nil {
			return nil, fmt.Errorf("mark active day: %w", err)
		}
	} else {
		if _, err := s.ledger.ReverseTaskCompletion(id); err != nil {
			return nil, fmt.Errorf("reverse completion: %w", err)
		}
		s.scheduler.Schedule(*task)
	}

	s.broadcast("task", "updated", task.ID)
	return task, nil
}

// Delete removes a task, cancels its reminder, and reverses any completion
// award. Deleting an unknown id reports false.
func (s *Service) Delete(id int64) (bool, error) {
	existing, err := s.tasks.GetByID(id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if _, err := s.ledger.ReverseTaskCompletion(id); err != nil {
		return false, fmt.Errorf("reverse completion: %w", err)
	}
	s.scheduler.Cancel(id)

	if err := s.tasks.Delete(id); err != nil {
		return false, err
	}

	s.broadcast("task", "deleted", id)
	return true, nil
}

// ClearCompleted bulk-deletes completed tasks, reversing each award, then
// resynchronizes the reminder index against the surviving tasks.
func (s *Service) ClearCompleted() (int, error) {
	deleted, err := s.tasks.DeleteCompleted()
	if err != nil {
		return 0, err
	}

	for _, t := range deleted {
		if _, err := s.ledger.ReverseTaskCompletion(t.ID); err != nil {
			return 0, fmt.Errorf("reverse completion for task %d: %w", t.ID, err)
		}
	}

	if err := s.ResyncReminders(); err != nil {
		return 0, err
	}

	if len(deleted) > 0 {
		s.broadcast("task", "cleared", 0)
	}
	return len(deleted), nil
}

// ResyncReminders rebuilds the reminder index from the task table. Called on
// startup and after wholesale list changes.
func (s *Service) ResyncReminders() error {
	pending, err := s.tasks.ListPending()
	if err != nil {
		return fmt.Errorf("list pending tasks: %w", err)
	}
	s.scheduler.ScheduleAll(pending)
	return nil
}

func (s *Service) broadcast(entity, action string, id int64) {
	if s.hub == nil {
		return
	}
	var extra map[string]any
	if id != 0 {
		extra = map[string]any{"id": id}
	}
	s.hub.Broadcast(ws.EventMessage(entity, action, extra))
}
