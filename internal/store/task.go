package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sprouthq/sprout/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var completed int
	var dueDate, completedAt sql.NullTime

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &dueDate,
		&completed, &completedAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	if dueDate.Valid {
		d := dueDate.Time
		t.DueDate = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return &t, nil
}

const taskCols = `id, title, description, priority, due_date, completed, completed_at, created_at, updated_at`

func (s *TaskStore) Create(title, description string, priority model.Priority, dueDate *time.Time) (*model.Task, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (title, description, priority, due_date) VALUES (?, ?, ?, ?)`,
		title, description, priority, due,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) GetByID(id int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// List returns all tasks, incomplete first, then by due date with undated
// tasks last.
func (s *TaskStore) List() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskCols + ` FROM tasks
		ORDER BY completed ASC, due_date IS NULL, due_date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// ListPending returns incomplete tasks with a due date, the set the reminder
// scheduler cares about.
func (s *TaskStore) ListPending() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskCols + ` FROM tasks
		WHERE completed = 0 AND due_date IS NOT NULL ORDER BY due_date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id int64, title, description string, priority model.Priority, dueDate *time.Time) (*model.Task, error) {
	var due sql.NullTime
	if dueDate != nil {
		due = sql.NullTime{Time: dueDate.UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, updated_at = ? WHERE id = ?`,
		title, description, priority, due, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) SetCompleted(id int64, completed bool) (*model.Task, error) {
	var c int
	var completedAt sql.NullTime
	if completed {
		c = 1
		completedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET completed = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		c, completedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("set task completed: %w", err)
	}
	return s.GetByID(id)
}

func (s *TaskStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ListCompleted returns all completed tasks.
func (s *TaskStore) ListCompleted() ([]model.Task, error) {
	rows, err := s.db.Query(`SELECT ` + taskCols + ` FROM tasks WHERE completed = 1 ORDER BY completed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list completed tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// DeleteCompleted removes every completed task and returns the deleted rows
// so the caller can reverse any completion awards.
func (s *TaskStore) DeleteCompleted() ([]model.Task, error) {
	tasks, err := s.ListCompleted()
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`DELETE FROM tasks WHERE completed = 1`)
	if err != nil {
		return nil, fmt.Errorf("delete completed tasks: %w", err)
	}
	return tasks, nil
}
