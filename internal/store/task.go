package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/studyplanner/internal/model"
)

type TaskStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db, now: time.Now}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var completedAt sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Subject,
		&t.Progress, &t.Duration, &t.Completed, &completedAt,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

const taskCols = `id, user_id, title, description, subject, progress, duration, completed, completed_at, created_at, updated_at`

func (s *TaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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

func (s *TaskStore) Create(ctx context.Context, userID int64, in model.TaskInput) (*model.Task, error) {
	now := s.now()
	var completedAt *time.Time
	if in.Completed {
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, subject, progress, duration, completed, completed_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Title, in.Description, in.Subject, in.Progress, in.Duration,
		in.Completed, nullTime(completedAt), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// GetByID returns the task only if it belongs to userID.
func (s *TaskStore) GetByID(ctx context.Context, userID, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListByUser returns the user's tasks, newest first.
func (s *TaskStore) ListByUser(ctx context.Context, userID int64) ([]model.Task, error) {
	tasks, err := s.queryTasks(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// FindActiveBetween returns the user's tasks created or updated within
// [start, end).
func (s *TaskStore) FindActiveBetween(ctx context.Context, userID int64, start, end time.Time) ([]model.Task, error) {
	from, to := formatTime(start), formatTime(end)
	tasks, err := s.queryTasks(ctx,
		`SELECT `+taskCols+` FROM tasks
		 WHERE user_id = ?
		   AND ((created_at >= ? AND created_at < ?) OR (updated_at >= ? AND updated_at < ?))
		 ORDER BY created_at ASC, id ASC`,
		userID, from, to, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("find active tasks: %w", err)
	}
	return tasks, nil
}

// Update replaces the editable fields and bumps updated_at. completed_at is
// set when the task becomes completed and cleared when it is reopened.
// Returns nil, nil if the task does not belong to userID.
func (s *TaskStore) Update(ctx context.Context, userID, id int64, in model.TaskInput) (*model.Task, error) {
	existing, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	now := s.now()
	completedAt := existing.CompletedAt
	switch {
	case in.Completed && !existing.Completed:
		completedAt = &now
	case !in.Completed:
		completedAt = nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, subject = ?, progress = ?, duration = ?,
		 completed = ?, completed_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, in.Subject, in.Progress, in.Duration,
		in.Completed, nullTime(completedAt), formatTime(now),
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

// Delete removes the task and reports whether a row owned by userID existed.
func (s *TaskStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
