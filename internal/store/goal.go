package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/studyplanner/internal/model"
)

type GoalStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db, now: time.Now}
}

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var createdAt, updatedAt string
	err := scanner.Scan(
		&g.ID, &g.UserID, &g.Title, &g.Description, &g.Subject,
		&g.Progress, &g.TargetProgress, &g.Completed, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

const goalCols = `id, user_id, title, description, subject, progress, target_progress, completed, created_at, updated_at`

func (s *GoalStore) Create(ctx context.Context, userID int64, in model.GoalInput) (*model.Goal, error) {
	now := formatTime(s.now())
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO goals (user_id, title, description, subject, progress, target_progress, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Title, in.Description, in.Subject, in.Progress, in.TargetProgress, in.Completed, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, userID, id)
}

func (s *GoalStore) GetByID(ctx context.Context, userID, id int64) (*model.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalCols+` FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (s *GoalStore) ListByUser(ctx context.Context, userID int64) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+goalCols+` FROM goals WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// Update returns nil, nil if the goal does not belong to userID.
func (s *GoalStore) Update(ctx context.Context, userID, id int64, in model.GoalInput) (*model.Goal, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, description = ?, subject = ?, progress = ?, target_progress = ?,
		 completed = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		in.Title, in.Description, in.Subject, in.Progress, in.TargetProgress, in.Completed,
		formatTime(s.now()), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.GetByID(ctx, userID, id)
}

func (s *GoalStore) Delete(ctx context.Context, userID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete goal: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
