package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/studyplanner/internal/model"
)

type StudySessionStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewStudySessionStore(db *sql.DB) *StudySessionStore {
	return &StudySessionStore{db: db, now: time.Now}
}

func scanStudySession(scanner interface{ Scan(...any) error }) (*model.StudySession, error) {
	var ss model.StudySession
	var taskID sql.NullInt64
	var startTime, endTime, createdAt, updatedAt string

	err := scanner.Scan(
		&ss.ID, &ss.UserID, &ss.Subject, &ss.Topic, &ss.Duration, &taskID,
		&startTime, &endTime, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if taskID.Valid {
		ss.TaskID = &taskID.Int64
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&ss.StartTime, startTime},
		{&ss.EndTime, endTime},
		{&ss.CreatedAt, createdAt},
		{&ss.UpdatedAt, updatedAt},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, err
		}
	}
	return &ss, nil
}

const studySessionCols = `id, user_id, subject, topic, duration, task_id, start_time, end_time, created_at, updated_at`

// Create logs a session. Missing start and end times default to now.
func (s *StudySessionStore) Create(ctx context.Context, userID int64, in model.StudySessionInput) (*model.StudySession, error) {
	now := s.now()
	start, end := now, now
	if in.StartTime != nil {
		start = *in.StartTime
	}
	if in.EndTime != nil {
		end = *in.EndTime
	}
	var taskID sql.NullInt64
	if in.TaskID != nil {
		taskID = sql.NullInt64{Int64: *in.TaskID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO study_sessions (user_id, subject, topic, duration, task_id, start_time, end_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, in.Subject, in.Topic, in.Duration, taskID,
		formatTime(start), formatTime(end), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert study session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+studySessionCols+` FROM study_sessions WHERE id = ?`, id)
	ss, err := scanStudySession(row)
	if err != nil {
		return nil, fmt.Errorf("get study session: %w", err)
	}
	return ss, nil
}

func (s *StudySessionStore) ListByUser(ctx context.Context, userID int64) ([]model.StudySession, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+studySessionCols+` FROM study_sessions WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list study sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.StudySession
	for rows.Next() {
		ss, err := scanStudySession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan study session: %w", err)
		}
		sessions = append(sessions, *ss)
	}
	return sessions, rows.Err()
}
