package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/studyplanner/internal/model"
)

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	var lastProcessed sql.NullString
	var createdAt, updatedAt string
	err := scanner.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Streak, &lastProcessed, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if u.LastStreakProcessed, err = parseNullTime(lastProcessed); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, name, email, password_hash, streak, last_streak_processed, created_at, updated_at`

// NormalizeEmail lower-cases and trims an address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserStore) Create(ctx context.Context, name, email, passwordHash string) (*model.User, error) {
	email = NormalizeEmail(email)

	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	now := formatTime(s.now())
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		name, email, passwordHash, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, NormalizeEmail(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// SaveStreak writes the streak count and processed-day marker in a single
// statement. Concurrent writers for the same user are last-writer-wins.
func (s *UserStore) SaveStreak(ctx context.Context, id int64, streak int, processedDay time.Time) error {
	if streak < 0 {
		return fmt.Errorf("save streak: negative streak %d", streak)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET streak = ?, last_streak_processed = ?, updated_at = ? WHERE id = ?`,
		streak, formatTime(processedDay), formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("save streak: user %d not found", id)
	}
	return nil
}
