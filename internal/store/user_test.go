package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/studyplanner/internal/database"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock returns a clock that reads *now, so tests can move it forward.
func fixedClock(now *time.Time) func() time.Time {
	return func() time.Time { return *now }
}

func createTestUser(t *testing.T, us *UserStore, email string) int64 {
	t.Helper()
	u, err := us.Create(context.Background(), "Student", email, "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func TestUserCreateAndGet(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	u, err := us.Create(ctx, "Ada", "  Ada@Example.COM ", "bcrypt-hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Errorf("email = %q, want normalized", u.Email)
	}
	if u.Streak != 0 {
		t.Errorf("streak = %d, want 0", u.Streak)
	}
	if u.LastStreakProcessed != nil {
		t.Errorf("last_streak_processed = %v, want nil", u.LastStreakProcessed)
	}

	got, err := us.GetByEmail(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("get by email = %v, want id %d", got, u.ID)
	}
	if got.PasswordHash != "bcrypt-hash" {
		t.Errorf("password hash = %q", got.PasswordHash)
	}
}

func TestUserNotFound(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	u, err := us.GetByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}

	u, err = us.GetByEmail(context.Background(), "ghost@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil, got %+v", u)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()

	if _, err := us.Create(ctx, "A", "dup@example.com", "h"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := us.Create(ctx, "B", "DUP@example.com", "h")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestSaveStreak(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	ctx := context.Background()
	id := createTestUser(t, us, "streak@example.com")

	loc := time.FixedZone("UTC-5", -5*3600)
	day := time.Date(2026, 3, 9, 0, 0, 0, 0, loc)

	if err := us.SaveStreak(ctx, id, 4, day); err != nil {
		t.Fatalf("save streak: %v", err)
	}

	u, err := us.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if u.Streak != 4 {
		t.Errorf("streak = %d, want 4", u.Streak)
	}
	if u.LastStreakProcessed == nil || !u.LastStreakProcessed.Equal(day) {
		t.Errorf("last_streak_processed = %v, want %v", u.LastStreakProcessed, day)
	}
}

func TestSaveStreakRejectsNegative(t *testing.T) {
	us := NewUserStore(setupTestDB(t))
	id := createTestUser(t, us, "neg@example.com")

	if err := us.SaveStreak(context.Background(), id, -1, time.Now()); err == nil {
		t.Error("expected error for negative streak")
	}
}

func TestSaveStreakMissingUser(t *testing.T) {
	us := NewUserStore(setupTestDB(t))

	if err := us.SaveStreak(context.Background(), 99, 1, time.Now()); err == nil {
		t.Error("expected error for missing user")
	}
}
