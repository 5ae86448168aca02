// Package streak computes a user's daily task-completion streak.
//
// A day qualifies when at least one task was created or updated on it and
// every such task is completed. The streak is the number of consecutive
// qualifying days ending at the target day, found by walking backward from
// the target until the first day that does not qualify.
//
// Evaluations for the same user are not serialized. Two concurrent calls
// read, compute and write independently and the last write wins; since the
// walk is a pure function of task history they only disagree if tasks
// changed between their reads.
package streak

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/studyplanner/internal/model"
)

type Mode string

const (
	ModeToday     Mode = "today"
	ModeYesterday Mode = "yesterday"
)

// ParseMode maps anything other than "today" to ModeYesterday.
func ParseMode(s string) Mode {
	if Mode(s) == ModeToday {
		return ModeToday
	}
	return ModeYesterday
}

type BreakReason string

const (
	BreakNoActivity BreakReason = "no_activity"
	BreakIncomplete BreakReason = "incomplete"
)

// TaskFinder returns a user's tasks with created_at or updated_at in
// [start, end).
type TaskFinder interface {
	FindActiveBetween(ctx context.Context, userID int64, start, end time.Time) ([]model.Task, error)
}

// UserRepository reads and persists streak state. GetByID returns nil, nil
// when no user exists.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	SaveStreak(ctx context.Context, id int64, streak int, processedDay time.Time) error
}

// Recorder observes evaluation outcomes. Outcome is "computed", "skipped"
// or "error"; days is the number of days inspected by the walk.
type Recorder interface {
	ObserveEvaluation(outcome string, days int)
}

type Result struct {
	Streak    int
	TargetDay time.Time
	// Skipped is set when the target day was already processed and the
	// stored streak was returned without recomputation.
	Skipped  bool
	BrokenBy BreakReason
	// Previous is the streak stored before this evaluation.
	Previous int
}

type Processor struct {
	tasks    TaskFinder
	users    UserRepository
	loc      *time.Location
	now      func() time.Time
	recorder Recorder
	logger   *slog.Logger
}

type Option func(*Processor)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor builds a Processor whose day boundaries are midnights in loc.
// A nil loc means UTC.
func NewProcessor(tasks TaskFinder, users UserRepository, loc *time.Location, opts ...Option) *Processor {
	if loc == nil {
		loc = time.UTC
	}
	p := &Processor{
		tasks:  tasks,
		users:  users,
		loc:    loc,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TargetDay returns the midnight the given mode anchors on.
func (p *Processor) TargetDay(mode Mode) time.Time {
	today := StartOfDay(p.now(), p.loc)
	if mode == ModeToday {
		return today
	}
	return AddDays(today, -1)
}

// DayBounds returns [start, end) of the calendar day starting at day.
func (p *Processor) DayBounds(day time.Time) (time.Time, time.Time) {
	start := StartOfDay(day, p.loc)
	return start, AddDays(start, 1)
}

// Evaluate recomputes and persists the user's streak for the mode's target
// day. In yesterday mode a target day that was already processed returns the
// stored streak untouched. Today mode always recomputes since the current
// day's tasks can still change.
func (p *Processor) Evaluate(ctx context.Context, userID int64, mode Mode) (Result, error) {
	res, days, err := p.evaluate(ctx, userID, mode)
	switch {
	case err != nil:
		p.observe("error", days)
	case res.Skipped:
		p.observe("skipped", 0)
	default:
		p.observe("computed", days)
	}
	return res, err
}

func (p *Processor) evaluate(ctx context.Context, userID int64, mode Mode) (Result, int, error) {
	if userID <= 0 {
		return Result{}, 0, ErrUserNotFound
	}

	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return Result{}, 0, &StorageError{Op: "get user", Err: err}
	}
	if user == nil {
		return Result{}, 0, ErrUserNotFound
	}

	target := p.TargetDay(mode)

	if user.LastStreakProcessed != nil && mode != ModeToday {
		processFrom := AddDays(StartOfDay(*user.LastStreakProcessed, p.loc), 1)
		if processFrom.After(target) {
			p.logger.Debug("streak already processed",
				"user_id", userID,
				"mode", string(mode),
				"target_day", target,
				"streak", user.Streak,
			)
			return Result{Streak: user.Streak, TargetDay: target, Skipped: true, Previous: user.Streak}, 0, nil
		}
	}

	count := 0
	days := 0
	var reason BreakReason
	for day := target; ; day = AddDays(day, -1) {
		if err := ctx.Err(); err != nil {
			return Result{}, days, err
		}

		start, end := p.DayBounds(day)
		tasks, err := p.tasks.FindActiveBetween(ctx, userID, start, end)
		days++
		if err != nil {
			return Result{}, days, &StorageError{Op: "find tasks", Err: err}
		}

		if len(tasks) == 0 {
			reason = BreakNoActivity
			break
		}
		if !allCompleted(tasks) {
			reason = BreakIncomplete
			break
		}
		count++
	}

	if err := p.users.SaveStreak(ctx, userID, count, target); err != nil {
		return Result{}, days, &StorageError{Op: "save streak", Err: err}
	}

	p.logger.Debug("streak evaluated",
		"user_id", userID,
		"mode", string(mode),
		"target_day", target,
		"streak", count,
		"previous", user.Streak,
		"days_inspected", days,
		"broken_by", string(reason),
	)

	return Result{Streak: count, TargetDay: target, BrokenBy: reason, Previous: user.Streak}, days, nil
}

func allCompleted(tasks []model.Task) bool {
	for _, t := range tasks {
		if !t.Completed {
			return false
		}
	}
	return len(tasks) > 0
}

func (p *Processor) observe(outcome string, days int) {
	if p.recorder != nil {
		p.recorder.ObserveEvaluation(outcome, days)
	}
}
