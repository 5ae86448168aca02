package model

import "time"

// StudySession is a logged block of study time, optionally tied to a task.
type StudySession struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	Duration  int       `json:"duration"`
	TaskID    *int64    `json:"task_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StudySessionInput struct {
	Subject   string
	Topic     string
	Duration  int
	TaskID    *int64
	StartTime *time.Time
	EndTime   *time.Time
}
