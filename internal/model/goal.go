package model

import "time"

type Goal struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Subject        string    `json:"subject"`
	Progress       int       `json:"progress"`
	TargetProgress int       `json:"target_progress"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type GoalInput struct {
	Title          string
	Description    string
	Subject        string
	Progress       int
	TargetProgress int
	Completed      bool
}
