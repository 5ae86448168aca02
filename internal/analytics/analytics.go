// Package analytics reduces a user's tasks, goals and study sessions into
// the summary numbers shown on the dashboard.
package analytics

import (
	"math"

	"github.com/dukerupert/studyplanner/internal/model"
)

// SubjectStats aggregates the sessions logged against one subject.
type SubjectStats struct {
	TotalMinutes int `json:"total_minutes"`
	Sessions     int `json:"sessions"`
}

// Summary is the analytics payload for one user.
type Summary struct {
	TotalStudyMinutes  int                     `json:"total_study_minutes"`
	TaskCompletionRate int                     `json:"task_completion_rate"`
	GoalCompletionRate int                     `json:"goal_completion_rate"`
	ProductivityScore  int                     `json:"productivity_score"`
	Subjects           map[string]SubjectStats `json:"subjects"`
	Streak             int                     `json:"streak"`
}

// Summarize computes the summary. Rates are rounded percentages and are 0
// when there is nothing to rate. Streak is left for the caller to fill from
// the stored user record.
func Summarize(tasks []model.Task, goals []model.Goal, sessions []model.StudySession) Summary {
	s := Summary{Subjects: make(map[string]SubjectStats)}

	for _, sess := range sessions {
		minutes := max(sess.Duration, 0)
		s.TotalStudyMinutes += minutes
		if sess.Subject == "" {
			continue
		}
		st := s.Subjects[sess.Subject]
		st.TotalMinutes += minutes
		st.Sessions++
		s.Subjects[sess.Subject] = st
	}

	doneTasks := 0
	for _, t := range tasks {
		if t.Completed {
			doneTasks++
		}
	}
	doneGoals := 0
	for _, g := range goals {
		if g.Completed {
			doneGoals++
		}
	}

	s.TaskCompletionRate = percent(doneTasks, len(tasks))
	s.GoalCompletionRate = percent(doneGoals, len(goals))
	s.ProductivityScore = percent(doneTasks+doneGoals, len(tasks)+len(goals))
	return s
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
