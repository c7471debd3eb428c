package model

import (
	"fmt"
	"time"
)

// DailySummary is a derived aggregate over one user's platform activity for a
// single day. Not persisted locally; the remote projection is the system of
// record for these rows.
type DailySummary struct {
	UserID         string    `json:"user_id"`
	Date           time.Time `json:"date"`
	ProblemsSolved int       `json:"problems_solved"`
	Commits        int       `json:"commits"`
	ActiveMinutes  int       `json:"active_minutes"`
	DistanceMeters float64   `json:"distance_meters"`
	Platforms      []string  `json:"platforms"`
}

// WeeklySummary is the week-granularity shape, keyed by a period label such
// as "2026-W35" so remote rows stay append-only.
type WeeklySummary struct {
	UserID         string    `json:"user_id"`
	PeriodLabel    string    `json:"period_label"`
	WeekStart      time.Time `json:"week_start"`
	ProblemsSolved int       `json:"problems_solved"`
	Commits        int       `json:"commits"`
	ActiveMinutes  int       `json:"active_minutes"`
	DistanceMeters float64   `json:"distance_meters"`
	GoalsCompleted int       `json:"goals_completed"`
	Platforms      []string  `json:"platforms"`
	Insight        string    `json:"insight,omitempty"`
}

// WeekLabel formats the ISO week period key for a point in time.
func WeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
