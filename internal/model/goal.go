package model

import (
	"time"
)

const (
	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusPaused    = "paused"
)

const (
	GoalTypeDaily   = "daily"
	GoalTypeWeekly  = "weekly"
	GoalTypeMonthly = "monthly"
)

type Goal struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description,omitempty"`
	Type         string    `db:"type" json:"type"`
	Progress     int       `db:"progress" json:"progress"`
	Target       int       `db:"target" json:"target"`
	Status       string    `db:"status" json:"status"`
	NeedsSync    bool      `db:"needs_sync" json:"needs_sync"`
	RemoteHandle *string   `db:"remote_handle" json:"remote_handle,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CompleteIfReached flips an active goal to completed once progress meets the
// target. Returns true when the transition happened on this call.
func (g *Goal) CompleteIfReached() bool {
	if g.Status != GoalStatusActive {
		return false
	}
	if g.Target > 0 && g.Progress >= g.Target {
		g.Status = GoalStatusCompleted
		return true
	}
	return false
}

func (g *Goal) HasRemoteHandle() bool {
	return g.RemoteHandle != nil && *g.RemoteHandle != ""
}
