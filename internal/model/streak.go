package model

import (
	"time"
)

// Streak tracks consecutive goal completions per user. Updated as a side
// effect of the active -> completed goal transition.
type Streak struct {
	UserID          string     `db:"user_id"`
	Current         int        `db:"current"`
	Longest         int        `db:"longest"`
	LastCompletedAt *time.Time `db:"last_completed_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Advance applies one completion at the given time. Completions on the same
// day are counted once; a gap of more than one day resets the run.
func (s *Streak) Advance(now time.Time) {
	day := now.Truncate(24 * time.Hour)
	if s.LastCompletedAt != nil {
		last := s.LastCompletedAt.Truncate(24 * time.Hour)
		switch {
		case day.Equal(last):
			return
		case day.Sub(last) <= 24*time.Hour:
			s.Current++
		default:
			s.Current = 1
		}
	} else {
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	t := now
	s.LastCompletedAt = &t
	s.UpdatedAt = now
}
