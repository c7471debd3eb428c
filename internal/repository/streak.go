package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/questlog/questlog/internal/model"
)

var (
	ErrStreakNotFound = errors.New("streak not found")
)

type StreakRepository interface {
	ByUserID(userID string) (*model.Streak, error)
	Upsert(streak *model.Streak) error
}

type streakRepository struct {
	db *sqlx.DB
}

func NewStreakRepository(db *sqlx.DB) StreakRepository {
	return &streakRepository{db: db}
}

func (r *streakRepository) ByUserID(userID string) (*model.Streak, error) {
	streak := &model.Streak{}
	query := `SELECT * FROM streaks WHERE user_id = $1`

	err := r.db.Get(streak, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrStreakNotFound
	}

	return streak, err
}

func (r *streakRepository) Upsert(streak *model.Streak) error {
	if streak.UpdatedAt.IsZero() {
		streak.UpdatedAt = time.Now()
	}

	query := `INSERT INTO streaks (user_id, current, longest, last_completed_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (user_id) DO UPDATE SET
	            current = excluded.current,
	            longest = excluded.longest,
	            last_completed_at = excluded.last_completed_at,
	            updated_at = excluded.updated_at`

	_, err := r.db.Exec(query,
		streak.UserID,
		streak.Current,
		streak.Longest,
		streak.LastCompletedAt,
		streak.UpdatedAt,
	)
	return err
}
