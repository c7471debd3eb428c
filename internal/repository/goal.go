package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/questlog/questlog/internal/model"
)

const (
	GoalSortRecent   = "recent"
	GoalSortProgress = "progress"
	GoalSortTitle    = "title"
)

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	Create(goal *model.Goal) error
	ByID(userID, goalID string) (*model.Goal, error)
	Goals(userID, sortBy string) ([]*model.Goal, error)
	DirtyByUser(userID string) ([]*model.Goal, error)
	Update(goal *model.Goal) error
	MarkSynced(goalID, remoteHandle string) error
	ClearRemoteHandle(goalID string) error
	Delete(userID, goalID string) error
}

type goalRepository struct {
	db *sqlx.DB
}

func NewGoalRepository(db *sqlx.DB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) Create(goal *model.Goal) error {
	query := `INSERT INTO goals (id, user_id, title, description, type, progress, target, status, needs_sync, remote_handle, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(query,
		goal.ID,
		goal.UserID,
		goal.Title,
		goal.Description,
		goal.Type,
		goal.Progress,
		goal.Target,
		goal.Status,
		goal.NeedsSync,
		goal.RemoteHandle,
		goal.CreatedAt,
		goal.UpdatedAt,
	)

	return err
}

func (r *goalRepository) ByID(userID, goalID string) (*model.Goal, error) {
	goal := &model.Goal{}
	query := `SELECT * FROM goals WHERE id = $1 AND user_id = $2`

	err := r.db.Get(goal, query, goalID, userID)
	if err == sql.ErrNoRows {
		return nil, ErrGoalNotFound
	}

	return goal, err
}

func (r *goalRepository) Goals(userID, sortBy string) ([]*model.Goal, error) {
	var goals []*model.Goal

	// Validate and build ORDER BY clause
	var orderBy string
	switch sortBy {
	case GoalSortProgress:
		orderBy = "ORDER BY progress DESC, updated_at DESC"
	case GoalSortTitle:
		orderBy = "ORDER BY LOWER(title) ASC"
	default: // GoalSortRecent or empty
		orderBy = "ORDER BY updated_at DESC"
	}

	query := `SELECT * FROM goals WHERE user_id = $1 ` + orderBy

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

// DirtyByUser returns all goals carrying unsynchronized changes, in creation
// order. No further ordering guarantee is needed by the reconciler.
func (r *goalRepository) DirtyByUser(userID string) ([]*model.Goal, error) {
	var goals []*model.Goal
	query := `SELECT * FROM goals WHERE user_id = $1 AND needs_sync = TRUE ORDER BY created_at ASC`

	err := r.db.Select(&goals, query, userID)
	if err != nil {
		return nil, err
	}

	return goals, nil
}

func (r *goalRepository) Update(goal *model.Goal) error {
	query := `UPDATE goals
	          SET title = $1, description = $2, type = $3, progress = $4, target = $5,
	              status = $6, needs_sync = $7, remote_handle = $8, updated_at = $9
	          WHERE id = $10 AND user_id = $11`

	result, err := r.db.Exec(query,
		goal.Title,
		goal.Description,
		goal.Type,
		goal.Progress,
		goal.Target,
		goal.Status,
		goal.NeedsSync,
		goal.RemoteHandle,
		time.Now(),
		goal.ID,
		goal.UserID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

// MarkSynced records the remote mirror ID and clears the dirty flag in a
// single write, so a reconcile pass cannot leave a half-updated goal.
func (r *goalRepository) MarkSynced(goalID, remoteHandle string) error {
	query := `UPDATE goals SET remote_handle = $1, needs_sync = FALSE, updated_at = $2 WHERE id = $3`

	result, err := r.db.Exec(query, remoteHandle, time.Now(), goalID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}

func (r *goalRepository) ClearRemoteHandle(goalID string) error {
	query := `UPDATE goals SET remote_handle = NULL, updated_at = $1 WHERE id = $2`

	_, err := r.db.Exec(query, time.Now(), goalID)
	return err
}

func (r *goalRepository) Delete(userID, goalID string) error {
	query := `DELETE FROM goals WHERE id = $1 AND user_id = $2`
	result, err := r.db.Exec(query, goalID, userID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrGoalNotFound
	}

	return nil
}
