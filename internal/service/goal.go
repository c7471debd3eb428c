package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/repository"
)

var (
	ErrGoalAlreadyCompleted = errors.New("goal already completed")
	ErrInvalidGoalType      = errors.New("invalid goal type")
	ErrInvalidTarget        = errors.New("target must be positive")
	ErrInvalidTransition    = errors.New("goal is not in the expected status")
)

type GoalService struct {
	repo       repository.GoalRepository
	streakRepo repository.StreakRepository
}

func NewGoalService(repo repository.GoalRepository, streakRepo repository.StreakRepository) *GoalService {
	return &GoalService{repo: repo, streakRepo: streakRepo}
}

func validGoalType(goalType string) bool {
	switch goalType {
	case model.GoalTypeDaily, model.GoalTypeWeekly, model.GoalTypeMonthly:
		return true
	}
	return false
}

func (s *GoalService) Create(userID, title, description, goalType string, target int) (*model.Goal, error) {
	if !validGoalType(goalType) {
		return nil, ErrInvalidGoalType
	}
	if target <= 0 {
		return nil, ErrInvalidTarget
	}

	now := time.Now()
	goal := &model.Goal{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Type:        goalType,
		Target:      target,
		Status:      model.GoalStatusActive,
		NeedsSync:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	return goal, nil
}

func (s *GoalService) ByID(userID, goalID string) (*model.Goal, error) {
	return s.repo.ByID(userID, goalID)
}

func (s *GoalService) Goals(userID, sortBy string) ([]*model.Goal, error) {
	return s.repo.Goals(userID, sortBy)
}

// Update edits the tracked fields and marks the goal dirty. The dirty flag
// is set here, by the mutating operation, never by a persistence hook.
func (s *GoalService) Update(userID, goalID, title, description string, target int) (*model.Goal, error) {
	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if target <= 0 {
		return nil, ErrInvalidTarget
	}

	goal.Title = strings.TrimSpace(title)
	goal.Description = description
	goal.Target = target
	goal.NeedsSync = true
	goal.UpdatedAt = time.Now()

	err = s.applyCompletion(goal)
	if err != nil {
		return nil, err
	}

	return goal, s.repo.Update(goal)
}

// AddProgress increments progress, handling the one-directional
// active -> completed transition when the target is reached.
func (s *GoalService) AddProgress(userID, goalID string, delta int) (*model.Goal, error) {
	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status == model.GoalStatusCompleted {
		return nil, ErrGoalAlreadyCompleted
	}

	goal.Progress += delta
	if goal.Progress < 0 {
		goal.Progress = 0
	}
	goal.NeedsSync = true
	goal.UpdatedAt = time.Now()

	err = s.applyCompletion(goal)
	if err != nil {
		return nil, err
	}

	return goal, s.repo.Update(goal)
}

// Pause suspends an active goal; Resume reverses it. Completed goals stay
// completed.
func (s *GoalService) Pause(userID, goalID string) (*model.Goal, error) {
	return s.setStatus(userID, goalID, model.GoalStatusActive, model.GoalStatusPaused)
}

func (s *GoalService) Resume(userID, goalID string) (*model.Goal, error) {
	return s.setStatus(userID, goalID, model.GoalStatusPaused, model.GoalStatusActive)
}

func (s *GoalService) setStatus(userID, goalID, from, to string) (*model.Goal, error) {
	goal, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != from {
		return nil, fmt.Errorf("%w: goal is %s, expected %s", ErrInvalidTransition, goal.Status, from)
	}

	goal.Status = to
	goal.NeedsSync = true
	goal.UpdatedAt = time.Now()

	return goal, s.repo.Update(goal)
}

func (s *GoalService) Delete(userID, goalID string) error {
	_, err := s.repo.ByID(userID, goalID)
	if err != nil {
		return err
	}
	return s.repo.Delete(userID, goalID)
}

// ApplyAutoProgress feeds platform activity into matching active goals,
// selected by title pattern. Problems-solved totals are absolute counters on
// the platform side, so the goal's progress is raised to the reported value
// rather than incremented.
func (s *GoalService) ApplyAutoProgress(userID string, problemsSolved int) (int, error) {
	if problemsSolved <= 0 {
		return 0, nil
	}

	goals, err := s.repo.Goals(userID, "")
	if err != nil {
		return 0, fmt.Errorf("failed to load goals: %w", err)
	}

	updated := 0
	for _, goal := range goals {
		if goal.Status != model.GoalStatusActive {
			continue
		}
		if !strings.Contains(strings.ToLower(goal.Title), "problem") {
			continue
		}
		if problemsSolved <= goal.Progress {
			continue
		}

		goal.Progress = problemsSolved
		goal.NeedsSync = true
		goal.UpdatedAt = time.Now()

		err = s.applyCompletion(goal)
		if err != nil {
			slog.Warn("failed to update streak", "error", err, "user_id", userID, "goal_id", goal.ID)
		}

		err = s.repo.Update(goal)
		if err != nil {
			slog.Warn("failed to apply auto progress", "error", err, "user_id", userID, "goal_id", goal.ID)
			continue
		}
		updated++
	}

	return updated, nil
}

// applyCompletion runs the completion transition and its streak side effect.
func (s *GoalService) applyCompletion(goal *model.Goal) error {
	if !goal.CompleteIfReached() {
		return nil
	}

	slog.Info("goal completed", "user_id", goal.UserID, "goal_id", goal.ID, "title", goal.Title)

	streak, err := s.streakRepo.ByUserID(goal.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrStreakNotFound) {
			return fmt.Errorf("failed to load streak: %w", err)
		}
		streak = &model.Streak{UserID: goal.UserID}
	}

	streak.Advance(time.Now())
	err = s.streakRepo.Upsert(streak)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}
