package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/questlog/questlog/internal/model"
	"github.com/questlog/questlog/internal/platform"
	"github.com/questlog/questlog/internal/repository"
)

// AggregateService combines per-adapter activity into one summary per user.
// A failing adapter contributes zero values instead of aborting the
// aggregate: partial data is more useful than no report.
type AggregateService struct {
	connRepo    repository.ConnectionRepository
	goalRepo    repository.GoalRepository
	registry    *platform.Registry
	connections *ConnectionService
}

func NewAggregateService(
	connRepo repository.ConnectionRepository,
	goalRepo repository.GoalRepository,
	registry *platform.Registry,
	connections *ConnectionService,
) *AggregateService {
	return &AggregateService{
		connRepo:    connRepo,
		goalRepo:    goalRepo,
		registry:    registry,
		connections: connections,
	}
}

// FetchActivity runs one adapter fetch for a connection, applying the token
// refresh policy first when the platform is credential-backed.
func (s *AggregateService) FetchActivity(ctx context.Context, conn *model.Connection) (*platform.Activity, error) {
	adapter, err := s.registry.Get(conn.Platform)
	if err != nil {
		return nil, err
	}
	fetcher, ok := adapter.(platform.Fetcher)
	if !ok {
		return nil, nil
	}

	accessToken := ""
	if conn.HasCredential() {
		accessToken, err = s.connections.EnsureFreshToken(ctx, conn)
		if err != nil {
			return nil, err
		}
	}

	return fetcher.Fetch(ctx, conn, accessToken)
}

// DailySummary fans over the user's connected platforms for today's shape.
func (s *AggregateService) DailySummary(ctx context.Context, userID string) (*model.DailySummary, error) {
	summary := &model.DailySummary{
		UserID: userID,
		Date:   dayFloor(time.Now()),
	}
	err := s.collect(ctx, userID, func(activity *platform.Activity) {
		summary.ProblemsSolved += activity.ProblemsSolved
		summary.Commits += activity.Commits
		summary.ActiveMinutes += activity.ActiveMinutes
		summary.DistanceMeters += activity.DistanceMeters
		summary.Platforms = append(summary.Platforms, activity.Platform)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// WeeklySummary builds the append-only weekly shape, keyed by period label.
func (s *AggregateService) WeeklySummary(ctx context.Context, userID string) (*model.WeeklySummary, error) {
	now := time.Now()
	summary := &model.WeeklySummary{
		UserID:      userID,
		PeriodLabel: model.WeekLabel(now),
		WeekStart:   weekStart(now),
	}
	err := s.collect(ctx, userID, func(activity *platform.Activity) {
		summary.ProblemsSolved += activity.ProblemsSolved
		summary.Commits += activity.Commits
		summary.ActiveMinutes += activity.ActiveMinutes
		summary.DistanceMeters += activity.DistanceMeters
		summary.Platforms = append(summary.Platforms, activity.Platform)
	})
	if err != nil {
		return nil, err
	}

	goals, err := s.goalRepo.Goals(userID, "")
	if err != nil {
		slog.Warn("failed to count completed goals for summary", "error", err, "user_id", userID)
	} else {
		for _, goal := range goals {
			if goal.Status == model.GoalStatusCompleted {
				summary.GoalsCompleted++
			}
		}
	}

	return summary, nil
}

// collect runs each connected adapter independently; a failure is logged and
// skipped so the remaining platforms still contribute.
func (s *AggregateService) collect(ctx context.Context, userID string, add func(*platform.Activity)) error {
	conns, err := s.connRepo.ConnectedByUser(userID)
	if err != nil {
		return err
	}

	for _, conn := range conns {
		activity, err := s.FetchActivity(ctx, conn)
		if err != nil {
			slog.Warn("adapter fetch failed, contributing zero",
				"error", err, "user_id", userID, "platform", conn.Platform)
			continue
		}
		if activity == nil {
			continue
		}
		add(activity)
	}
	return nil
}

// dayFloor returns midnight of t's day in t's location. Truncate would floor
// against the UTC epoch and can land on the wrong day east or west of it.
func dayFloor(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func weekStart(t time.Time) time.Time {
	t = dayFloor(t)
	weekday := int(t.Weekday())
	// ISO weeks start on Monday.
	if weekday == 0 {
		weekday = 7
	}
	return t.AddDate(0, 0, 1-weekday)
}
